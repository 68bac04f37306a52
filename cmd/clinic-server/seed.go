package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/domain/patient"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/domain/scheduling"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/domain/staff"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/db"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/sandbox"
)

// seedCmd loads reproducible demo data into a development database.
func seedCmd() *cobra.Command {
	defaults := sandbox.DefaultSeedConfig()
	var cfg sandbox.SeedConfig

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo physicians, patients and appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			appCfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if !appCfg.IsDev() {
				if force, _ := cmd.Flags().GetBool("force"); !force {
					return fmt.Errorf("refusing to seed with ENV=%q, pass --force to override", appCfg.Env)
				}
			}

			tx := db.NewTransactor(pool)
			staffSvc := staff.NewService(staff.NewRepoPG(pool), tx)
			patientSvc := patient.NewService(patient.NewRepoPG(pool), staffSvc, tx)
			schedulingSvc := scheduling.NewService(scheduling.NewRepoPG(pool), patientSvc, staffSvc, tx)

			logger := newLogger(appCfg.Env, os.Stderr)
			res, err := sandbox.NewSeeder(staffSvc, patientSvc, schedulingSvc, logger).Seed(ctx, cfg)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d user(s), %d patient(s), %d appointment(s); %d skipped.\n",
				res.Users, res.Patients, res.Appointments, res.Skipped)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&cfg.Physicians, "physicians", defaults.Physicians, "Number of physician accounts")
	f.IntVar(&cfg.Secretaries, "secretaries", defaults.Secretaries, "Number of secretary accounts")
	f.IntVar(&cfg.Patients, "patients", defaults.Patients, "Number of patients")
	f.IntVar(&cfg.AppointmentsPerPatient, "appointments", defaults.AppointmentsPerPatient, "Appointments per patient")
	f.StringVar(&cfg.StartDate, "start", "", "First consultation day, YYYY-MM-DD (default next Monday)")
	f.IntVar(&cfg.Days, "days", defaults.Days, "Number of consultation days to spread appointments over")
	f.Int64Var(&cfg.Seed, "seed", defaults.Seed, "Random seed, 0 for a time-based seed")
	f.Bool("force", false, "Allow seeding outside ENV=development")
	return cmd
}
