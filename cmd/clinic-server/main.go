package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/config"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/domain/patient"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/domain/scheduling"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/domain/staff"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/auth"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/db"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/gateway"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/middleware"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/openapi"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/telemetry"
	"github.com/Alkashi1618/projet8-clinique-securisee/pkg/pagination"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:          "clinic-server",
		Short:        "Clinic patients and appointments API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string, w io.Writer) zerolog.Logger {
	if env == "development" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// openPool loads the configuration and connects to the database. Callers
// close the pool.
func openPool(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				dir = cfg.MigrationsDir
			}
			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				dir = cfg.MigrationsDir
			}
			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printMigrations(cmd.OutOrStdout(), statuses)
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func printMigrations(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

// newEcho builds the server with its global middleware and the public
// health and metrics routes. The /api group is mounted by mountAPI.
func newEcho(cfg *config.Config, logger zerolog.Logger, pinger db.Pinger, metrics *telemetry.Provider) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = gateway.ErrorHandler(logger)

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, pagination.TotalCountHeader},
	}))
	e.Use(echomw.BodyLimit(cfg.BodyLimit))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pinger))
	if cfg.MetricsEnabled {
		e.GET("/metrics", metrics.Handler())
	}
	return e
}

func newMetrics(cfg *config.Config, pool *pgxpool.Pool) *telemetry.Provider {
	metrics := telemetry.NewProvider(telemetry.Config{
		ServiceName:    "clinic-server",
		ServiceVersion: version,
		Enabled:        cfg.MetricsEnabled,
	})
	if pool != nil {
		metrics.WithPoolStats(func() (int32, int32, int32) {
			st := pool.Stat()
			return st.AcquiredConns(), st.IdleConns(), st.TotalConns()
		})
	}
	return metrics
}

// mountAPI registers the authenticated /api routes. Every request is
// audited, authenticated, bound to a pooled connection, resolved to a
// principal and rate limited before reaching a handler. A nil limiter keeps
// the rate limit counters in memory.
func mountAPI(e *echo.Echo, cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, limiter middleware.Limiter) {
	tx := db.NewTransactor(pool)

	staffSvc := staff.NewService(staff.NewRepoPG(pool), tx)
	patientSvc := patient.NewService(patient.NewRepoPG(pool), staffSvc, tx)
	schedulingSvc := scheduling.NewService(scheduling.NewRepoPG(pool), patientSvc, staffSvc, tx)

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
	rateLimitCfg.BurstSize = cfg.RateLimitBurst

	api := e.Group("/api")
	api.Use(middleware.Audit(logger))
	api.Use(auth.JWTMiddleware(auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: cfg.SigningKey(),
		Skipper:    auth.AuthSkipper,
	}))
	api.Use(db.ConnMiddleware(pool, auth.AuthSkipper))
	api.Use(auth.PrincipalMiddleware(staffSvc, auth.AuthSkipper))
	if limiter == nil {
		api.Use(middleware.RateLimit(rateLimitCfg))
	} else {
		api.Use(middleware.RateLimitWith(limiter, rateLimitCfg, logger))
	}

	staff.NewHandler(staffSvc).RegisterRoutes(api)
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(api)

	e.GET("/openapi.json", openapi.NewGenerator(e, "/api", version).Handler())
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	var limiter middleware.Limiter
	if cfg.RedisURL != "" {
		client, err := middleware.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error().Err(err).Msg("failed to connect to redis")
			return err
		}
		defer client.Close()
		limiter = middleware.NewRedisLimiter(client, middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
		})
		logger.Info().Msg("rate limiting through redis")
	}

	e := newEcho(cfg, logger, pool, newMetrics(cfg, pool))
	mountAPI(e, cfg, logger, pool, limiter)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
