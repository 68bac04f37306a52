package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/domain/staff"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/apperr"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/auth"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/db"
)

// userCmd manages accounts and role memberships. There is no HTTP surface
// for this; roles are granted by an operator.
func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users and their roles",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := staff.NewUser{}
			in.Username, _ = cmd.Flags().GetString("username")
			in.FirstName, _ = cmd.Flags().GetString("first-name")
			in.LastName, _ = cmd.Flags().GetString("last-name")
			in.Email, _ = cmd.Flags().GetString("email")
			in.Roles, _ = cmd.Flags().GetStringSlice("role")

			ctx := cmd.Context()
			_, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := staff.NewService(staff.NewRepoPG(pool), db.NewTransactor(pool))
			u, err := svc.CreateUser(ctx, in)
			if err != nil {
				return describe(err)
			}
			printUsers(cmd.OutOrStdout(), []*staff.User{u})
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Login name (required)")
	createCmd.Flags().String("first-name", "", "First name")
	createCmd.Flags().String("last-name", "", "Last name")
	createCmd.Flags().String("email", "", "E-mail address")
	createCmd.Flags().StringSlice("role", nil, "Role to grant, repeatable ("+roleList()+")")
	_ = createCmd.MarkFlagRequired("username")
	cmd.AddCommand(createCmd)

	cmd.AddCommand(roleCmd("grant", "Grant a role to a user", (*staff.Service).GrantRole))
	cmd.AddCommand(roleCmd("revoke", "Revoke a role from a user", (*staff.Service).RevokeRole))

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			users, err := staff.NewService(staff.NewRepoPG(pool), db.NewTransactor(pool)).ListUsers(ctx)
			if err != nil {
				return err
			}
			printUsers(cmd.OutOrStdout(), users)
			return nil
		},
	})

	return cmd
}

type roleChange func(*staff.Service, context.Context, string, auth.Role) (*staff.User, error)

func roleCmd(use, short string, change roleChange) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " USERNAME ROLE",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := auth.ParseRole(args[1])
			if err != nil {
				return fmt.Errorf("%w (expected one of %s)", err, roleList())
			}

			ctx := cmd.Context()
			_, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := staff.NewService(staff.NewRepoPG(pool), db.NewTransactor(pool))
			u, err := change(svc, ctx, args[0], role)
			if err != nil {
				return describe(err)
			}
			printUsers(cmd.OutOrStdout(), []*staff.User{u})
			return nil
		},
	}
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue locally signed access tokens",
	}

	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Print an HS256 token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			ctx := cmd.Context()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if len(cfg.SigningKey()) == 0 {
				return errors.New("JWT_SIGNING_KEY is not set")
			}
			if ttl <= 0 {
				ttl = cfg.TokenTTL
			}

			u, err := staff.NewService(staff.NewRepoPG(pool), db.NewTransactor(pool)).GetUserByUsername(ctx, username)
			if err != nil {
				return describe(err)
			}
			token, err := auth.IssueToken(cfg.SigningKey(), auth.TokenRequest{
				Subject:  u.ID.String(),
				Username: u.Username,
				Issuer:   cfg.AuthIssuer,
				Audience: cfg.AuthAudience,
				TTL:      ttl,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issueCmd.Flags().String("username", "", "User the token is issued for (required)")
	issueCmd.Flags().Duration("ttl", 0, "Token lifetime (default TOKEN_TTL)")
	_ = issueCmd.MarkFlagRequired("username")
	cmd.AddCommand(issueCmd)

	return cmd
}

func roleList() string {
	names := make([]string, 0, len(auth.Roles()))
	for _, r := range auth.Roles() {
		names = append(names, string(r))
	}
	return strings.Join(names, ", ")
}

// describe flattens field errors into the message so they reach the
// terminal.
func describe(err error) error {
	var ae *apperr.Error
	if !errors.As(err, &ae) || len(ae.Fields) == 0 {
		return err
	}
	parts := make([]string, 0, len(ae.Fields))
	for _, field := range sortedKeys(ae.Fields) {
		parts = append(parts, field+": "+ae.Fields[field])
	}
	return fmt.Errorf("%s (%s)", ae.Message, strings.Join(parts, "; "))
}

func printUsers(w io.Writer, users []*staff.User) {
	fmt.Fprintf(w, "%-36s %-20s %-30s %s\n", "ID", "USERNAME", "EMAIL", "ROLES")
	for _, u := range users {
		roles := make([]string, 0, len(u.Roles))
		for _, r := range u.Roles {
			roles = append(roles, string(r))
		}
		fmt.Fprintf(w, "%-36s %-20s %-30s %s\n", u.ID, u.Username, u.Email, strings.Join(roles, ","))
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
