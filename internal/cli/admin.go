package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agencyhq/agencysite/internal/app"
	"github.com/agencyhq/agencysite/internal/core/content"
)

func (r *runner) initAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-admin",
		Short: "Create the admin account, or reset its password",
		Long: `Creates the admin user from --email/--password, falling back to
ADMIN_EMAIL, ADMIN_PASSWORD and ADMIN_NAME. An existing user keeps its id
and gets the new password.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			name, _ := cmd.Flags().GetString("name")

			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if email == "" {
					email = a.Config.Admin.Email
				}
				if password == "" {
					password = a.Config.Admin.Password
				}
				if name == "" {
					name = a.Config.Admin.Name
				}
				if email == "" || password == "" {
					return errors.New("email and password are required (flags or ADMIN_EMAIL/ADMIN_PASSWORD)")
				}

				user, created, err := a.Auth.EnsureAdmin(ctx, email, password, name)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if created {
					fmt.Fprintf(out, "%s created admin %s (%s)\n", ok("✓"), user.Email, user.ID)
				} else {
					fmt.Fprintf(out, "%s reset password of admin %s\n", ok("✓"), user.Email)
				}
				return nil
			})
		},
	}
	cmd.Flags().String("email", "", "admin email")
	cmd.Flags().String("password", "", "admin password (at least 8 characters)")
	cmd.Flags().String("name", "", "display name")
	return cmd
}

func (r *runner) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if a.Postgres == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s document store driver is %q; nothing to migrate\n",
						warn("!"), a.Config.DocStore.Driver)
					return nil
				}
				if err := a.Postgres.Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s schema up to date\n", ok("✓"))
				return nil
			})
		},
	}
}

func (r *runner) purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-orphans [kind...]",
		Short: "Remove attributes of deleted entities and expired sessions",
		Long: `Removes overlay attributes whose entity no longer exists, for the
given kinds or all of them, then deletes expired sessions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := content.Kinds()
			if len(args) > 0 {
				kinds = kinds[:0:0]
				for _, arg := range args {
					kind, err := content.ParseKind(arg)
					if err != nil {
						return err
					}
					kinds = append(kinds, kind)
				}
			}

			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				for _, kind := range kinds {
					n, err := a.Content.PurgeOrphans(ctx, kind)
					if err != nil {
						return fmt.Errorf("%s: %w", kind, err)
					}
					fmt.Fprintf(out, "%-14s %d orphaned\n", kind, n)
				}
				n, err := a.Auth.PurgeExpiredSessions(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-14s %d expired\n", "sessions", n)
				return nil
			})
		},
	}
}
