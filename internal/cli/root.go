// Package cli implements cmsctl, the operator tool for the agency site.
package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agencyhq/agencysite/config"
	"github.com/agencyhq/agencysite/internal/app"
	"github.com/agencyhq/agencysite/internal/platform/logger"
)

// Opener builds the application for one command run.
type Opener func(ctx context.Context, cfg *config.Config) (*app.App, error)

// OpenApp opens every configured backend, logging warnings and errors only.
func OpenApp(ctx context.Context, cfg *config.Config) (*app.App, error) {
	log, err := logger.New(cfg.Log.Mode, "warn")
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, log)
}

var (
	ok   = color.New(color.FgGreen).SprintFunc()
	warn = color.New(color.FgYellow).SprintFunc()
	bold = color.New(color.Bold).SprintFunc()
)

type runner struct {
	open Opener
	cfg  *config.Config
}

// withApp loads configuration, opens the app and closes it after fn.
func (r *runner) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg := r.cfg
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := r.open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open backends: %w", err)
	}
	defer a.Close()
	return fn(ctx, a)
}

// Root returns the cmsctl command tree. A nil cfg is loaded from the
// environment on each run.
func Root(open Opener, cfg *config.Config) *cobra.Command {
	r := &runner{open: open, cfg: cfg}
	root := &cobra.Command{
		Use:           "cmsctl",
		Short:         "Operate the agency site backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(r.initAdminCmd())
	root.AddCommand(r.migrateCmd())
	root.AddCommand(r.purgeCmd())
	root.AddCommand(r.blocksCmd())
	root.AddCommand(r.settingsCmd())
	return root
}
