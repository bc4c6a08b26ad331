package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agencyhq/agencysite/internal/app"
)

func (r *runner) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and write site settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [key]",
		Short: "Print one setting, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					value := a.Settings.Get(ctx, args[0], nil)
					if value == nil {
						return fmt.Errorf("setting %q is not set", args[0])
					}
					fmt.Fprintln(out, display(value))
					return nil
				}

				all := a.Settings.GetAll(ctx)
				keys := make([]string, 0, len(all))
				for k := range all {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(out, "%s = %s\n", bold(k), display(all[k]))
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a setting; JSON objects and arrays are decoded, anything else is stored as text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value any = args[1]
			if raw := strings.TrimSpace(args[1]); strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
				if err := json.Unmarshal([]byte(raw), &value); err != nil {
					return fmt.Errorf("invalid JSON value: %w", err)
				}
			}

			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Settings.Set(ctx, args[0], value); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s saved\n", ok("✓"), args[0])
				return nil
			})
		},
	})
	return cmd
}

func display(v any) string {
	if s, isString := v.(string); isString {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
