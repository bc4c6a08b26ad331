package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agencyhq/agencysite/internal/core/blocks"
)

func (r *runner) blocksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocks [type]",
		Short: "List the block catalogue, or print one block's schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The catalogue is embedded; no backend is needed.
			registry := blocks.Default()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				schema, found := registry.Schema(args[0])
				if !found {
					return fmt.Errorf("unknown block type %q", args[0])
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(schema)
			}

			byCategory := registry.ByCategory()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, cat := range registry.Categories() {
				fmt.Fprintf(w, "%s\n", bold(cat.Label))
				for _, def := range byCategory[cat.ID] {
					fmt.Fprintf(w, "  %s\t%s\t%d fields\n", def.ID, def.Label, len(def.Fields))
				}
			}
			return w.Flush()
		},
	}
	return cmd
}
