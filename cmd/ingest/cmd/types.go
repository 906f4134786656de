package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/reportload/internal/core"
	"github.com/spf13/cobra"
)

type typeListing struct {
	Key        string   `json:"key"`
	Group      string   `json:"group"`
	Label      string   `json:"label"`
	Required   []string `json:"required"`
	UniqueKeys []string `json:"uniqueKeys"`
}

func newTypesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "types",
		Aliases: []string{"list"},
		Short:   "List the registered report and master types",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out []typeListing
			for _, def := range core.All() {
				info := def.Info()
				out = append(out, typeListing{
					Key:        info.Key,
					Group:      info.Group,
					Label:      info.Label,
					Required:   def.RequiredHeaders(),
					UniqueKeys: def.UniqueKeys(),
				})
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tGROUP\tLABEL\tREQUIRED COLUMNS")
			for _, t := range out {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Key, t.Group, t.Label, strings.Join(t.Required, ", "))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
