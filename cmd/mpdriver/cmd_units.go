package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newUnitsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "units",
		Short: "List the registered unit classes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			md := a.v.GetBool("markdown")
			t := newTable(md)
			t.AppendHeader(table.Row{"Class"})
			for _, class := range a.catalog.Classes() {
				t.AppendRow(table.Row{class})
			}
			render(cmd.OutOrStdout(), t, md)
			return nil
		},
	}
	cmd.Flags().Bool("markdown", false, "render the table as Markdown")
	return cmd
}
