package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newDescribeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Show the units and settings of a driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.describe(cmd)
		},
	}
	addDriverFlags(cmd.Flags())
	cmd.Flags().Bool("markdown", false, "render tables as Markdown")
	return cmd
}

func (a *app) describe(cmd *cobra.Command) error {
	d, err := a.openDriver()
	if err != nil {
		return err
	}
	md := a.v.GetBool("markdown")
	out := cmd.OutOrStdout()

	t := newTable(md)
	t.AppendHeader(table.Row{"#", "Name", "Class", "Properties", "Next"})
	for i, u := range d.Units() {
		t.AppendRow(table.Row{i, u.Name, u.Class, u.Locator.String(), strings.Join(u.Next, ", ")})
	}
	render(out, t, md)

	s := d.Settings()
	t = newTable(md)
	t.AppendHeader(table.Row{"Setting", "Value"})
	t.AppendRows([]table.Row{
		{"driver", d.Locator().String()},
		{"async", s.Async},
		{"defer errors", s.DeferErrors},
		{"return string", s.ReturnString},
	})
	if s.ErrorClass != "" {
		t.AppendRows([]table.Row{
			{"error handler", fmt.Sprintf("%s (%s/%s)", s.ErrorClass, s.ErrorKey, s.ErrorType)},
			{"error location", s.ErrorLocation},
			{"error records", fmt.Sprintf("%s (max %d)", s.ErrorContextLocation, s.ErrorContextLimit)},
		})
	}
	render(out, t, md)
	return nil
}
