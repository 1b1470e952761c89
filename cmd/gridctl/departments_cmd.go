package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDepartmentsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "departments",
		Short: "List departments and work codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, client, _, err := setup(root)
			if err != nil {
				return err
			}
			depts, err := client.Departments(cmd.Context())
			if err != nil {
				return err
			}
			codes, err := client.WorkCodes(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDEPARTMENT\tPARENT\tCATEGORY")
			for _, d := range depts {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", d.ID, d.Name, optional(d.ParentID), d.Tier())
			}
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "ID\tCODE\tLABEL\tSTD\tNIGHT")
			for _, wc := range codes {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%g\t%g\n", wc.ID, wc.Code, wc.Label, wc.HoursStandard, wc.HoursNight)
			}
			return tw.Flush()
		},
	}
}

func optional(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
