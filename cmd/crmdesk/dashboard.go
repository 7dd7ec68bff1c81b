package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewDashboardCommand creates the dashboard command.
func NewDashboardCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show headline numbers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			sum, err := s.app.Dashboard.Summary(cmd.Context())
			if err != nil {
				return err
			}
			p := printer{w: cmd.OutOrStdout(), json: rootOpts.JSON}
			if p.json {
				return p.value(sum)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Contacts:          %d\n", sum.TotalContacts)
			fmt.Fprintf(out, "Deals:             %d (%d won)\n", sum.TotalDeals, sum.WonDeals)
			fmt.Fprintf(out, "Pipeline value:    %s\n", money(sum.TotalValue))
			fmt.Fprintf(out, "Recent activities: %d\n\n", sum.RecentActivities)

			rows := make([][]string, 0, len(sum.Pipeline))
			for _, st := range sum.Pipeline {
				rows = append(rows, []string{st.Label, strconv.Itoa(st.Count)})
			}
			return p.table(sum.Pipeline, []string{"STAGE", "DEALS"}, rows)
		},
	}
}
