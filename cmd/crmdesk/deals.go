package main

import (
	"fmt"
	"strconv"

	"github.com/rpggio/crmdesk/internal/domain/deal"
	"github.com/spf13/cobra"
)

// NewDealsCommand creates the deals command group.
func NewDealsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deals",
		Short: "Inspect the pipeline and move deals",
	}
	cmd.AddCommand(newDealsPipelineCommand(rootOpts))
	cmd.AddCommand(newDealsMoveCommand(rootOpts))
	return cmd
}

func newDealsPipelineCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pipeline",
		Short: "Deal count and value per stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			stages, err := s.app.Deals.Pipeline(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(stages))
			for _, st := range stages {
				rows = append(rows, []string{st.Label, strconv.Itoa(st.Count), money(st.Value)})
			}
			return printer{w: cmd.OutOrStdout(), json: rootOpts.JSON}.table(stages, []string{"STAGE", "DEALS", "VALUE"}, rows)
		},
	}
}

func newDealsMoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <stage>",
		Short: "Move a deal to another stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := rootOpts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			d, err := s.app.Deals.MoveToStage(cmd.Context(), id, deal.Stage(args[1]))
			if err != nil {
				return err
			}
			if rootOpts.JSON {
				return printer{w: cmd.OutOrStdout()}.value(d)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deal %d %q is now %s\n", d.ID, d.Title, d.Stage.Label())
			return nil
		},
	}
}
