package main

import (
	"fmt"
	"time"

	"github.com/rpggio/crmdesk/internal/domain/task"
	"github.com/spf13/cobra"
)

// NewTasksCommand creates the tasks command group.
func NewTasksCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and complete tasks",
	}
	cmd.AddCommand(newTasksListCommand(rootOpts))
	cmd.AddCommand(newTasksDoneCommand(rootOpts))
	return cmd
}

func newTasksListCommand(rootOpts *RootOptions) *cobra.Command {
	var pending bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			tasks, err := s.app.Tasks.List(cmd.Context())
			if err != nil {
				return err
			}
			if pending {
				open := make([]task.Task, 0, len(tasks))
				for _, t := range tasks {
					if !t.Completed {
						open = append(open, t)
					}
				}
				tasks = open
			}

			now := time.Now()
			rows := make([][]string, 0, len(tasks))
			for _, t := range tasks {
				due := ""
				if t.DueDate != nil {
					due = t.DueDate.Format(time.DateOnly)
					if t.Overdue(now) {
						due += " (overdue)"
					}
				}
				done := " "
				if t.Completed {
					done = "x"
				}
				rows = append(rows, []string{itoa(t.ID), done, t.Title, string(t.Priority), due})
			}
			return printer{w: cmd.OutOrStdout(), json: rootOpts.JSON}.table(tasks, []string{"ID", "DONE", "TITLE", "PRIORITY", "DUE"}, rows)
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "hide completed tasks")
	return cmd
}

func newTasksDoneCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle the completed flag of a task",
		Args:  cobra.ExactArgs(1),
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

			t, err := s.app.Tasks.ToggleComplete(cmd.Context(), id)
			if err != nil {
				return err
			}
			if rootOpts.JSON {
				return printer{w: cmd.OutOrStdout()}.value(t)
			}
			state := "open"
			if t.Completed {
				state = "completed"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "task %d %q is %s\n", t.ID, t.Title, state)
			return nil
		},
	}
}
