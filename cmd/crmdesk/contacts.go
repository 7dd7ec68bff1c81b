package main

import (
	"fmt"
	"strings"

	"github.com/rpggio/crmdesk/internal/domain/contact"
	"github.com/spf13/cobra"
)

// NewContactsCommand creates the contacts command group.
func NewContactsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "List and edit contacts",
	}
	cmd.AddCommand(newContactsListCommand(rootOpts))
	cmd.AddCommand(newContactsGetCommand(rootOpts))
	cmd.AddCommand(newContactsAddCommand(rootOpts))
	cmd.AddCommand(newContactsRemoveCommand(rootOpts))
	return cmd
}

func printContacts(p printer, contacts []contact.Contact) error {
	rows := make([][]string, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, []string{itoa(c.ID), c.Name, c.Email, c.Company, strings.Join(c.Tags, ",")})
	}
	return p.table(contacts, []string{"ID", "NAME", "EMAIL", "COMPANY", "TAGS"}, rows)
}

func newContactsListCommand(rootOpts *RootOptions) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			var contacts []contact.Contact
			if query != "" {
				contacts, err = s.app.Contacts.Search(cmd.Context(), query)
			} else {
				contacts, err = s.app.Contacts.List(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printContacts(printer{w: cmd.OutOrStdout(), json: rootOpts.JSON}, contacts)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "match name, email or company")
	return cmd
}

func newContactsGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one contact",
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

			c, err := s.app.Contacts.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printer{w: cmd.OutOrStdout(), json: true}.value(c)
		},
	}
}

func newContactsAddCommand(rootOpts *RootOptions) *cobra.Command {
	var req contact.CreateRequest
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a contact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			c, err := s.app.Contacts.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printContacts(printer{w: cmd.OutOrStdout(), json: rootOpts.JSON}, []contact.Contact{*c})
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&req.Company, "company", "", "company")
	cmd.Flags().StringVar(&req.Position, "position", "", "job title")
	cmd.Flags().StringSliceVar(&req.Tags, "tag", nil, "tag (repeatable)")
	return cmd
}

func newContactsRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a contact",
		Args:    cobra.ExactArgs(1),
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

			if _, err := s.app.Contacts.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted contact %d\n", id)
			return nil
		},
	}
}
