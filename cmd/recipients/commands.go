package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	recipientStore "contactform/internal/adapters/storage/recipient"
	"contactform/internal/domain/recipient"
)

// opener connects to the directory; the returned func closes it.
type opener func(ctx context.Context) (recipientStore.Store, func(), error)

// newRootCmd builds the CLI. Each subcommand opens the directory itself so
// that --help never touches the database.
func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:          "recipients",
		Short:        "Manage which addresses receive enquiries for each topic",
		SilenceUsage: true,
	}

	withStore := func(run func(cmd *cobra.Command, store recipientStore.Store, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := open(cmd.Context())
			if err != nil {
				return fmt.Errorf("open directory: %w", err)
			}
			defer closeFn()
			return run(cmd, store, args)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Create the directory schema if it does not exist",
			Args:  cobra.NoArgs,
			RunE: withStore(func(cmd *cobra.Command, _ recipientStore.Store, _ []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), "directory ready")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "list",
			Short: "List every topic and its recipients",
			Args:  cobra.NoArgs,
			RunE: withStore(func(cmd *cobra.Command, store recipientStore.Store, _ []string) error {
				records, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, r := range records {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.Topic, strings.Join(r.Addresses(), ", "))
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "get <topic>",
			Short: "Show the recipients for one topic",
			Args:  cobra.ExactArgs(1),
			RunE: withStore(func(cmd *cobra.Command, store recipientStore.Store, args []string) error {
				r, err := store.Lookup(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, addr := range r.Addresses() {
					fmt.Fprintln(cmd.OutOrStdout(), addr)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "set <topic> <email>...",
			Short: "Replace the recipients for a topic",
			Long:  "Replace the recipients for a topic. Arguments may themselves be comma-separated lists.",
			Args:  cobra.MinimumNArgs(2),
			RunE: withStore(func(cmd *cobra.Command, store recipientStore.Store, args []string) error {
				var emails []string
				for _, a := range args[1:] {
					emails = append(emails, strings.Split(a, recipient.Delimiter)...)
				}
				r := recipient.NewRecord(args[0], emails)
				if err := store.Put(cmd.Context(), r); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.Topic, strings.Join(r.Addresses(), ", "))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "delete <topic>",
			Short: "Remove a topic from the directory",
			Args:  cobra.ExactArgs(1),
			RunE: withStore(func(cmd *cobra.Command, store recipientStore.Store, args []string) error {
				err := store.Delete(cmd.Context(), args[0])
				if errors.Is(err, recipient.ErrNotFound) {
					return fmt.Errorf("topic %q is not in the directory", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			}),
		},
	)
	return root
}
