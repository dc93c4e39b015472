package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vedsharma/drivethru/rest"
)

func newAliasCmd(a *app) *cobra.Command {
	aliasCmd := &cobra.Command{
		Use:     "alias",
		Aliases: []string{"a"},
		Short:   "Manage base URL aliases",
		Long: `Manage aliases for frequently used base URLs.

An alias stands in for a base URL, so 'starwars/people/1' can be used
instead of 'https://www.swapi.tech/api/people/1'.`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return fmt.Errorf("failed to load aliases: %w", err)
			}
			aliases, err := store.ListAliases()
			if err != nil {
				return fmt.Errorf("failed to load aliases: %w", err)
			}
			a.printer.AliasList(aliases)
			return nil
		},
	}

	createCmd := &cobra.Command{
		Use:   "create <name> <url>",
		Short: "Create or replace an alias",
		Long: `Create an alias for a base URL.

Example:
  drivethru alias create starwars https://www.swapi.tech/api
  drivethru get starwars/people/1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, url := args[0], args[1]
			if err := (rest.Config{DefaultBaseURL: url}).Validate(); err != nil {
				return err
			}
			store, err := a.openStore()
			if err == nil {
				err = store.SetAlias(name, url)
			}
			if err != nil {
				return fmt.Errorf("failed to create alias: %w", err)
			}
			a.printer.Success(fmt.Sprintf("Alias '%s' created for %s", name, url))
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show an alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return fmt.Errorf("failed to load alias: %w", err)
			}
			url, ok, err := store.GetAlias(args[0])
			if err != nil {
				return fmt.Errorf("failed to load alias: %w", err)
			}
			if !ok {
				return fmt.Errorf("alias '%s' not found", args[0])
			}
			a.printer.Alias(args[0], url)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err == nil {
				err = store.DeleteAlias(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to delete alias: %w", err)
			}
			a.printer.Success(fmt.Sprintf("Alias '%s' deleted", args[0]))
			return nil
		},
	}

	aliasCmd.AddCommand(listCmd, createCmd, showCmd, deleteCmd)
	return aliasCmd
}
