package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vedsharma/drivethru/internal/model"
	"github.com/vedsharma/drivethru/resttest"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "View request history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}
			entries, err := store.ListHistory(limit)
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}
			a.printer.HistoryList(entries)
			return nil
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of requests to show")

	showCmd := &cobra.Command{
		Use:   "show <id or index>",
		Short: "Show full details of a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.findHistory(args[0])
			if err != nil {
				return err
			}
			a.printer.EntryDetail(*e)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err == nil {
				err = store.ClearHistory()
			}
			if err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			a.printer.Success("History cleared")
			return nil
		},
	}

	var exportLimit int
	exportCmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export history as a replayable fixture",
		Long: `Export history as a JSON fixture, oldest request first.

The fixture can be loaded into a mock client with resttest.ReadFixture and
Recorder.Load to replay the recorded responses in tests.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exportHistory(args[0], exportLimit)
		},
	}
	exportCmd.Flags().IntVarP(&exportLimit, "limit", "n", 0, "Export only the most recent requests (0 exports all)")

	historyCmd.AddCommand(showCmd, clearCmd, exportCmd)
	return historyCmd
}

// findHistory looks an entry up by 1-based index into the listing, then
// by ID.
func (a *app) findHistory(identifier string) (*model.Entry, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	if index, err := strconv.Atoi(identifier); err == nil && index > 0 {
		entries, err := store.ListHistory(index)
		if err != nil {
			return nil, fmt.Errorf("failed to load history: %w", err)
		}
		if index <= len(entries) {
			return &entries[index-1], nil
		}
	}

	e, err := store.GetHistory(identifier)
	if err != nil {
		return nil, fmt.Errorf("request not found: %w", err)
	}
	return e, nil
}

func (a *app) exportHistory(file string, limit int) error {
	store, err := a.openStore()
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	entries, err := store.ListHistory(limit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	exchanges := make([]resttest.Exchange, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if ex, ok := entries[i].Exchange(); ok {
			exchanges = append(exchanges, ex)
		}
	}

	if err := resttest.WriteFixture(file, exchanges); err != nil {
		return err
	}
	a.printer.Success(fmt.Sprintf("Exported %d requests to %s", len(exchanges), file))
	return nil
}
