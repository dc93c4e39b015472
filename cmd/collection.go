package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vedsharma/drivethru/internal/model"
	"github.com/vedsharma/drivethru/rest"
)

func newCollectionCmd(a *app) *cobra.Command {
	collectionCmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"col"},
		Short:   "Manage request collections",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return fmt.Errorf("failed to load collections: %w", err)
			}
			collections, err := store.ListCollections()
			if err != nil {
				return fmt.Errorf("failed to load collections: %w", err)
			}
			a.printer.CollectionList(collections)
			return nil
		},
	}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err == nil {
				err = store.CreateCollection(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to create collection: %w", err)
			}
			a.printer.Success(fmt.Sprintf("Collection '%s' created", args[0]))
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show requests in a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadCollection(args[0])
			if err != nil {
				return err
			}
			a.printer.CollectionRequests(c)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err == nil {
				err = store.DeleteCollection(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to delete collection: %w", err)
			}
			a.printer.Success(fmt.Sprintf("Collection '%s' deleted", args[0]))
			return nil
		},
	}

	var addHeaders []string
	var addData string
	addCmd := &cobra.Command{
		Use:   "add <collection> <name> <method> <url>",
		Short: "Add a request to a collection",
		Long: `Add a request to a collection.

Example:
  drivethru collection add my-api "Get Users" GET https://api.example.com/users`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, err := rest.ParseMethod(args[2])
			if err != nil {
				return err
			}
			body, err := readBody(addData)
			if err != nil {
				return err
			}
			req := model.SavedRequest{
				Name:    args[1],
				Method:  method.String(),
				URL:     args[3],
				Headers: filterSensitiveHeaders(parseHeaders(addHeaders)),
				Body:    body,
			}

			store, err := a.openStore()
			if err == nil {
				err = store.AddToCollection(args[0], req)
			}
			if err != nil {
				return fmt.Errorf("failed to add request: %w", err)
			}
			a.printer.Success(fmt.Sprintf("Request '%s' added to collection '%s'", args[1], args[0]))
			return nil
		},
	}
	addCmd.Flags().StringArrayVarP(&addHeaders, "header", "H", nil, "Add header")
	addCmd.Flags().StringVarP(&addData, "data", "d", "", "Request body (string or @filename)")

	var strict bool
	runCmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run all requests in a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCollection(cmd.Context(), args[0], strict)
		},
	}
	runCmd.Flags().BoolVar(&strict, "strict", false, "Count statuses rejected by the verb's policy as failures")

	collectionCmd.AddCommand(listCmd, createCmd, showCmd, deleteCmd, addCmd, runCmd)
	return collectionCmd
}

func (a *app) loadCollection(name string) (*model.Collection, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	c, err := store.GetCollection(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	return c, nil
}

func (a *app) runCollection(ctx context.Context, name string, strict bool) error {
	c, err := a.loadCollection(name)
	if err != nil {
		return err
	}
	if len(c.Requests) == 0 {
		return fmt.Errorf("collection '%s' is empty", name)
	}

	client, err := a.restClient(ctx)
	if err != nil {
		return err
	}

	a.printer.Success(fmt.Sprintf("Running %d requests from collection '%s'", len(c.Requests), name))

	failed := 0
	for i, saved := range c.Requests {
		label := saved.Name
		if label == "" {
			label = saved.Method + " " + saved.URL
		}
		a.log.WithField("request", label).Debugf("running %d/%d", i+1, len(c.Requests))

		req, err := saved.Request(a.resolveTarget(saved.URL))
		if err != nil {
			a.printer.Error(fmt.Sprintf("[%d/%d] %s: %v", i+1, len(c.Requests), label, err))
			failed++
			continue
		}
		for k, v := range req.Headers {
			if v == redacted {
				delete(req.Headers, k)
			}
		}

		start := time.Now()
		resp, err := client.Execute(ctx, req)
		if err != nil {
			a.printer.Error(fmt.Sprintf("[%d/%d] %s: request failed: %v", i+1, len(c.Requests), label, err))
			failed++
			continue
		}

		a.printer.Success(fmt.Sprintf("[%d/%d] %s", i+1, len(c.Requests), label))
		a.printer.Response(resp, time.Since(start), a.verbose)

		if strict {
			ok, err := rest.Outcome(req.Method, resp)
			if err != nil {
				a.printer.Error(err.Error())
				failed++
				continue
			}
			a.printer.Outcome(req.Method, ok)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d requests in collection '%s' failed", failed, len(c.Requests), name)
	}
	a.printer.Success(fmt.Sprintf("Completed running collection '%s'", name))
	return nil
}
