// Package cmd implements the drivethru command line.
package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vedsharma/drivethru/internal/config"
	"github.com/vedsharma/drivethru/internal/format"
	"github.com/vedsharma/drivethru/internal/storage"
	"github.com/vedsharma/drivethru/rest"
)

// app is the state shared by every command of one invocation.
type app struct {
	log     *logrus.Logger
	printer *format.Printer

	configPath string
	baseURL    string
	timeout    time.Duration
	verbose    bool

	cfg    *config.Config
	store  *storage.Store
	client *rest.Client
}

func newApp(out, errOut io.Writer) *app {
	log := logrus.New()
	log.SetOutput(errOut)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return &app{log: log, printer: format.New(out)}
}

// setup loads the configuration and applies flag overrides.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL = a.baseURL
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = a.timeout
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.log.SetLevel(cfg.Level())
	if a.verbose {
		a.log.SetLevel(logrus.DebugLevel)
	}
	a.cfg = cfg
	return nil
}

func (a *app) openStore() (*storage.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	s, err := storage.Open(dir)
	if err != nil {
		return nil, err
	}
	a.store = s
	return s, nil
}

func (a *app) restClient(ctx context.Context) (*rest.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	c, err := a.cfg.NewClient(ctx, a.log)
	if err != nil {
		return nil, err
	}
	a.client = c
	return c, nil
}

func (a *app) close() {
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.log.WithError(err).Debug("failed to close client")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.WithError(err).Debug("failed to close store")
		}
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "drivethru",
		Short: "A CLI tool for making REST requests",
		Long: `drivethru is a command-line REST client.

Send requests, check them against each verb's status policy, track history,
export history as replayable fixtures and organize requests into collections.

Examples:
  drivethru get https://api.example.com/users
  drivethru post https://api.example.com/users -d '{"name": "John"}'
  drivethru put users/1 -d @user.json --strict --base-url https://api.example.com
  drivethru raw https://api.example.com/login -X POST --cookie session=abc
  drivethru history export fixtures.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Show response headers and debug logs")
	flags.StringVar(&a.configPath, "config", "", "Config file (default ~/.drivethru/config.yaml)")
	flags.StringVar(&a.baseURL, "base-url", "", "Base URL for relative paths")
	flags.DurationVar(&a.timeout, "timeout", 0, "Request timeout")

	for _, m := range rest.Methods {
		root.AddCommand(newRequestCmd(a, m))
	}
	root.AddCommand(
		newRawCmd(a),
		newHistoryCmd(a),
		newCollectionCmd(a),
		newAliasCmd(a),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	a := newApp(os.Stdout, os.Stderr)
	err := newRootCmd(a).ExecuteContext(context.Background())
	a.close()
	if err != nil {
		format.New(os.Stderr).Error(err.Error())
		os.Exit(1)
	}
}
