// Package cli implements the tattr command line.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/metorial/tattr/internal/catalog"
	"github.com/metorial/tattr/internal/config"
	"github.com/metorial/tattr/internal/logger"
)

type app struct {
	cfgFile    string
	uri        string
	server     string
	logLevel   string
	outputJSON bool

	cfg *config.Config
}

// NewRootCmd builds the tattr command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "tattr",
		Short: "Tag and attribute catalog for hosts",
		Long: `tattr keeps a catalog of hosts, the tags they carry and their attribute values.

Commands work on the database named by --uri (sqlite://path or postgres://...),
or on a running tattrd when --server is given.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "Config file (default: tattr.yaml in ., $HOME/.tattr or /etc/tattr)")
	flags.StringVar(&a.uri, "uri", "", "Database URI (overrides database.uri)")
	flags.StringVar(&a.server, "server", "", "tattrd HTTP API URL (overrides client.server)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.BoolVarP(&a.outputJSON, "json", "j", false, "Output in JSON format")

	root.AddCommand(
		newInitCmd(a),
		newHealthCmd(a),
		newHostCmd(a),
		newTagCmd(a),
		newAttrCmd(a),
		newQueryCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.uri != "" {
		cfg.Database.URI = a.uri
	}
	if a.server != "" {
		cfg.Client.Server = a.server
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	if err := logger.Initialize(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.cfg = cfg
	return nil
}

// open returns the backend selected by the configuration.
func (a *app) open(ctx context.Context) (Backend, error) {
	if a.cfg.Client.Server != "" {
		logger.Debugf("Using tattrd at %s", a.cfg.Client.Server)
		return NewClient(a.cfg.Client.Server, a.cfg.Client.Timeout), nil
	}

	c, err := catalog.Open(ctx, a.cfg.Database.URI,
		catalog.WithTimeout(a.cfg.Database.Timeout),
		catalog.WithMaxOpenConns(a.cfg.Database.MaxOpenConns),
	)
	if err != nil {
		return nil, err
	}
	return newLocalBackend(c), nil
}

// run opens the backend for the duration of fn.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, b Backend) error) error {
	ctx := cmd.Context()
	b, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warnf("Error closing backend: %v", err)
		}
		logger.Sync()
	}()
	return fn(ctx, b)
}

// print writes data as JSON when --json is set and through table otherwise.
func (a *app) print(cmd *cobra.Command, data interface{}, table func(w io.Writer) error) error {
	if a.outputJSON {
		return FormatJSON(cmd.OutOrStdout(), data)
	}
	return table(cmd.OutOrStdout())
}

// eachArg applies fn to every argument, stopping at the first error.
func eachArg(ctx context.Context, args []string, fn func(ctx context.Context, name string) error) error {
	for _, arg := range args {
		if err := fn(ctx, arg); err != nil {
			return err
		}
	}
	return nil
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the catalog tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, b Backend) error {
				local, ok := b.(*localBackend)
				if !ok {
					return fmt.Errorf("init needs direct database access, drop --server")
				}
				if err := local.Bootstrap(ctx); err != nil {
					return err
				}
				logger.Infof("Initialized %s catalog", local.c.Driver())
				return nil
			})
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the catalog is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, b Backend) error {
				if err := b.Ping(ctx); err != nil {
					return err
				}
				data := map[string]string{"status": "healthy"}
				return a.print(cmd, data, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, "Status: healthy")
					return err
				})
			})
		},
	}
}

func newQueryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [--] TOKEN...",
		Short: "List hosts matching a tag expression",
		Long: `Evaluate a tag expression left to right and print the matching hostnames.

  TAG    intersect with hosts carrying TAG (the first bare TAG is the base)
  +TAG   add hosts carrying TAG
  -TAG   remove hosts carrying TAG

Without tokens every host matches; when the first token starts with + or -
evaluation starts from every host. Put -- before a leading -TAG.`,
		Example: `  tattr query web +db -staging
  tattr query -- -staging`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, b Backend) error {
				hosts, err := b.Query(ctx, args)
				if err != nil {
					return err
				}
				return a.print(cmd, hosts, func(w io.Writer) error {
					return FormatNames(w, hosts)
				})
			})
		},
	}
	// web -staging parses as two tokens once the first one is seen
	cmd.Flags().SetInterspersed(false)
	return cmd
}
