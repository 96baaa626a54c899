// Command datafilter loads, inspects, filters, sorts and converts typed
// datasets stored as CSV, JSON, JSON Lines, XML or YAML, and can serve one
// dataset session over HTTP.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/paveg/datafilter/internal/config"
	"github.com/paveg/datafilter/internal/errors"
	"github.com/paveg/datafilter/internal/logging"
	"github.com/paveg/datafilter/internal/monitoring"
	"github.com/paveg/datafilter/internal/session"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		if kind := errors.KindOf(err); kind != errors.KindUnknown {
			fmt.Fprintf(os.Stderr, "Error (%s): %v\n", kind, err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// app carries the state shared by every subcommand once the persistent
// flags have been applied.
type app struct {
	configFile string
	logLevel   string

	cfg       config.Config
	logger    *slog.Logger
	collector *monitoring.MetricsCollector
	session   *session.Session
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "datafilter",
		Short: "Inspect, filter, sort and convert typed datasets",
		Long: `datafilter works on datasets of records stored as CSV, JSON, JSON Lines,
XML or YAML. Values keep their types (null, bool, int, float, text, list
and map) across every format.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.setup(stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "Config file (.json, .yaml or .yml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(
		newShowCommand(a),
		newStatsCommand(a),
		newFilterCommand(a),
		newSortCommand(a),
		newConvertCommand(a),
		newFieldsCommand(a),
		newServeCommand(a),
		newVersionCommand(),
	)
	return root
}

func (a *app) setup(stderr io.Writer) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	logger, err := logging.FromConfig(stderr, cfg)
	if err != nil {
		return err
	}

	collector := monitoring.NewMetricsCollector(cfg.MetricsEnabled)
	sess, err := session.NewFromConfig(cfg, logger, collector)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.collector = collector
	a.session = sess
	return nil
}
