// Package cmd implements the holdfast command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/holdfast/holdfast/internal/config"
	"github.com/holdfast/holdfast/internal/di"
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/session"
	"github.com/holdfast/holdfast/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app is the state shared by every subcommand of one invocation
type app struct {
	loadConfig func() (*config.Config, error)
	wire       func(*config.Config, zerolog.Logger) (*di.Container, error)

	cfg       *config.Config
	log       zerolog.Logger
	container *di.Container

	logLevel string
	jsonOut  bool
	refresh  bool
	interval time.Duration
	prev     []string
}

func newApp() *app {
	return &app{
		loadConfig: config.Load,
		wire:       di.Wire,
	}
}

// Execute builds the command tree and runs it
func Execute(ctx context.Context) error {
	a := newApp()
	defer a.close()
	return newRootCmd(a).ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "holdfast",
		Short: "Personal portfolio ledger",
		Long: `Holdfast records buy and sell operations per instrument and broker,
derives positions with a weighted average cost, values them at live prices
and reports how far each instrument is from its target price.

Data lives in $HOLDFAST_DATA_DIR (ledger.db and client_data.db).`,
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); defaults to LOG_LEVEL")
	flags.BoolVar(&a.jsonOut, "json", false, "print JSON instead of tables")
	flags.BoolVar(&a.refresh, "refresh", false, "bypass the price cache")
	flags.DurationVar(&a.interval, "interval", 0, "auto refresh interval reported with valuations (0, 30s, 1m, 2m or 5m)")
	flags.StringSliceVar(&a.prev, "prev", nil, "previously seen prices as SYMBOL:PRICE, used for crossing detection")

	root.AddCommand(
		newDBCmd(a),
		newCatalogCmd(a),
		newRecordCmd(a),
		newDeleteCmd(a),
		newListCmd(a),
		newPositionsCmd(a),
		newTargetCmd(a),
		newRemoveCmd(a),
		newVerifyCmd(a),
		newRebuildCmd(a),
		newValuateCmd(a),
		newAlertsCmd(a),
		newAnalyzeCmd(a),
		newBarsCmd(a),
		newWatchlistCmd(a),
		newBibliographyCmd(a),
	)
	return root
}

func (a *app) open(cmd *cobra.Command, args []string) error {
	if !session.ValidInterval(a.interval) {
		return domain.NewValidationError("refresh_interval", "unsupported refresh interval %s", a.interval)
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	level := a.logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	// stdout carries command output
	a.log = logger.New(logger.Config{Level: level, Pretty: true, Output: os.Stderr})

	a.container, err = a.wire(cfg, a.log)
	if err != nil {
		return fmt.Errorf("open data dir %s: %w", cfg.DataDir, err)
	}
	return nil
}

func (a *app) close() error {
	if a.container == nil {
		return nil
	}
	err := a.container.Close()
	a.container = nil
	return err
}

// context attaches the session of this invocation to the command context
func (a *app) context(cmd *cobra.Command) context.Context {
	sess := session.New(a.cfg.PriceTimeout)
	sess.ForceRefresh = a.refresh
	sess.RefreshInterval = a.interval
	sess.PreviousPrices = session.ParsePrices(strings.Join(a.prev, ","))
	return session.WithContext(cmd.Context(), sess)
}
