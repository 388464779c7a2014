// Package cli is the awayctl admin command tree. Every command opens the
// configured store, runs one operation and exits; entry changes reconcile
// the affected member before the command returns.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/awaykeeper/internal/logging"
	"github.com/dmitrijs2005/awaykeeper/internal/server"
	"github.com/dmitrijs2005/awaykeeper/internal/server/config"
	"github.com/dmitrijs2005/awaykeeper/internal/server/platform"
	"github.com/dmitrijs2005/awaykeeper/internal/server/shared/db"
	"github.com/dmitrijs2005/awaykeeper/internal/timex"
	"github.com/spf13/cobra"
)

// Opener builds the service graph for one command run.
type Opener func(ctx context.Context, cfg *config.Config) (*server.Components, error)

// DefaultOpener connects to the configured database, migrates it and talks
// to the real platform.
func DefaultOpener(ctx context.Context, cfg *config.Config) (*server.Components, error) {
	if cfg.DiscordToken == "" {
		return nil, errors.New("discord token is not configured")
	}

	store, err := db.Open(cfg.DatabaseDSN, timex.SystemClock{})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := store.RunMigrations(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	p, err := platform.NewDiscord(cfg.DiscordToken)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("platform init error: %w", err)
	}

	logger := logging.New(os.Stderr, logging.FormatText, cfg.LogLevel)
	return server.NewComponents(cfg, store, p, timex.SystemClock{}, logger, true), nil
}

type app struct {
	open Opener

	configPath string
	dsn        string
	guild      string
	actor      string

	comps *server.Components
}

// NewRootCommand returns the awayctl command tree.
func NewRootCommand(open Opener) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:   "awayctl",
		Short: "Administer AwayKeeper entries and guild settings",
		Long: `awayctl manages away entries, guild settings and leadership grants
directly against the AwayKeeper store, and can run reconciliation,
retention and reports on demand.`,
		SilenceUsage: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.comps == nil {
				return nil
			}
			return a.comps.Store.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "JSON config file")
	pf.StringVar(&a.dsn, "dsn", "", "database DSN (overrides config)")
	pf.StringVarP(&a.guild, "guild", "g", "", "guild id")
	pf.StringVarP(&a.actor, "actor", "a", "", "user id the command acts as")

	root.AddCommand(
		a.entryCommand(),
		a.syncCommand(),
		a.sweepCommand(),
		a.reportCommand(),
		a.tzCommand(),
		a.settingsCommand(),
		a.leadershipCommand(),
		a.importCommand(),
	)
	return root
}

// Execute runs awayctl with os.Args and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand(DefaultOpener).Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) config() *config.Config {
	var args []string
	if a.configPath != "" {
		args = []string{"-c", a.configPath}
	}
	cfg := config.Load(args, os.Getenv)
	if a.dsn != "" {
		cfg.DatabaseDSN = a.dsn
	}
	return cfg
}

func (a *app) components(ctx context.Context) (*server.Components, error) {
	if a.comps != nil {
		return a.comps, nil
	}
	c, err := a.open(ctx, a.config())
	if err != nil {
		return nil, err
	}
	a.comps = c
	return c, nil
}

func (a *app) requireGuild() error {
	if a.guild == "" {
		return errors.New("--guild is required")
	}
	return nil
}

func (a *app) requireActor() error {
	if err := a.requireGuild(); err != nil {
		return err
	}
	if a.actor == "" {
		return errors.New("--actor is required")
	}
	return nil
}

// run resolves the components and calls fn with them.
func (a *app) run(check func() error, fn func(ctx context.Context, c *server.Components, out io.Writer) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if check != nil {
			if err := check(); err != nil {
				return err
			}
		}
		c, err := a.components(cmd.Context())
		if err != nil {
			return err
		}
		return fn(cmd.Context(), c, cmd.OutOrStdout())
	}
}
