// Package server wires storage, the platform client and the services, and
// runs the background workers: periodic reconciliation, the notification
// queue, retention, daily reports and the metrics endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/awaykeeper/internal/logging"
	"github.com/dmitrijs2005/awaykeeper/internal/server/config"
	"github.com/dmitrijs2005/awaykeeper/internal/server/platform"
	"github.com/dmitrijs2005/awaykeeper/internal/server/scheduler"
	"github.com/dmitrijs2005/awaykeeper/internal/server/shared/db"
	"github.com/dmitrijs2005/awaykeeper/internal/timex"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config *config.Config
	logger logging.Logger
	*Components
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, logging.FormatJSON, c.LogLevel)

	if c.DiscordToken == "" {
		return nil, errors.New("discord token is not configured")
	}

	store, err := db.Open(c.DatabaseDSN, timex.SystemClock{})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	p, err := platform.NewDiscord(c.DiscordToken)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("platform init error: %w", err)
	}

	return newApp(c, store, p, timex.SystemClock{}, logger), nil
}

func newApp(c *config.Config, store db.RepositoryManager, p platform.Client, clock timex.Clock, logger logging.Logger) *App {
	return &App{
		config:     c,
		logger:     logger,
		Components: NewComponents(c, store, p, clock, logger, false),
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) jobs() []scheduler.Job {
	return []scheduler.Job{
		{Name: "reconcile", Interval: app.config.ReconcileInterval, Run: func(ctx context.Context) error {
			app.Engine.ReconcileAll(ctx)
			return nil
		}},
		{Name: "retention", Interval: app.config.RetentionInterval, Run: func(ctx context.Context) error {
			_, err := app.Sweeper.Sweep(ctx)
			return err
		}},
		{Name: "report", Interval: app.config.ReportCheckInterval, Run: app.Reports.Check},
	}
}

// Run migrates the store and blocks until ctx is cancelled or a signal
// arrives, then waits for in-flight work.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	defer func() {
		if err := app.Store.Close(); err != nil {
			app.logger.Error(context.Background(), "db close error", "error", err)
		}
	}()

	if err := app.Store.RunMigrations(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.Engine.Run(gctx) })
	g.Go(func() error { return scheduler.New(app.logger, app.jobs()...).Run(gctx) })
	if app.config.MetricsAddr != "" {
		g.Go(func() error { return app.Metrics.Serve(gctx, app.config.MetricsAddr, app.logger) })
	}

	err := g.Wait()
	app.logger.Info(context.Background(), "app stopped")
	return err
}
