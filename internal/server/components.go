package server

import (
	"github.com/dmitrijs2005/awaykeeper/internal/logging"
	"github.com/dmitrijs2005/awaykeeper/internal/server/access"
	"github.com/dmitrijs2005/awaykeeper/internal/server/config"
	"github.com/dmitrijs2005/awaykeeper/internal/server/dateparse"
	"github.com/dmitrijs2005/awaykeeper/internal/server/entries"
	"github.com/dmitrijs2005/awaykeeper/internal/server/legacy"
	"github.com/dmitrijs2005/awaykeeper/internal/server/metrics"
	"github.com/dmitrijs2005/awaykeeper/internal/server/platform"
	"github.com/dmitrijs2005/awaykeeper/internal/server/reconcile"
	"github.com/dmitrijs2005/awaykeeper/internal/server/report"
	"github.com/dmitrijs2005/awaykeeper/internal/server/retention"
	"github.com/dmitrijs2005/awaykeeper/internal/server/settings"
	"github.com/dmitrijs2005/awaykeeper/internal/server/shared/db"
	"github.com/dmitrijs2005/awaykeeper/internal/server/tz"
	"github.com/dmitrijs2005/awaykeeper/internal/timex"
)

// Components is the wired service graph shared by the server and the admin
// CLI.
type Components struct {
	Store    db.RepositoryManager
	Clock    timex.Clock
	Platform platform.Client
	Resolver *tz.Resolver
	Guard    *access.Guard
	Engine   *reconcile.Engine
	Entries  *entries.Service
	Settings *settings.Service
	Sweeper  *retention.Sweeper
	Reports  *report.Scheduler
	Importer *legacy.Importer
	Metrics  *metrics.Metrics
}

// NewComponents wires every service over store and p. With inline set,
// entry mutations reconcile the member before returning instead of queueing
// for the background worker.
func NewComponents(cfg *config.Config, store db.RepositoryManager, p platform.Client, clock timex.Clock, logger logging.Logger, inline bool) *Components {
	m := metrics.New()
	resolver := tz.NewResolver(store.Settings(), cfg.FallbackTimezone)
	guard := access.NewGuard(p, store.Settings())

	engine := reconcile.NewEngine(store.Entries(), store.Settings(), p, clock, logger, reconcile.Options{
		CallTimeout:       cfg.ReconcileCallTimeout,
		NicknameMaxLength: cfg.NicknameMaxLength,
		Recorder:          m,
	})

	var notifier entries.Notifier = engine
	if inline {
		notifier = reconcile.Immediate{Engine: engine}
	}

	return &Components{
		Store:    store,
		Clock:    clock,
		Platform: p,
		Resolver: resolver,
		Guard:    guard,
		Engine:   engine,
		Entries:  entries.NewService(store.Entries(), resolver, dateparse.NewParser(clock), guard, notifier, clock, logger),
		Settings: settings.NewService(store.Settings(), guard, engine, logger),
		Sweeper:  retention.NewSweeper(store.Entries(), clock, cfg.RetentionHorizon, logger, m),
		Reports:  report.NewScheduler(store.Entries(), store.Settings(), resolver, p, clock, cfg.ReportHorizon, logger, m),
		Importer: legacy.NewImporter(store, logger),
		Metrics:  m,
	}
}
