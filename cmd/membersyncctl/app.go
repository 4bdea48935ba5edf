package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/membersync/pkg/audit"
	"github.com/doodlesbykumbi/membersync/pkg/batch"
	"github.com/doodlesbykumbi/membersync/pkg/config"
	"github.com/doodlesbykumbi/membersync/pkg/crm"
	"github.com/doodlesbykumbi/membersync/pkg/db"
	"github.com/doodlesbykumbi/membersync/pkg/directory"
	"github.com/doodlesbykumbi/membersync/pkg/effect"
	"github.com/doodlesbykumbi/membersync/pkg/membership"
	"github.com/doodlesbykumbi/membersync/pkg/metrics"
	"github.com/doodlesbykumbi/membersync/pkg/reconcile"
	"github.com/doodlesbykumbi/membersync/pkg/rules"
	"github.com/doodlesbykumbi/membersync/pkg/server"
	gormstore "github.com/doodlesbykumbi/membersync/pkg/store/gorm"
)

// app wires the sync components over one database connection.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	db          *gorm.DB
	registry    *prometheus.Registry
	trail       *audit.Trail
	rules       *rules.Manager
	engine      *reconcile.Engine
	aggregator  *membership.Aggregator
	coordinator *batch.Coordinator
	hooks       *reconcile.Hooks
	directory   directory.Directory
}

func newApp() (*app, error) {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	database, err := db.Connect(db.Config{})
	if err != nil {
		return nil, err
	}

	auditStore, err := audit.NewStore(db.AuditURL())
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	auditLogger := audit.NewLogger()
	auditLogger.SetWriter(os.Stderr)
	trail := audit.NewTrail(auditLogger, auditStore, logger)
	trail.SetEnabled(cfg.AuditEnabled)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	rulesStore := gormstore.NewRulesStore(database)
	client := crm.NewMirrorClient(database)
	dir := directory.NewGormDirectory(database)

	applier := effect.New(dir, cfg.EffectOptions(), logger, trail, m)
	engine := reconcile.NewEngine(cfg.SyncMethod, rulesStore, applier, logger)
	aggregator := membership.New(client, rulesStore)
	coordinator := batch.NewCoordinator(client, dir, aggregator, engine, gormstore.NewCursorStore(database), batch.Options{
		CursorKey: cfg.CursorKey,
		Logger:    logger,
		Recorders: []batch.Recorder{trail, m},
	})

	return &app{
		cfg:         cfg,
		logger:      logger,
		db:          database,
		registry:    registry,
		trail:       trail,
		rules:       rules.NewManager(rulesStore, logger, trail, m),
		engine:      engine,
		aggregator:  aggregator,
		coordinator: coordinator,
		hooks:       reconcile.NewHooks(engine, aggregator, dir, reconcile.NewSnapshots(cfg.SnapshotDuration()), logger),
		directory:   dir,
	}, nil
}

func (a *app) components() server.Components {
	return server.Components{
		Config:      a.cfg,
		Rules:       a.rules,
		Coordinator: a.coordinator,
		Engine:      a.engine,
		Aggregator:  a.aggregator,
		Hooks:       a.hooks,
		Directory:   a.directory,
		Gatherer:    a.registry,
	}
}

func (a *app) Close() {
	if err := a.trail.Close(); err != nil {
		a.logger.Warn("failed to close audit store", "error", err)
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// withApp runs fn against a fully wired app and exits on error.
func withApp(fn func(a *app) error) {
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer a.Close()

	if err := fn(a); err != nil {
		fmt.Fprintln(os.Stderr, err)
		a.Close()
		os.Exit(1)
	}
}
