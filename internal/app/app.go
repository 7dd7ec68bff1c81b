// Package app wires backends and domain services from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rpggio/crmdesk/internal/config"
	"github.com/rpggio/crmdesk/internal/domain/activity"
	"github.com/rpggio/crmdesk/internal/domain/comment"
	"github.com/rpggio/crmdesk/internal/domain/contact"
	"github.com/rpggio/crmdesk/internal/domain/dashboard"
	"github.com/rpggio/crmdesk/internal/domain/deal"
	"github.com/rpggio/crmdesk/internal/domain/task"
	"github.com/rpggio/crmdesk/internal/memstore"
	"github.com/rpggio/crmdesk/internal/memstore/seed"
	"github.com/rpggio/crmdesk/internal/remote"
	"github.com/rpggio/crmdesk/internal/repository"
	"github.com/rpggio/crmdesk/internal/sqlite"
)

// Services groups the domain facades.
type Services struct {
	Contacts   *contact.Service
	Deals      *deal.Service
	Tasks      *task.Service
	Activities *activity.Service
	Comments   *comment.Service
	Dashboard  *dashboard.Service
}

// App owns the backends and the services built on them.
type App struct {
	Services

	mode     string
	backends map[repository.Kind]repository.Backend
	db       *sqlite.DB
	logger   *slog.Logger
}

// New builds an App for cfg.Backend.Mode.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &App{
		mode:     cfg.Backend.Mode,
		backends: make(map[repository.Kind]repository.Backend, len(repository.Kinds)),
		logger:   logger,
	}

	var err error
	switch cfg.Backend.Mode {
	case config.BackendMock:
		err = a.buildMock(cfg.Backend.Mock)
	case config.BackendRemote:
		err = a.buildRemote(cfg.Backend.Remote)
	case config.BackendSQLite:
		err = a.buildSQLite(cfg.Backend.SQLite)
	default:
		err = fmt.Errorf("%w: %q", config.ErrBackendUnknown, cfg.Backend.Mode)
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	a.wireServices()
	logger.Info("backends ready", "mode", a.mode)
	return a, nil
}

// NewWithBackends builds an App over caller-supplied backends, one per kind.
func NewWithBackends(backends map[repository.Kind]repository.Backend, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	for _, kind := range repository.Kinds {
		if backends[kind] == nil {
			return nil, fmt.Errorf("missing backend for kind %q", kind)
		}
	}
	a := &App{
		mode:     "custom",
		backends: backends,
		logger:   logger,
	}
	a.wireServices()
	return a, nil
}

// Mode returns the configured backend mode.
func (a *App) Mode() string { return a.mode }

// Backend returns the backend serving kind.
func (a *App) Backend(kind repository.Kind) repository.Backend {
	return a.backends[kind]
}

// Close releases resources held by the backends.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *App) wireServices() {
	b := a.backends
	a.Contacts = contact.NewService(b[repository.KindContact], a.logger)
	a.Deals = deal.NewService(b[repository.KindDeal], a.logger)
	a.Tasks = task.NewService(b[repository.KindTask], a.logger)
	a.Activities = activity.NewService(b[repository.KindActivity], a.logger)
	a.Comments = comment.NewService(b[repository.KindComment], a.logger)
	a.Dashboard = dashboard.NewService(a.Contacts, a.Deals, a.Activities, a.logger)
}

func (a *App) buildMock(cfg config.MockConfig) error {
	var records map[repository.Kind][]repository.Fields
	if cfg.Seed {
		ds, err := seed.Default()
		if err != nil {
			return err
		}
		records = ds.Records()
	}
	for _, kind := range repository.Kinds {
		a.backends[kind] = memstore.New(kind,
			memstore.WithLatency(cfg.MinLatency, cfg.MaxLatency),
			memstore.WithLogger(a.logger),
			memstore.WithRecords(records[kind]...),
		)
	}
	return nil
}

func (a *App) buildRemote(cfg config.RemoteConfig) error {
	client := remote.NewClient(cfg.BaseURL, cfg.ProjectID, cfg.PublicKey,
		remote.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		remote.WithClientLogger(a.logger),
	)
	for _, kind := range repository.Kinds {
		adapter, err := remote.NewAdapter(client, kind,
			remote.WithPageSize(cfg.PageSize),
			remote.WithLogger(a.logger),
		)
		if err != nil {
			return err
		}
		a.backends[kind] = adapter
	}
	return nil
}

func (a *App) buildSQLite(cfg config.SQLiteConfig) error {
	if err := ensureDBDir(cfg.Path); err != nil {
		return fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.Path)
	if err != nil {
		return err
	}
	a.db = db
	if err := db.RunMigrations(); err != nil {
		return err
	}

	tables := make(map[repository.Kind]*sqlite.Table, len(repository.Kinds))
	for _, kind := range repository.Kinds {
		tables[kind] = sqlite.NewTable(db, kind, sqlite.WithLogger(a.logger))
		a.backends[kind] = tables[kind]
	}

	if cfg.Seed {
		return seedTables(context.Background(), tables, a.logger)
	}
	return nil
}

// seedTables loads the sample dataset when the database holds no contacts.
func seedTables(ctx context.Context, tables map[repository.Kind]*sqlite.Table, logger *slog.Logger) error {
	n, err := tables[repository.KindContact].Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	ds, err := seed.Default()
	if err != nil {
		return err
	}
	records := ds.Records()
	for _, kind := range repository.Kinds {
		for _, fields := range records[kind] {
			if _, err := tables[kind].Create(ctx, fields); err != nil {
				return fmt.Errorf("seeding %s: %w", kind, err)
			}
		}
	}
	logger.Info("seeded database", "contacts", len(records[repository.KindContact]))
	return nil
}

func ensureDBDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
