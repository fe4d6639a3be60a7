// Package app собирает компоненты поверх выбранного хранилища.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/batch-trace/internal/audit"
	"github.com/Spok95/batch-trace/internal/config"
	"github.com/Spok95/batch-trace/internal/domain/finished"
	"github.com/Spok95/batch-trace/internal/domain/inventory"
	"github.com/Spok95/batch-trace/internal/domain/lineage"
	"github.com/Spok95/batch-trace/internal/domain/production"
	"github.com/Spok95/batch-trace/internal/domain/recall"
	"github.com/Spok95/batch-trace/internal/infra/db"
)

type App struct {
	Lots    *inventory.Ledger
	Runs    *production.Registry
	Units   *finished.Registry
	Tracer  *lineage.Tracer
	Recall  *recall.Service
	Auditor *audit.Auditor

	pool   *pgxpool.Pool
	sqlite *sql.DB
}

// Open подключает хранилище из конфига, накатывает миграции и собирает компоненты.
// Закрывать через Close.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		if err := db.MigratePostgres(cfg.Postgres.DSN, log); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		pool, err := db.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		log.Info("storage ready", "driver", cfg.Storage.Driver)
		return NewPostgres(pool, log), nil

	case config.DriverSQLite:
		sdb, err := db.OpenSQLite(ctx, cfg.SQLite.Path, cfg.BusyTimeout())
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(sdb, db.DialectSQLite, log); err != nil {
			_ = sdb.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		log.Info("storage ready", "driver", cfg.Storage.Driver, "path", cfg.SQLite.Path)
		return NewSQLite(sdb, log), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// NewPostgres собирает компоненты поверх уже мигрированного пула. Пул переходит во владение App.
func NewPostgres(pool *pgxpool.Pool, log *slog.Logger) *App {
	a := &App{
		Lots:    inventory.NewLedger(inventory.NewRepo(pool), log),
		Runs:    production.NewRegistry(production.NewRepo(pool), log),
		Units:   finished.NewRegistry(finished.NewRepo(pool), log),
		Tracer:  lineage.NewTracer(lineage.NewRepo(pool)),
		Auditor: audit.New(audit.NewRepo(pool), log),
		pool:    pool,
	}
	a.Recall = recall.NewService(a.Tracer, a.Units, log)
	return a
}

// NewSQLite — то же для встроенной базы.
func NewSQLite(sdb *sql.DB, log *slog.Logger) *App {
	a := &App{
		Lots:    inventory.NewLedger(inventory.NewSQLiteRepo(sdb), log),
		Runs:    production.NewRegistry(production.NewSQLiteRepo(sdb), log),
		Units:   finished.NewRegistry(finished.NewSQLiteRepo(sdb), log),
		Tracer:  lineage.NewTracer(lineage.NewSQLiteRepo(sdb)),
		Auditor: audit.New(audit.NewSQLiteRepo(sdb), log),
		sqlite:  sdb,
	}
	a.Recall = recall.NewService(a.Tracer, a.Units, log)
	return a
}

func (a *App) Ping(ctx context.Context) error {
	if a.pool != nil {
		return a.pool.Ping(ctx)
	}
	return a.sqlite.PingContext(ctx)
}

func (a *App) Close() {
	a.Auditor.Stop()
	if a.pool != nil {
		a.pool.Close()
	}
	if a.sqlite != nil {
		_ = a.sqlite.Close()
	}
}
