package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/pressly/goose/v3"

	"github.com/Spok95/batch-trace/migrations"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

// goose держит настройки в глобальном состоянии
var gooseMu sync.Mutex

// Migrate накатывает встроенные миграции выбранного диалекта.
func Migrate(sqlDB *sql.DB, dialect Dialect, log *slog.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	dir := "postgres"
	if dialect == DialectSQLite {
		dir = "sqlite"
	}
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{log: log})
	if err := goose.SetDialect(string(dialect)); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.Up(sqlDB, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// MigratePostgres открывает отдельное database/sql соединение через pgx/stdlib только на время миграций.
func MigratePostgres(dsn string, log *slog.Logger) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open postgres for migrations: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()
	return Migrate(sqlDB, DialectPostgres, log)
}

type gooseLogger struct{ log *slog.Logger }

func (g gooseLogger) Printf(format string, v ...any) {
	if g.log != nil {
		g.log.Debug(fmt.Sprintf(format, v...), "component", "goose")
	}
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	if g.log != nil {
		g.log.Error(fmt.Sprintf(format, v...), "component", "goose")
	}
}
