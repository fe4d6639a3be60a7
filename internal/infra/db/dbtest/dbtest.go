// Package dbtest поднимает мигрированные базы для тестов репозиториев.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/batch-trace/internal/infra/db"
)

// PostgresEnv — DSN тестового Postgres. Без него postgres-варианты тестов пропускаются.
const PostgresEnv = "TRACE_TEST_POSTGRES_DSN"

// Backend — одна из баз, на которой гоняются контрактные тесты. Заполнено ровно одно поле.
type Backend struct {
	Name   string
	SQLite *sql.DB
	Pool   *pgxpool.Pool
}

// Each запускает fn как подтест на каждой доступной базе.
func Each(t *testing.T, fn func(t *testing.T, b Backend)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) {
		fn(t, Backend{Name: "sqlite", SQLite: SQLite(t)})
	})
	t.Run("postgres", func(t *testing.T) {
		fn(t, Backend{Name: "postgres", Pool: Postgres(t)})
	})
}

// SQLite — свежая база во временном каталоге теста.
func SQLite(t testing.TB) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.db")
	sdb, err := db.OpenSQLite(context.Background(), path, 10*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sdb.Close() })
	require.NoError(t, db.Migrate(sdb, db.DialectSQLite, nil))
	return sdb
}

// Postgres создаёт отдельную схему на тест, чтобы пакеты могли идти параллельно.
func Postgres(t testing.TB) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(PostgresEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresEnv)
	}
	ctx := context.Background()

	admin, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	schema := fmt.Sprintf("trace_test_%d", time.Now().UnixNano())
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema

	sqlDB := stdlib.OpenDB(*cfg.ConnConfig.Copy())
	require.NoError(t, db.Migrate(sqlDB, db.DialectPostgres, nil))
	_ = sqlDB.Close()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}
