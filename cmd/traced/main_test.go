package main

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/Spok95/batch-trace/internal/config"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func sqliteConfig(t *testing.T) config.Config {
	t.Helper()
	var cfg config.Config
	cfg.Storage.Driver = config.DriverSQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "trace.db")
	cfg.SQLite.BusyTimeoutMS = 1000
	cfg.HTTP.Addr = "127.0.0.1:0"
	return cfg
}

func TestServeStorageFailureReturnsError(t *testing.T) {
	var cfg config.Config
	cfg.Storage.Driver = "mysql"

	err := serve(context.Background(), cfg, discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage init")
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Audit.Enabled = true
	cfg.Audit.Schedule = "@every 1h"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, discard) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}

	// база закрыта и мигрирована: открывается заново и видит схему
	sdb, err := sql.Open("sqlite", cfg.SQLite.Path)
	require.NoError(t, err)
	defer func() { _ = sdb.Close() }()
	var n int
	require.NoError(t, sdb.QueryRow(`SELECT COUNT(*) FROM raw_material_lots`).Scan(&n))
	assert.Zero(t, n)
}

func TestServeReturnsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	cfg := sqliteConfig(t)
	cfg.HTTP.Addr = ln.Addr().String()

	done := make(chan error, 1)
	go func() { done <- serve(context.Background(), cfg, discard) }()
	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "http server")
	case <-time.After(10 * time.Second):
		t.Fatal("serve ignored the listen error")
	}
}
