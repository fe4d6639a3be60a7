package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Querier — общее подмножество *sql.Conn, *sql.Tx и *sql.DB.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OpenSQLite открывает файл базы в режиме WAL: читатели не блокируют писателя,
// писатели ждут друг друга не дольше busyTimeout.
func OpenSQLite(ctx context.Context, path string, busyTimeout time.Duration) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	dsn := "file:" + path + "?" + q.Encode()

	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := sdb.PingContext(ctx); err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return sdb, nil
}

// WriteTx выполняет fn внутри BEGIN IMMEDIATE на выделенном соединении.
// Блокировка записи берётся сразу, поэтому проверка остатка и списание
// не могут разойтись с параллельной транзакцией.
func WriteTx(ctx context.Context, sdb *sql.DB, fn func(q Querier) error) error {
	conn, err := sdb.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin immediate: %w", err)
	}
	if err := fn(conn); err != nil {
		rollback(conn)
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		rollback(conn)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ReadTx — отложенная транзакция только для чтения: один снимок на все запросы fn.
func ReadTx(ctx context.Context, sdb *sql.DB, fn func(q Querier) error) error {
	tx, err := sdb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func rollback(conn *sql.Conn) {
	if _, err := conn.ExecContext(context.Background(), "ROLLBACK"); err != nil {
		// соединение с незакрытой транзакцией в пул возвращать нельзя
		_ = conn.Raw(func(any) error { return driver.ErrBadConn })
	}
}

// UnixNano / FromUnixNano — хранение времени в sqlite.
func UnixNano(t time.Time) int64 { return t.UTC().UnixNano() }

func FromUnixNano(n int64) time.Time { return time.Unix(0, n).UTC() }
