package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintViolationsPostgres(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("duplicate key")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestConstraintViolationsSQLite(t *testing.T) {
	ctx := context.Background()
	sdb, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "c.db"), time.Second)
	require.NoError(t, err)
	defer func() { _ = sdb.Close() }()

	_, err = sdb.ExecContext(ctx, `
		CREATE TABLE p (id INTEGER PRIMARY KEY);
		CREATE TABLE c (id INTEGER PRIMARY KEY, p_id INTEGER NOT NULL REFERENCES p (id), code TEXT UNIQUE);
		INSERT INTO p (id) VALUES (1);
		INSERT INTO c (p_id, code) VALUES (1, 'a');
	`)
	require.NoError(t, err)

	_, err = sdb.ExecContext(ctx, `INSERT INTO c (p_id, code) VALUES (1, 'a')`)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsForeignKeyViolation(err))

	_, err = sdb.ExecContext(ctx, `INSERT INTO c (p_id, code) VALUES (2, 'b')`)
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
}
