package finished

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Spok95/batch-trace/internal/domain/errs"
	"github.com/Spok95/batch-trace/internal/infra/db"
)

type SQLiteRepo struct{ db *sql.DB }

func NewSQLiteRepo(sdb *sql.DB) *SQLiteRepo { return &SQLiteRepo{db: sdb} }

func (r *SQLiteRepo) InsertUnit(ctx context.Context, runID int64, serial string, weight float64, at time.Time) (int64, error) {
	var id int64
	err := db.WriteTx(ctx, r.db, func(q db.Querier) error {
		var exists bool
		if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM production_runs WHERE id = ?)`, runID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return errs.NotFound("run", runID)
		}
		ts := db.UnixNano(at)
		err := q.QueryRowContext(ctx, `
			INSERT INTO finished_units (run_id, serial_number, weight, status, created_at, updated_at)
			VALUES (?,?,?,?,?,?)
			RETURNING id
		`, runID, serial, weight, string(StatusAging), ts, ts).Scan(&id)
		if db.IsUniqueViolation(err) {
			return &errs.DuplicateSerialError{Serial: serial}
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *SQLiteRepo) UpdateStatus(ctx context.Context, id int64, to Status, at time.Time) (Status, error) {
	var from Status
	err := db.WriteTx(ctx, r.db, func(q db.Querier) error {
		var cur string
		if err := q.QueryRowContext(ctx, `SELECT status FROM finished_units WHERE id = ?`, id).Scan(&cur); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.NotFound("unit", id)
			}
			return err
		}
		from = Status(cur)
		if !CanTransition(from, to) {
			return &errs.InvalidTransitionError{UnitID: id, From: cur, To: string(to)}
		}
		_, err := q.ExecContext(ctx, `UPDATE finished_units SET status = ?, updated_at = ? WHERE id = ?`,
			string(to), db.UnixNano(at), id)
		return err
	})
	if err != nil {
		return "", err
	}
	return from, nil
}

const sqliteUnitColumns = `id, run_id, serial_number, weight, status, created_at, updated_at`

func (r *SQLiteRepo) GetUnit(ctx context.Context, id int64) (*Unit, error) {
	return r.getOne(ctx, `SELECT `+sqliteUnitColumns+` FROM finished_units WHERE id = ?`, id)
}

func (r *SQLiteRepo) GetUnitBySerial(ctx context.Context, serial string) (*Unit, error) {
	return r.getOne(ctx, `SELECT `+sqliteUnitColumns+` FROM finished_units WHERE serial_number = ?`, serial)
}

func (r *SQLiteRepo) getOne(ctx context.Context, query string, arg any) (*Unit, error) {
	u, err := scanSQLiteUnit(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *SQLiteRepo) ListUnitsByRun(ctx context.Context, runID int64) ([]Unit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sqliteUnitColumns+`
		FROM finished_units
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Unit
	for rows.Next() {
		u, err := scanSQLiteUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) RunExists(ctx context.Context, runID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM production_runs WHERE id = ?)`, runID).Scan(&ok)
	return ok, err
}

func scanSQLiteUnit(s interface{ Scan(dest ...any) error }) (Unit, error) {
	var (
		u                  Unit
		status             string
		createdAt, updated int64
	)
	if err := s.Scan(&u.ID, &u.RunID, &u.Serial, &u.Weight, &status, &createdAt, &updated); err != nil {
		return Unit{}, err
	}
	u.Status = Status(status)
	u.CreatedAt = db.FromUnixNano(createdAt)
	u.UpdatedAt = db.FromUnixNano(updated)
	return u, nil
}
