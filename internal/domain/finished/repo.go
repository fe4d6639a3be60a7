package finished

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/batch-trace/internal/domain/errs"
	"github.com/Spok95/batch-trace/internal/infra/db"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// InsertUnit полагается на ограничения таблицы: FK на варку и UNIQUE на серийник
// срабатывают атомарно и при параллельных вставках.
func (r *Repo) InsertUnit(ctx context.Context, runID int64, serial string, weight float64, at time.Time) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO finished_units (run_id, serial_number, weight, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$5)
		RETURNING id
	`, runID, serial, weight, string(StatusAging), at).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case db.IsUniqueViolation(err):
		return 0, &errs.DuplicateSerialError{Serial: serial}
	case db.IsForeignKeyViolation(err):
		return 0, errs.NotFound("run", runID)
	}
	return 0, err
}

func (r *Repo) UpdateStatus(ctx context.Context, id int64, to Status, at time.Time) (Status, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var from Status
	if err := tx.QueryRow(ctx, `SELECT status FROM finished_units WHERE id = $1 FOR UPDATE`, id).Scan(&from); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errs.NotFound("unit", id)
		}
		return "", err
	}
	if !CanTransition(from, to) {
		return "", &errs.InvalidTransitionError{UnitID: id, From: string(from), To: string(to)}
	}
	if _, err := tx.Exec(ctx, `
		UPDATE finished_units SET status = $2, updated_at = $3 WHERE id = $1
	`, id, string(to), at); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return from, nil
}

const unitColumns = `id, run_id, serial_number, weight, status, created_at, updated_at`

func (r *Repo) GetUnit(ctx context.Context, id int64) (*Unit, error) {
	return r.getOne(ctx, `SELECT `+unitColumns+` FROM finished_units WHERE id = $1`, id)
}

func (r *Repo) GetUnitBySerial(ctx context.Context, serial string) (*Unit, error) {
	return r.getOne(ctx, `SELECT `+unitColumns+` FROM finished_units WHERE serial_number = $1`, serial)
}

func (r *Repo) getOne(ctx context.Context, query string, arg any) (*Unit, error) {
	var u Unit
	err := r.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.RunID, &u.Serial, &u.Weight, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) ListUnitsByRun(ctx context.Context, runID int64) ([]Unit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+unitColumns+`
		FROM finished_units
		WHERE run_id = $1
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.RunID, &u.Serial, &u.Weight, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repo) RunExists(ctx context.Context, runID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM production_runs WHERE id = $1)`, runID).Scan(&ok)
	return ok, err
}
