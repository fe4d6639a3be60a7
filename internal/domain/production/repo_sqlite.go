package production

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Spok95/batch-trace/internal/domain/errs"
	"github.com/Spok95/batch-trace/internal/domain/qty"
	"github.com/Spok95/batch-trace/internal/infra/db"
)

type SQLiteRepo struct{ db *sql.DB }

func NewSQLiteRepo(sdb *sql.DB) *SQLiteRepo { return &SQLiteRepo{db: sdb} }

// CreateRun идёт под BEGIN IMMEDIATE: писатель в sqlite один, так что остаток,
// прочитанный в начале, не изменится до коммита.
func (r *SQLiteRepo) CreateRun(ctx context.Context, req RunRequest, draws []Draw, createdAt time.Time) (int64, error) {
	var runID int64
	at := db.UnixNano(createdAt)

	err := db.WriteTx(ctx, r.db, func(q db.Querier) error {
		lots, err := loadSQLiteLots(ctx, q, LotIDs(draws))
		if err != nil {
			return err
		}
		if err := CheckDraws(draws, lots); err != nil {
			return err
		}

		if err := q.QueryRowContext(ctx, `
			INSERT INTO production_runs (run_date, vat_number, notes, created_at)
			VALUES (?,?,?,?)
			RETURNING id
		`, req.RunDate, req.VatNumber, req.Notes, at).Scan(&runID); err != nil {
			return err
		}

		for _, ing := range req.Ingredients {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO material_usage (run_id, lot_id, quantity_used)
				VALUES (?,?,?)
			`, runID, ing.LotID, qty.ToUnits(ing.Quantity)); err != nil {
				return err
			}
			if _, err := q.ExecContext(ctx, `
				INSERT INTO lot_movements (lot_id, type, qty, run_id, created_at)
				VALUES (?,'out',?,?,?)
			`, ing.LotID, -qty.ToUnits(ing.Quantity), runID, at); err != nil {
				return err
			}
		}

		for _, d := range draws {
			units := qty.ToUnits(d.Quantity)
			res, err := q.ExecContext(ctx, `
				UPDATE raw_material_lots
				SET quantity_on_hand = quantity_on_hand - ?
				WHERE id = ? AND quantity_on_hand >= ?
			`, units, d.LotID, units)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return &errs.InsufficientStockError{LotID: d.LotID, Requested: d.Quantity, Available: lots[d.LotID].OnHand}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return runID, nil
}

func loadSQLiteLots(ctx context.Context, q db.Querier, ids []int64) (map[int64]LotState, error) {
	lots := make(map[int64]LotState, len(ids))
	if len(ids) == 0 {
		return lots, nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, quantity_on_hand, unit
		FROM raw_material_lots
		WHERE id IN (`+placeholders(len(ids))+`)
	`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			s      LotState
			onHand int64
		)
		if err := rows.Scan(&s.ID, &onHand, &s.Unit); err != nil {
			return nil, err
		}
		s.OnHand = qty.FromUnits(onHand)
		lots[s.ID] = s
	}
	return lots, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func (r *SQLiteRepo) ListRecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_date, vat_number, notes, created_at
		FROM production_runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var (
			run Run
			at  int64
		)
		if err := rows.Scan(&run.ID, &run.RunDate, &run.VatNumber, &run.Notes, &at); err != nil {
			return nil, err
		}
		run.CreatedAt = db.FromUnixNano(at)
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) GetRun(ctx context.Context, id int64) (*Run, error) {
	var run *Run
	err := db.ReadTx(ctx, r.db, func(q db.Querier) error {
		var (
			v  Run
			at int64
		)
		if err := q.QueryRowContext(ctx, `
			SELECT id, run_date, vat_number, notes, created_at
			FROM production_runs
			WHERE id = ?
		`, id).Scan(&v.ID, &v.RunDate, &v.VatNumber, &v.Notes, &at); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		v.CreatedAt = db.FromUnixNano(at)

		rows, err := q.QueryContext(ctx, `
			SELECT id, run_id, lot_id, quantity_used
			FROM material_usage
			WHERE run_id = ?
			ORDER BY id
		`, id)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var (
				u     Usage
				units int64
			)
			if err := rows.Scan(&u.ID, &u.RunID, &u.LotID, &units); err != nil {
				return err
			}
			u.Quantity = qty.FromUnits(units)
			v.Usages = append(v.Usages, u)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		run = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}
