package production

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/batch-trace/internal/domain/errs"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) CreateRun(ctx context.Context, req RunRequest, draws []Draw, createdAt time.Time) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Блокируем строки лотов в порядке id: параллельная варка по тем же лотам
	// дождётся нашего коммита и увидит уже уменьшенный остаток.
	lots := make(map[int64]LotState, len(draws))
	if len(draws) > 0 {
		rows, err := tx.Query(ctx, `
			SELECT id, quantity_on_hand, unit
			FROM raw_material_lots
			WHERE id = ANY($1)
			ORDER BY id
			FOR UPDATE
		`, LotIDs(draws))
		if err != nil {
			return 0, err
		}
		for rows.Next() {
			var s LotState
			if err := rows.Scan(&s.ID, &s.OnHand, &s.Unit); err != nil {
				rows.Close()
				return 0, err
			}
			lots[s.ID] = s
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return 0, err
		}
	}
	if err := CheckDraws(draws, lots); err != nil {
		return 0, err
	}

	var runID int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO production_runs (run_date, vat_number, notes, created_at)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, req.RunDate, req.VatNumber, req.Notes, createdAt).Scan(&runID); err != nil {
		return 0, err
	}

	for _, ing := range req.Ingredients {
		if _, err := tx.Exec(ctx, `
			INSERT INTO material_usage (run_id, lot_id, quantity_used)
			VALUES ($1,$2,$3)
		`, runID, ing.LotID, ing.Quantity); err != nil {
			return 0, err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO lot_movements (lot_id, type, qty, run_id, created_at)
			VALUES ($1,'out',$2,$3,$4)
		`, ing.LotID, ing.Quantity.Neg(), runID, createdAt); err != nil {
			return 0, err
		}
	}

	for _, d := range draws {
		tag, err := tx.Exec(ctx, `
			UPDATE raw_material_lots
			SET quantity_on_hand = quantity_on_hand - $2
			WHERE id = $1 AND quantity_on_hand >= $2
		`, d.LotID, d.Quantity)
		if err != nil {
			return 0, err
		}
		if tag.RowsAffected() == 0 {
			return 0, &errs.InsufficientStockError{LotID: d.LotID, Requested: d.Quantity, Available: lots[d.LotID].OnHand}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return runID, nil
}

func (r *Repo) ListRecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, run_date, vat_number, notes, created_at
		FROM production_runs
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.RunDate, &run.VatNumber, &run.Notes, &run.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *Repo) GetRun(ctx context.Context, id int64) (*Run, error) {
	// Варка и её рёбра из одного снимка
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var run Run
	if err := tx.QueryRow(ctx, `
		SELECT id, run_date, vat_number, notes, created_at
		FROM production_runs
		WHERE id = $1
	`, id).Scan(&run.ID, &run.RunDate, &run.VatNumber, &run.Notes, &run.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, run_id, lot_id, quantity_used
		FROM material_usage
		WHERE run_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var u Usage
		if err := rows.Scan(&u.ID, &u.RunID, &u.LotID, &u.Quantity); err != nil {
			return nil, err
		}
		run.Usages = append(run.Usages, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &run, nil
}
