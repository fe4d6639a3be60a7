package lineage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/batch-trace/internal/domain/errs"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// snapshot открывает REPEATABLE READ READ ONLY: все запросы видят один и тот же
// набор закоммиченных варок.
func (r *Repo) snapshot(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) Forward(ctx context.Context, serial string) (*Report, error) {
	var rep *Report
	err := r.snapshot(ctx, func(tx pgx.Tx) error {
		var v Report
		if err := tx.QueryRow(ctx, `
			SELECT u.id, u.serial_number, u.status, u.weight,
			       r.id, r.run_date, r.vat_number, r.notes
			FROM finished_units u
			JOIN production_runs r ON r.id = u.run_id
			WHERE u.serial_number = $1
		`, serial).Scan(&v.UnitID, &v.Serial, &v.Status, &v.Weight,
			&v.RunID, &v.RunDate, &v.VatNumber, &v.Notes); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}

		rows, err := tx.Query(ctx, `
			SELECT m.id, l.id, l.material, l.lot_code, m.quantity_used, l.unit
			FROM material_usage m
			JOIN raw_material_lots l ON l.id = m.lot_id
			WHERE m.run_id = $1
			ORDER BY m.id
		`, v.RunID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var ing Ingredient
			if err := rows.Scan(&ing.UsageID, &ing.LotID, &ing.Material, &ing.LotCode, &ing.Quantity, &ing.Unit); err != nil {
				return err
			}
			v.Ingredients = append(v.Ingredients, ing)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rep = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *Repo) Backward(ctx context.Context, lotID int64) ([]UnitSummary, error) {
	var out []UnitSummary
	err := r.snapshot(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM raw_material_lots WHERE id = $1)`, lotID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return errs.NotFound("lot", lotID)
		}

		// IN по подзапросу: лот на нескольких строках одной варки не размножает изделия
		rows, err := tx.Query(ctx, `
			SELECT u.id, u.serial_number, u.status, u.weight, r.id, r.run_date
			FROM finished_units u
			JOIN production_runs r ON r.id = u.run_id
			WHERE u.run_id IN (SELECT run_id FROM material_usage WHERE lot_id = $1)
			ORDER BY r.id, u.id
		`, lotID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var s UnitSummary
			if err := rows.Scan(&s.UnitID, &s.Serial, &s.Status, &s.Weight, &s.RunID, &s.RunDate); err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
