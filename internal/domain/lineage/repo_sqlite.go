package lineage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Spok95/batch-trace/internal/domain/errs"
	"github.com/Spok95/batch-trace/internal/domain/finished"
	"github.com/Spok95/batch-trace/internal/domain/qty"
	"github.com/Spok95/batch-trace/internal/infra/db"
)

type SQLiteRepo struct{ db *sql.DB }

func NewSQLiteRepo(sdb *sql.DB) *SQLiteRepo { return &SQLiteRepo{db: sdb} }

func (r *SQLiteRepo) Forward(ctx context.Context, serial string) (*Report, error) {
	var rep *Report
	err := db.ReadTx(ctx, r.db, func(q db.Querier) error {
		var (
			v      Report
			status string
		)
		if err := q.QueryRowContext(ctx, `
			SELECT u.id, u.serial_number, u.status, u.weight,
			       r.id, r.run_date, r.vat_number, r.notes
			FROM finished_units u
			JOIN production_runs r ON r.id = u.run_id
			WHERE u.serial_number = ?
		`, serial).Scan(&v.UnitID, &v.Serial, &status, &v.Weight,
			&v.RunID, &v.RunDate, &v.VatNumber, &v.Notes); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		v.Status = finished.Status(status)

		rows, err := q.QueryContext(ctx, `
			SELECT m.id, l.id, l.material, l.lot_code, m.quantity_used, l.unit
			FROM material_usage m
			JOIN raw_material_lots l ON l.id = m.lot_id
			WHERE m.run_id = ?
			ORDER BY m.id
		`, v.RunID)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var (
				ing   Ingredient
				units int64
			)
			if err := rows.Scan(&ing.UsageID, &ing.LotID, &ing.Material, &ing.LotCode, &units, &ing.Unit); err != nil {
				return err
			}
			ing.Quantity = qty.FromUnits(units)
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

func (r *SQLiteRepo) Backward(ctx context.Context, lotID int64) ([]UnitSummary, error) {
	var out []UnitSummary
	err := db.ReadTx(ctx, r.db, func(q db.Querier) error {
		var exists bool
		if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM raw_material_lots WHERE id = ?)`, lotID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return errs.NotFound("lot", lotID)
		}

		rows, err := q.QueryContext(ctx, `
			SELECT u.id, u.serial_number, u.status, u.weight, r.id, r.run_date
			FROM finished_units u
			JOIN production_runs r ON r.id = u.run_id
			WHERE u.run_id IN (SELECT run_id FROM material_usage WHERE lot_id = ?)
			ORDER BY r.id, u.id
		`, lotID)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var (
				s      UnitSummary
				status string
			)
			if err := rows.Scan(&s.UnitID, &s.Serial, &status, &s.Weight, &s.RunID, &s.RunDate); err != nil {
				return err
			}
			s.Status = finished.Status(status)
			out = append(out, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
