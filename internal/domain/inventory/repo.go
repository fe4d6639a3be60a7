package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) InsertLots(ctx context.Context, receipts []Receipt, receivedAt time.Time) ([]int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]int64, 0, len(receipts))
	for _, rc := range receipts {
		var id int64
		if err := tx.QueryRow(ctx, `
			INSERT INTO raw_material_lots (material, lot_code, received_quantity, quantity_on_hand, unit, received_at)
			VALUES ($1,$2,$3,$3,$4,$5)
			RETURNING id
		`, rc.Material, rc.LotCode, rc.Quantity, rc.Unit, receivedAt).Scan(&id); err != nil {
			return nil, err
		}

		// Журнал: приход
		if _, err := tx.Exec(ctx, `
			INSERT INTO lot_movements (lot_id, type, qty, created_at)
			VALUES ($1,$2,$3,$4)
		`, id, string(MoveIn), rc.Quantity, receivedAt); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repo) ListLots(ctx context.Context) ([]Lot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, material, lot_code, received_quantity, quantity_on_hand, unit, received_at
		FROM raw_material_lots
		ORDER BY received_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lot
	for rows.Next() {
		var l Lot
		if err := rows.Scan(
			&l.ID,
			&l.Material,
			&l.LotCode,
			&l.ReceivedQuantity,
			&l.QuantityOnHand,
			&l.Unit,
			&l.ReceivedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) GetLot(ctx context.Context, id int64) (*Lot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, material, lot_code, received_quantity, quantity_on_hand, unit, received_at
		FROM raw_material_lots
		WHERE id = $1
	`, id)
	var l Lot
	if err := row.Scan(&l.ID, &l.Material, &l.LotCode, &l.ReceivedQuantity, &l.QuantityOnHand, &l.Unit, &l.ReceivedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *Repo) ListMovements(ctx context.Context, lotID int64) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lot_id, type, qty, run_id, created_at
		FROM lot_movements
		WHERE lot_id = $1
		ORDER BY id
	`, lotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.LotID, &m.Type, &m.Qty, &m.RunID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
