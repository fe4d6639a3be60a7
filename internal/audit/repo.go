package audit

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const balancesQuery = `
	SELECT l.id,
	       l.quantity_on_hand,
	       l.received_quantity - COALESCE((SELECT SUM(m.quantity_used) FROM material_usage m WHERE m.lot_id = l.id), 0),
	       COALESCE((SELECT SUM(mv.qty) FROM lot_movements mv WHERE mv.lot_id = l.id), 0)
	FROM raw_material_lots l
	ORDER BY l.id
`

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// Balances читает одним снимком, чтобы варка, закоммиченная посреди проверки, не дала ложного расхождения.
func (r *Repo) Balances(ctx context.Context) ([]LotBalance, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, balancesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LotBalance
	for rows.Next() {
		var b LotBalance
		if err := rows.Scan(&b.LotID, &b.OnHand, &b.Expected, &b.Journal); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}
