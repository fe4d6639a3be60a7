package audit

import (
	"context"
	"database/sql"

	"github.com/Spok95/batch-trace/internal/domain/qty"
	"github.com/Spok95/batch-trace/internal/infra/db"
)

type SQLiteRepo struct{ db *sql.DB }

func NewSQLiteRepo(sdb *sql.DB) *SQLiteRepo { return &SQLiteRepo{db: sdb} }

func (r *SQLiteRepo) Balances(ctx context.Context) ([]LotBalance, error) {
	var out []LotBalance
	err := db.ReadTx(ctx, r.db, func(q db.Querier) error {
		rows, err := q.QueryContext(ctx, balancesQuery)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var (
				b                         LotBalance
				onHand, expected, journal int64
			)
			if err := rows.Scan(&b.LotID, &onHand, &expected, &journal); err != nil {
				return err
			}
			b.OnHand, b.Expected, b.Journal = qty.FromUnits(onHand), qty.FromUnits(expected), qty.FromUnits(journal)
			out = append(out, b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
