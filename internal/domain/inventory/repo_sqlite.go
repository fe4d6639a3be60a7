package inventory

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Spok95/batch-trace/internal/domain/qty"
	"github.com/Spok95/batch-trace/internal/infra/db"
)

// SQLiteRepo — встроенное хранилище в одном файле.
type SQLiteRepo struct{ db *sql.DB }

func NewSQLiteRepo(sdb *sql.DB) *SQLiteRepo { return &SQLiteRepo{db: sdb} }

const sqliteLotColumns = `id, material, lot_code, received_quantity, quantity_on_hand, unit, received_at`

func (r *SQLiteRepo) InsertLots(ctx context.Context, receipts []Receipt, receivedAt time.Time) ([]int64, error) {
	ids := make([]int64, 0, len(receipts))
	at := db.UnixNano(receivedAt)

	err := db.WriteTx(ctx, r.db, func(q db.Querier) error {
		for _, rc := range receipts {
			var id int64
			if err := q.QueryRowContext(ctx, `
				INSERT INTO raw_material_lots (material, lot_code, received_quantity, quantity_on_hand, unit, received_at)
				VALUES (?,?,?,?,?,?)
				RETURNING id
			`, rc.Material, rc.LotCode, qty.ToUnits(rc.Quantity), qty.ToUnits(rc.Quantity), rc.Unit, at).Scan(&id); err != nil {
				return err
			}
			if _, err := q.ExecContext(ctx, `
				INSERT INTO lot_movements (lot_id, type, qty, created_at)
				VALUES (?,?,?,?)
			`, id, string(MoveIn), qty.ToUnits(rc.Quantity), at); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *SQLiteRepo) ListLots(ctx context.Context) ([]Lot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sqliteLotColumns+`
		FROM raw_material_lots
		ORDER BY received_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Lot
	for rows.Next() {
		l, err := scanSQLiteLot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) GetLot(ctx context.Context, id int64) (*Lot, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sqliteLotColumns+` FROM raw_material_lots WHERE id = ?`, id)
	l, err := scanSQLiteLot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *SQLiteRepo) ListMovements(ctx context.Context, lotID int64) ([]Movement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, lot_id, type, qty, run_id, created_at
		FROM lot_movements
		WHERE lot_id = ?
		ORDER BY id
	`, lotID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Movement
	for rows.Next() {
		var (
			m     Movement
			typ   string
			units int64
			runID sql.NullInt64
			at    int64
		)
		if err := rows.Scan(&m.ID, &m.LotID, &typ, &units, &runID, &at); err != nil {
			return nil, err
		}
		m.Type = MoveType(typ)
		m.Qty = qty.FromUnits(units)
		if runID.Valid {
			v := runID.Int64
			m.RunID = &v
		}
		m.CreatedAt = db.FromUnixNano(at)
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteLot(s rowScanner) (Lot, error) {
	var (
		l                Lot
		received, onHand int64
		at               int64
	)
	if err := s.Scan(&l.ID, &l.Material, &l.LotCode, &received, &onHand, &l.Unit, &at); err != nil {
		return Lot{}, err
	}
	l.ReceivedQuantity = qty.FromUnits(received)
	l.QuantityOnHand = qty.FromUnits(onHand)
	l.ReceivedAt = db.FromUnixNano(at)
	return l, nil
}
