package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/batch-trace/internal/domain/errs"
	"github.com/Spok95/batch-trace/internal/infra/metrics"
)

// Store — хранилище лотов. Реализации: Repo (Postgres) и SQLiteRepo.
// GetLot возвращает (nil, nil), если лота нет.
type Store interface {
	InsertLots(ctx context.Context, receipts []Receipt, receivedAt time.Time) ([]int64, error)
	ListLots(ctx context.Context) ([]Lot, error)
	GetLot(ctx context.Context, id int64) (*Lot, error)
	ListMovements(ctx context.Context, lotID int64) ([]Movement, error)
}

type Ledger struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func NewLedger(store Store, log *slog.Logger) *Ledger {
	return &Ledger{store: store, log: log, now: time.Now}
}

// Receive оприходует новый лот и возвращает его id.
func (l *Ledger) Receive(ctx context.Context, rc Receipt) (_ int64, err error) {
	defer func(start time.Time) { metrics.Observe("receive", start, err) }(time.Now())

	rc, err = rc.Normalize()
	if err != nil {
		return 0, err
	}
	ids, err := l.store.InsertLots(ctx, []Receipt{rc}, l.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("receive lot: %w", err)
	}
	l.log.Info("lot received",
		"lot_id", ids[0],
		"material", rc.Material,
		"lot_code", rc.LotCode,
		"qty", rc.Quantity.String(),
		"unit", rc.Unit,
	)
	return ids[0], nil
}

// ReceiveBatch оприходует несколько лотов одной транзакцией: либо все, либо ни одного.
func (l *Ledger) ReceiveBatch(ctx context.Context, receipts []Receipt) (_ []int64, err error) {
	defer func(start time.Time) { metrics.Observe("receive_batch", start, err) }(time.Now())

	if len(receipts) == 0 {
		return nil, errs.Validation("receipts", "must not be empty")
	}
	norm := make([]Receipt, 0, len(receipts))
	for i, rc := range receipts {
		n, err := rc.Normalize()
		if err != nil {
			return nil, fmt.Errorf("receipt %d: %w", i+1, err)
		}
		norm = append(norm, n)
	}
	ids, err := l.store.InsertLots(ctx, norm, l.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("receive lots: %w", err)
	}
	l.log.Info("lots received", "count", len(ids))
	return ids, nil
}

func (l *Ledger) ListLots(ctx context.Context) (_ []Lot, err error) {
	defer func(start time.Time) { metrics.Observe("list_lots", start, err) }(time.Now())

	lots, err := l.store.ListLots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	return lots, nil
}

func (l *Ledger) GetLot(ctx context.Context, id int64) (_ *Lot, err error) {
	defer func(start time.Time) { metrics.Observe("get_lot", start, err) }(time.Now())
	return l.getLot(ctx, id)
}

func (l *Ledger) AvailableQuantity(ctx context.Context, id int64) (_ decimal.Decimal, err error) {
	defer func(start time.Time) { metrics.Observe("available_quantity", start, err) }(time.Now())

	lot, err := l.getLot(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return lot.QuantityOnHand, nil
}

// Movements — журнал прихода/расхода по лоту в порядке записи.
func (l *Ledger) Movements(ctx context.Context, lotID int64) (_ []Movement, err error) {
	defer func(start time.Time) { metrics.Observe("lot_movements", start, err) }(time.Now())

	if _, err = l.getLot(ctx, lotID); err != nil {
		return nil, err
	}
	mv, err := l.store.ListMovements(ctx, lotID)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return mv, nil
}

func (l *Ledger) getLot(ctx context.Context, id int64) (*Lot, error) {
	lot, err := l.store.GetLot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get lot %d: %w", id, err)
	}
	if lot == nil {
		return nil, errs.NotFound("lot", id)
	}
	return lot, nil
}
