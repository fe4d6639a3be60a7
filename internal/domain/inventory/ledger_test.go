package inventory

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/batch-trace/internal/domain/errs"
	"github.com/Spok95/batch-trace/internal/infra/db/dbtest"
)

func newTestLedger(b dbtest.Backend) *Ledger {
	var store Store
	if b.Pool != nil {
		store = NewRepo(b.Pool)
	} else {
		store = NewSQLiteRepo(b.SQLite)
	}
	return NewLedger(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLedgerReceive(t *testing.T) {
	dbtest.Each(t, func(t *testing.T, b dbtest.Backend) {
		ctx := context.Background()
		l := newTestLedger(b)

		id, err := l.Receive(ctx, Receipt{Material: "Milk", LotCode: "LOT-001", Quantity: dec("100"), Unit: "kg"})
		require.NoError(t, err)
		assert.Positive(t, id)

		qty, err := l.AvailableQuantity(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "100", qty.String())

		lot, err := l.GetLot(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Milk", lot.Material)
		assert.Equal(t, "LOT-001", lot.LotCode)
		assert.Equal(t, "100", lot.ReceivedQuantity.String())
		assert.Equal(t, "100", lot.QuantityOnHand.String())
		assert.Equal(t, "kg", lot.Unit)

		mv, err := l.Movements(ctx, id)
		require.NoError(t, err)
		require.Len(t, mv, 1)
		assert.Equal(t, MoveIn, mv[0].Type)
		assert.Equal(t, "100", mv[0].Qty.String())
		assert.Nil(t, mv[0].RunID)
	})
}

func TestLedgerReceiveRejectsInvalid(t *testing.T) {
	dbtest.Each(t, func(t *testing.T, b dbtest.Backend) {
		ctx := context.Background()
		l := newTestLedger(b)

		_, err := l.Receive(ctx, Receipt{Material: "Milk", LotCode: "LOT-001", Quantity: dec("0"), Unit: "kg"})
		require.ErrorIs(t, err, errs.ErrValidation)

		lots, err := l.ListLots(ctx)
		require.NoError(t, err)
		assert.Empty(t, lots)
	})
}

func TestLedgerUnknownLot(t *testing.T) {
	dbtest.Each(t, func(t *testing.T, b dbtest.Backend) {
		ctx := context.Background()
		l := newTestLedger(b)

		_, err := l.AvailableQuantity(ctx, 999)
		var nf *errs.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "lot", nf.Entity)
		assert.Equal(t, "999", nf.Key)

		_, err = l.Movements(ctx, 999)
		require.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestLedgerListLotsNewestFirst(t *testing.T) {
	dbtest.Each(t, func(t *testing.T, b dbtest.Backend) {
		ctx := context.Background()
		l := newTestLedger(b)

		base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
		tick := 0
		l.now = func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Hour)
		}

		first, err := l.Receive(ctx, Receipt{Material: "Milk", LotCode: "LOT-001", Quantity: dec("100"), Unit: "kg"})
		require.NoError(t, err)
		second, err := l.Receive(ctx, Receipt{Material: "Rennet", LotCode: "R-7", Quantity: dec("2"), Unit: "l"})
		require.NoError(t, err)

		lots, err := l.ListLots(ctx)
		require.NoError(t, err)
		require.Len(t, lots, 2)
		assert.Equal(t, second, lots[0].ID)
		assert.Equal(t, first, lots[1].ID)
		assert.True(t, lots[0].ReceivedAt.After(lots[1].ReceivedAt))
	})
}

func TestLedgerReceiveBatchAllOrNothing(t *testing.T) {
	dbtest.Each(t, func(t *testing.T, b dbtest.Backend) {
		ctx := context.Background()
		l := newTestLedger(b)

		_, err := l.ReceiveBatch(ctx, []Receipt{
			{Material: "Milk", LotCode: "LOT-001", Quantity: dec("100"), Unit: "kg"},
			{Material: "Salt", LotCode: "", Quantity: dec("5"), Unit: "kg"},
		})
		require.ErrorIs(t, err, errs.ErrValidation)
		assert.Contains(t, err.Error(), "receipt 2")

		lots, err := l.ListLots(ctx)
		require.NoError(t, err)
		assert.Empty(t, lots)

		ids, err := l.ReceiveBatch(ctx, []Receipt{
			{Material: "Milk", LotCode: "LOT-001", Quantity: dec("100"), Unit: "kg"},
			{Material: "Salt", LotCode: "S-1", Quantity: dec("5"), Unit: "kg"},
		})
		require.NoError(t, err)
		require.Len(t, ids, 2)
		assert.Less(t, ids[0], ids[1])

		_, err = l.ReceiveBatch(ctx, nil)
		require.ErrorIs(t, err, errs.ErrValidation)
	})
}
