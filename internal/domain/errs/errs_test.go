package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{Validation("quantity", "must be > 0"), "validation"},
		{NotFound("lot", 7), "not_found"},
		{&InsufficientStockError{LotID: 1, Requested: decimal.NewFromInt(60), Available: decimal.NewFromInt(40)}, "insufficient_stock"},
		{&DuplicateSerialError{Serial: "SER-1"}, "duplicate_serial"},
		{&InvalidTransitionError{UnitID: 1, From: "Released", To: "Held"}, "invalid_transition"},
		{fmt.Errorf("start run: %w", NotFound("lot", 3)), "not_found"},
		{context.DeadlineExceeded, "error"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Kind(tc.err), "%v", tc.err)
	}
}

func TestWrappedDetailsSurvive(t *testing.T) {
	err := fmt.Errorf("start run: %w", &InsufficientStockError{LotID: 12, Requested: decimal.NewFromInt(200), Available: decimal.RequireFromString("0.3")})

	require.ErrorIs(t, err, ErrInsufficientStock)
	var ise *InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, int64(12), ise.LotID)
	assert.Equal(t, "0.3", ise.Available.String())
	assert.Equal(t, "start run: insufficient stock in lot 12: requested 200, available 0.3", err.Error())
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "lot 5 not found", NotFound("lot", 5).Error())
	assert.Equal(t, "validation: serial_number: must not be empty", Validation("serial_number", "must not be empty").Error())
	assert.Equal(t, "validation: no ingredients", Validation("", "no ingredients").Error())
	assert.Equal(t, `serial number "SER-1001" already used`, (&DuplicateSerialError{Serial: "SER-1001"}).Error())
}

func TestIsBusiness(t *testing.T) {
	assert.True(t, IsBusiness(NotFound("unit", 1)))
	assert.False(t, IsBusiness(errors.New("connection reset")))
	assert.False(t, IsBusiness(nil))
}
