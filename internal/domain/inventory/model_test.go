package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/batch-trace/internal/domain/errs"
)

func TestReceiptNormalize(t *testing.T) {
	rc, err := Receipt{Material: "  Milk ", LotCode: "LOT-001\t", Quantity: dec("100"), Unit: " kg"}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, Receipt{Material: "Milk", LotCode: "LOT-001", Quantity: dec("100"), Unit: "kg"}, rc)

	bad := []struct {
		name  string
		rc    Receipt
		field string
	}{
		{"no material", Receipt{LotCode: "L", Quantity: dec("1"), Unit: "kg"}, "material"},
		{"blank lot code", Receipt{Material: "Milk", LotCode: "   ", Quantity: dec("1"), Unit: "kg"}, "lot_code"},
		{"no unit", Receipt{Material: "Milk", LotCode: "L", Quantity: dec("1")}, "unit"},
		{"zero qty", Receipt{Material: "Milk", LotCode: "L", Quantity: dec("0"), Unit: "kg"}, "quantity"},
		{"negative qty", Receipt{Material: "Milk", LotCode: "L", Quantity: dec("-3"), Unit: "kg"}, "quantity"},
		{"too precise qty", Receipt{Material: "Milk", LotCode: "L", Quantity: dec("12.34567"), Unit: "kg"}, "quantity"},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.rc.Normalize()
			require.ErrorIs(t, err, errs.ErrValidation)
			var ve *errs.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
