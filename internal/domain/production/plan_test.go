package production

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/batch-trace/internal/domain/errs"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPlanDrawsSumsDuplicateLots(t *testing.T) {
	draws := PlanDraws([]Ingredient{
		{LotID: 7, Quantity: dec("40"), Unit: "kg"},
		{LotID: 3, Quantity: dec("5")},
		{LotID: 7, Quantity: dec("40")},
	})
	require.Len(t, draws, 2)
	assert.Equal(t, int64(7), draws[0].LotID)
	assert.Equal(t, "80", draws[0].Quantity.String())
	assert.Equal(t, []string{"kg"}, draws[0].Units)
	assert.Equal(t, int64(3), draws[1].LotID)
	assert.Equal(t, "5", draws[1].Quantity.String())
	assert.Empty(t, draws[1].Units)
	assert.Equal(t, []int64{3, 7}, LotIDs(draws))
}

func TestPlanDrawsFractionsAreExact(t *testing.T) {
	draws := PlanDraws([]Ingredient{
		{LotID: 1, Quantity: dec("0.1")},
		{LotID: 1, Quantity: dec("0.2")},
	})
	require.Len(t, draws, 1)
	assert.True(t, draws[0].Quantity.Equal(dec("0.3")), draws[0].Quantity.String())

	lots := map[int64]LotState{1: {ID: 1, OnHand: dec("0.3"), Unit: "kg"}}
	require.NoError(t, CheckDraws(draws, lots))
}

func TestPlanDrawsEmpty(t *testing.T) {
	assert.Empty(t, PlanDraws(nil))
	assert.Empty(t, LotIDs(nil))
}

func TestCheckDraws(t *testing.T) {
	lots := map[int64]LotState{
		1: {ID: 1, OnHand: dec("70"), Unit: "kg"},
		2: {ID: 2, OnHand: dec("5"), Unit: "l"},
	}

	require.NoError(t, CheckDraws([]Draw{{LotID: 1, Quantity: dec("70")}, {LotID: 2, Quantity: dec("1"), Units: []string{"l"}}}, lots))

	err := CheckDraws([]Draw{{LotID: 1, Quantity: dec("200")}}, lots)
	var ise *errs.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(1), ise.LotID)
	assert.Equal(t, "200", ise.Requested.String())
	assert.Equal(t, "70", ise.Available.String())

	err = CheckDraws([]Draw{{LotID: 9, Quantity: dec("1")}}, lots)
	var nf *errs.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "9", nf.Key)

	err = CheckDraws([]Draw{{LotID: 2, Quantity: dec("1"), Units: []string{"kg"}}}, lots)
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, err.Error(), "lot 2 is measured in l")
}

func TestRunRequestNormalize(t *testing.T) {
	req, err := RunRequest{RunDate: " 2024-01-01 ", VatNumber: " VAT-3", Ingredients: []Ingredient{{LotID: 1, Quantity: dec("30"), Unit: " kg "}}}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", req.RunDate)
	assert.Equal(t, "VAT-3", req.VatNumber)
	assert.Equal(t, "kg", req.Ingredients[0].Unit)

	cases := map[string]RunRequest{
		"run_date":                {RunDate: "  "},
		"ingredients[0].quantity": {RunDate: "2024-01-01", Ingredients: []Ingredient{{LotID: 1}}},
		"ingredients[1].quantity": {RunDate: "2024-01-01", Ingredients: []Ingredient{{LotID: 1, Quantity: dec("1")}, {LotID: 2, Quantity: dec("-1")}}},
	}
	for field, req := range cases {
		_, err := req.Normalize()
		var ve *errs.ValidationError
		require.ErrorAs(t, err, &ve, field)
		assert.Equal(t, field, ve.Field)
	}

	// lot_id здесь не проверяется: его судьбу решает CheckDraws
	_, err = RunRequest{RunDate: "2024-01-01", Ingredients: []Ingredient{{LotID: 0, Quantity: dec("1")}}}.Normalize()
	require.NoError(t, err)

	// варка без сырья (переработка) допустима
	_, err = RunRequest{RunDate: "2024-01-02"}.Normalize()
	require.NoError(t, err)
}
