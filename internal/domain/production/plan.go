package production

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/Spok95/batch-trace/internal/domain/errs"
)

// Draw — суммарное списание с одного лота в рамках одной варки.
type Draw struct {
	LotID    int64
	Quantity decimal.Decimal
	Units    []string // единицы, указанные в строках заявки (пустые не попадают)
}

// LotState — остаток лота, прочитанный под блокировкой внутри транзакции варки.
type LotState struct {
	ID     int64
	OnHand decimal.Decimal
	Unit   string
}

// PlanDraws сворачивает повторяющиеся лоты: проверка остатка идёт по сумме
// всех строк с этим лотом, а не построчно. Порядок — по первому упоминанию.
func PlanDraws(ings []Ingredient) []Draw {
	idx := make(map[int64]int, len(ings))
	var out []Draw
	for _, ing := range ings {
		i, ok := idx[ing.LotID]
		if !ok {
			i = len(out)
			idx[ing.LotID] = i
			out = append(out, Draw{LotID: ing.LotID})
		}
		out[i].Quantity = out[i].Quantity.Add(ing.Quantity)
		if ing.Unit != "" {
			out[i].Units = append(out[i].Units, ing.Unit)
		}
	}
	return out
}

// LotIDs — id лотов по возрастанию, в этом порядке они блокируются.
func LotIDs(draws []Draw) []int64 {
	ids := make([]int64, 0, len(draws))
	for _, d := range draws {
		ids = append(ids, d.LotID)
	}
	slices.Sort(ids)
	return ids
}

// CheckDraws проверяет, что все лоты существуют, единицы совпадают и остатка хватает.
// Первая же проблема прерывает проверку.
func CheckDraws(draws []Draw, lots map[int64]LotState) error {
	for _, d := range draws {
		lot, ok := lots[d.LotID]
		if !ok {
			return errs.NotFound("lot", d.LotID)
		}
		for _, u := range d.Units {
			if u != lot.Unit {
				return errs.Validation("unit", fmt.Sprintf("lot %d is measured in %s, got %s", d.LotID, lot.Unit, u))
			}
		}
		if d.Quantity.GreaterThan(lot.OnHand) {
			return &errs.InsufficientStockError{LotID: d.LotID, Requested: d.Quantity, Available: lot.OnHand}
		}
	}
	return nil
}
