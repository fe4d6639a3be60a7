package production

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/batch-trace/internal/domain/errs"
	"github.com/Spok95/batch-trace/internal/domain/qty"
)

// Run — одна варка. После создания не меняется.
type Run struct {
	ID        int64
	RunDate   string
	VatNumber string
	Notes     string
	CreatedAt time.Time
	Usages    []Usage // заполняется только в GetRun
}

// Usage — ребро расхода: сколько взяли из лота в этой варке.
type Usage struct {
	ID       int64
	RunID    int64
	LotID    int64
	Quantity decimal.Decimal
}

// Ingredient — строка заявки на варку. Unit необязателен; если задан, должен совпасть с единицей лота.
type Ingredient struct {
	LotID    int64
	Quantity decimal.Decimal
	Unit     string
}

type RunRequest struct {
	RunDate     string
	VatNumber   string
	Notes       string
	Ingredients []Ingredient
}

func (r RunRequest) Normalize() (RunRequest, error) {
	r.RunDate = strings.TrimSpace(r.RunDate)
	r.VatNumber = strings.TrimSpace(r.VatNumber)
	r.Notes = strings.TrimSpace(r.Notes)
	if r.RunDate == "" {
		return r, errs.Validation("run_date", "must not be empty")
	}

	ings := make([]Ingredient, 0, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		// Несуществующий или нулевой lot_id отсеет CheckDraws как NotFound
		if err := qty.Validate(fmt.Sprintf("ingredients[%d].quantity", i), ing.Quantity); err != nil {
			return r, err
		}
		ing.Unit = strings.TrimSpace(ing.Unit)
		ings = append(ings, ing)
	}
	r.Ingredients = ings
	return r, nil
}
