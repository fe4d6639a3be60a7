// Package qty — количества сырья. Хранятся с фиксированной точностью: NUMERIC(20,4)
// в Postgres и целым числом десятитысячных в sqlite.
package qty

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Spok95/batch-trace/internal/domain/errs"
)

// Scale — знаков после запятой.
const Scale = 4

// Max — верхняя граница количества (не включительно), помещается и в NUMERIC(20,4), и в int64 десятитысячных.
var Max = decimal.New(1, 12)

// Validate проверяет, что q > 0, не длиннее Scale знаков и меньше Max.
func Validate(field string, q decimal.Decimal) error {
	switch {
	case !q.IsPositive():
		return errs.Validation(field, "must be > 0")
	case !q.Equal(q.Truncate(Scale)):
		return errs.Validation(field, "at most 4 decimal places")
	case q.GreaterThanOrEqual(Max):
		return errs.Validation(field, "too large")
	}
	return nil
}

// Parse принимает и запятую, и точку как десятичный разделитель.
func Parse(field, s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	q, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errs.Validation(field, "not a number: "+s)
	}
	return q, nil
}

// ToUnits / FromUnits — перевод в целые десятитысячные для sqlite.
func ToUnits(q decimal.Decimal) int64 { return q.Shift(Scale).IntPart() }

func FromUnits(n int64) decimal.Decimal { return decimal.New(n, -Scale) }
