package inventory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/batch-trace/internal/domain/errs"
	"github.com/Spok95/batch-trace/internal/domain/qty"
)

type MoveType string

const (
	MoveIn  MoveType = "in"
	MoveOut MoveType = "out"
)

// Lot — партия сырья от поставщика. LotCode уникален только в пределах поставщика/материала.
type Lot struct {
	ID               int64
	Material         string
	LotCode          string
	ReceivedQuantity decimal.Decimal
	QuantityOnHand   decimal.Decimal
	Unit             string
	ReceivedAt       time.Time
}

// Movement — строка журнала движения по лоту. Qty со знаком: приход > 0, расход < 0.
type Movement struct {
	ID        int64
	LotID     int64
	Type      MoveType
	Qty       decimal.Decimal
	RunID     *int64
	CreatedAt time.Time
}

type Receipt struct {
	Material string
	LotCode  string
	Quantity decimal.Decimal
	Unit     string
}

// Normalize обрезает пробелы и проверяет обязательные поля.
func (r Receipt) Normalize() (Receipt, error) {
	r.Material = strings.TrimSpace(r.Material)
	r.LotCode = strings.TrimSpace(r.LotCode)
	r.Unit = strings.TrimSpace(r.Unit)

	switch {
	case r.Material == "":
		return r, errs.Validation("material", "must not be empty")
	case r.LotCode == "":
		return r, errs.Validation("lot_code", "must not be empty")
	case r.Unit == "":
		return r, errs.Validation("unit", "must not be empty")
	}
	return r, qty.Validate("quantity", r.Quantity)
}
