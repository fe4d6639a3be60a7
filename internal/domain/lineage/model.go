package lineage

import (
	"github.com/shopspring/decimal"

	"github.com/Spok95/batch-trace/internal/domain/finished"
)

// Ingredient — одно ребро расхода варки вместе с данными лота.
type Ingredient struct {
	UsageID  int64
	LotID    int64
	Material string
	LotCode  string
	Quantity decimal.Decimal
	Unit     string
}

// Report — прямая прослеживаемость: изделие, его варка и всё сырьё варки
// в порядке создания рёбер.
type Report struct {
	UnitID      int64
	Serial      string
	Status      finished.Status
	Weight      float64
	RunID       int64
	RunDate     string
	VatNumber   string
	Notes       string
	Ingredients []Ingredient
}

type UnitSummary struct {
	UnitID  int64
	Serial  string
	Status  finished.Status
	Weight  float64
	RunID   int64
	RunDate string
}
