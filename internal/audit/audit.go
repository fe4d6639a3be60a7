// Package audit сверяет остатки лотов с приходом, расходом и журналом движения.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/Spok95/batch-trace/internal/infra/metrics"
)

// LotBalance — три независимых взгляда на остаток одного лота.
type LotBalance struct {
	LotID    int64
	OnHand   decimal.Decimal // quantity_on_hand
	Expected decimal.Decimal // received_quantity - Σ usage
	Journal  decimal.Decimal // Σ movements
}

type Store interface {
	Balances(ctx context.Context) ([]LotBalance, error)
}

type Auditor struct {
	store   Store
	log     *slog.Logger
	timeout time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

func New(store Store, log *slog.Logger) *Auditor {
	return &Auditor{store: store, log: log, timeout: 2 * time.Minute}
}

// Check возвращает лоты, где остаток расходится с приходом минус расход или с журналом.
func (a *Auditor) Check(ctx context.Context) (_ []LotBalance, err error) {
	defer func(start time.Time) { metrics.Observe("audit", start, err) }(time.Now())

	balances, err := a.store.Balances(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	var out []LotBalance
	for _, b := range balances {
		// количества точные, любое расхождение — настоящее
		if !b.OnHand.Equal(b.Expected) || !b.OnHand.Equal(b.Journal) || b.OnHand.IsNegative() {
			out = append(out, b)
		}
	}
	metrics.SetAuditDiscrepancies(len(out))
	for _, d := range out {
		a.log.Warn("lot balance mismatch",
			"lot_id", d.LotID,
			"on_hand", d.OnHand.String(),
			"expected", d.Expected.String(),
			"journal", d.Journal.String(),
		)
	}
	a.log.Info("audit finished", "lots", len(balances), "discrepancies", len(out))
	return out, nil
}

// Start ставит проверку по расписанию cron (5 полей либо @every/@hourly и т.п.).
func (a *Auditor) Start(schedule string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cron != nil {
		return fmt.Errorf("audit already started")
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, a.run); err != nil {
		return fmt.Errorf("audit schedule %q: %w", schedule, err)
	}
	c.Start()
	a.cron = c
	a.log.Info("audit scheduled", "schedule", schedule)
	return nil
}

// Stop дожидается завершения текущей проверки.
func (a *Auditor) Stop() {
	a.mu.Lock()
	c := a.cron
	a.cron = nil
	a.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	a.log.Info("audit stopped")
}

func (a *Auditor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if _, err := a.Check(ctx); err != nil {
		a.log.Error("audit failed", "err", err)
	}
}
