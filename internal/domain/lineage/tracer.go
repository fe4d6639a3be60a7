package lineage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/batch-trace/internal/domain/errs"
	"github.com/Spok95/batch-trace/internal/infra/metrics"
)

// Store читает граф партий одним снимком.
// Forward возвращает (nil, nil), если изделия нет.
// Backward возвращает NotFoundError, если лота нет, и пустой список, если лот никуда не ушёл.
type Store interface {
	Forward(ctx context.Context, serial string) (*Report, error)
	Backward(ctx context.Context, lotID int64) ([]UnitSummary, error)
}

// Tracer ничего не пишет.
type Tracer struct {
	store Store
}

func NewTracer(store Store) *Tracer { return &Tracer{store: store} }

// TraceForward: изделие -> варка -> сырьё.
func (t *Tracer) TraceForward(ctx context.Context, serial string) (_ *Report, err error) {
	defer func(start time.Time) { metrics.Observe("trace_forward", start, err) }(time.Now())

	serial = strings.TrimSpace(serial)
	// пустой серийник ни одному изделию не принадлежит
	if serial == "" {
		return nil, errs.NotFound("unit", serial)
	}
	rep, err := t.store.Forward(ctx, serial)
	if err != nil {
		return nil, fmt.Errorf("trace %q: %w", serial, err)
	}
	if rep == nil {
		return nil, errs.NotFound("unit", serial)
	}
	return rep, nil
}

// TraceBackward: лот -> все изделия всех варок, где он расходовался.
// Порядок: id варки, затем id изделия.
func (t *Tracer) TraceBackward(ctx context.Context, lotID int64) (_ []UnitSummary, err error) {
	defer func(start time.Time) { metrics.Observe("trace_backward", start, err) }(time.Now())

	units, err := t.store.Backward(ctx, lotID)
	if err != nil {
		if errs.IsBusiness(err) {
			return nil, err
		}
		return nil, fmt.Errorf("backtrace lot %d: %w", lotID, err)
	}
	return units, nil
}
