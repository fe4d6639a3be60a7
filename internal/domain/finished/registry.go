package finished

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Spok95/batch-trace/internal/domain/errs"
	"github.com/Spok95/batch-trace/internal/infra/metrics"
)

// Store — хранилище изделий.
// InsertUnit возвращает NotFoundError, если варки нет, и DuplicateSerialError при повторе серийника.
// UpdateStatus сам проверяет переход внутри транзакции и возвращает прежний статус.
// GetUnit/GetUnitBySerial возвращают (nil, nil), если изделия нет.
type Store interface {
	InsertUnit(ctx context.Context, runID int64, serial string, weight float64, at time.Time) (int64, error)
	UpdateStatus(ctx context.Context, id int64, to Status, at time.Time) (Status, error)
	GetUnit(ctx context.Context, id int64) (*Unit, error)
	GetUnitBySerial(ctx context.Context, serial string) (*Unit, error)
	ListUnitsByRun(ctx context.Context, runID int64) ([]Unit, error)
	RunExists(ctx context.Context, runID int64) (bool, error)
}

type Registry struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func NewRegistry(store Store, log *slog.Logger) *Registry {
	return &Registry{store: store, log: log, now: time.Now}
}

// RecordUnit регистрирует изделие из варки. Новое изделие всегда в статусе Aging.
func (g *Registry) RecordUnit(ctx context.Context, runID int64, weight float64, serial string) (_ int64, err error) {
	defer func(start time.Time) { metrics.Observe("record_unit", start, err) }(time.Now())

	serial, err = normalizeUnit(runID, weight, serial)
	if err != nil {
		return 0, err
	}
	id, err := g.store.InsertUnit(ctx, runID, serial, weight, g.now().UTC())
	if err != nil {
		if errs.IsBusiness(err) {
			g.log.Warn("unit rejected", "run_id", runID, "serial", serial, "err", err)
			return 0, err
		}
		return 0, fmt.Errorf("record unit: %w", err)
	}
	g.log.Info("unit recorded", "unit_id", id, "run_id", runID, "serial", serial, "weight", weight)
	return id, nil
}

func (g *Registry) SetStatus(ctx context.Context, unitID int64, status Status) (err error) {
	defer func(start time.Time) { metrics.Observe("set_status", start, err) }(time.Now())

	to, err := ParseStatus(string(status))
	if err != nil {
		return err
	}
	from, err := g.store.UpdateStatus(ctx, unitID, to, g.now().UTC())
	if err != nil {
		if errs.IsBusiness(err) {
			g.log.Warn("status change rejected", "unit_id", unitID, "to", to, "err", err)
			return err
		}
		return fmt.Errorf("set status: %w", err)
	}
	g.log.Info("unit status changed", "unit_id", unitID, "from", from, "to", to)
	return nil
}

func (g *Registry) Get(ctx context.Context, unitID int64) (_ *Unit, err error) {
	defer func(start time.Time) { metrics.Observe("get_unit", start, err) }(time.Now())

	u, err := g.store.GetUnit(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("get unit %d: %w", unitID, err)
	}
	if u == nil {
		return nil, errs.NotFound("unit", unitID)
	}
	return u, nil
}

func (g *Registry) GetBySerial(ctx context.Context, serial string) (_ *Unit, err error) {
	defer func(start time.Time) { metrics.Observe("get_unit_by_serial", start, err) }(time.Now())

	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil, errs.NotFound("unit", serial)
	}
	u, err := g.store.GetUnitBySerial(ctx, serial)
	if err != nil {
		return nil, fmt.Errorf("get unit %q: %w", serial, err)
	}
	if u == nil {
		return nil, errs.NotFound("unit", serial)
	}
	return u, nil
}

// ListByRun — изделия варки по возрастанию id.
func (g *Registry) ListByRun(ctx context.Context, runID int64) (_ []Unit, err error) {
	defer func(start time.Time) { metrics.Observe("list_units", start, err) }(time.Now())

	ok, err := g.store.RunExists(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	if !ok {
		return nil, errs.NotFound("run", runID)
	}
	units, err := g.store.ListUnitsByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return units, nil
}
