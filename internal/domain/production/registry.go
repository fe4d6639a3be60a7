package production

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Spok95/batch-trace/internal/domain/errs"
	"github.com/Spok95/batch-trace/internal/infra/metrics"
)

const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 500
)

// Store — хранилище варок. CreateRun обязан быть атомарным: проверка остатков,
// запись варки, рёбер расхода, журнала и списание — одна транзакция.
// GetRun возвращает (nil, nil), если варки нет.
type Store interface {
	CreateRun(ctx context.Context, req RunRequest, draws []Draw, createdAt time.Time) (int64, error)
	ListRecentRuns(ctx context.Context, limit int) ([]Run, error)
	GetRun(ctx context.Context, id int64) (*Run, error)
}

type Registry struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func NewRegistry(store Store, log *slog.Logger) *Registry {
	return &Registry{store: store, log: log, now: time.Now}
}

// StartRun создаёт варку вместе со списанием сырья. При любой ошибке ничего не записывается.
// Повтор при нехватке остатка — забота вызывающего.
func (g *Registry) StartRun(ctx context.Context, req RunRequest) (_ int64, err error) {
	defer func(start time.Time) { metrics.Observe("start_run", start, err) }(time.Now())

	req, err = req.Normalize()
	if err != nil {
		return 0, err
	}
	draws := PlanDraws(req.Ingredients)

	id, err := g.store.CreateRun(ctx, req, draws, g.now().UTC())
	if err != nil {
		if errs.IsBusiness(err) {
			g.log.Warn("run rejected", "run_date", req.RunDate, "vat", req.VatNumber, "err", err)
			return 0, err
		}
		return 0, fmt.Errorf("start run: %w", err)
	}
	g.log.Info("run started",
		"run_id", id,
		"run_date", req.RunDate,
		"vat", req.VatNumber,
		"ingredients", len(req.Ingredients),
		"lots", len(draws),
	)
	return id, nil
}

func (g *Registry) ListRecentRuns(ctx context.Context, limit int) (_ []Run, err error) {
	defer func(start time.Time) { metrics.Observe("list_recent_runs", start, err) }(time.Now())

	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	runs, err := g.store.ListRecentRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// GetRun — варка со всеми рёбрами расхода в порядке создания.
func (g *Registry) GetRun(ctx context.Context, id int64) (_ *Run, err error) {
	defer func(start time.Time) { metrics.Observe("get_run", start, err) }(time.Now())

	run, err := g.store.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get run %d: %w", id, err)
	}
	if run == nil {
		return nil, errs.NotFound("run", id)
	}
	return run, nil
}
