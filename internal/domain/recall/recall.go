// Package recall блокирует продукцию из подозрительного лота сырья.
package recall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Spok95/batch-trace/internal/domain/errs"
	"github.com/Spok95/batch-trace/internal/domain/finished"
	"github.com/Spok95/batch-trace/internal/domain/lineage"
	"github.com/Spok95/batch-trace/internal/infra/metrics"
)

type Tracer interface {
	TraceBackward(ctx context.Context, lotID int64) ([]lineage.UnitSummary, error)
}

type StatusSetter interface {
	SetStatus(ctx context.Context, unitID int64, status finished.Status) error
}

type Result struct {
	LotID   int64
	Held    []lineage.UnitSummary
	Skipped []lineage.UnitSummary // уже Held или в конечном статусе
}

type Service struct {
	tracer Tracer
	units  StatusSetter
	log    *slog.Logger
}

func NewService(tracer Tracer, units StatusSetter, log *slog.Logger) *Service {
	return &Service{tracer: tracer, units: units, log: log}
}

// Affected — изделия под отзывом, без изменений.
func (s *Service) Affected(ctx context.Context, lotID int64) ([]lineage.UnitSummary, error) {
	return s.tracer.TraceBackward(ctx, lotID)
}

// Hold переводит все изделия в Aging из затронутых варок в Held.
// Каждое изделие — отдельная транзакция; при ошибке возвращается то, что уже сделано.
func (s *Service) Hold(ctx context.Context, lotID int64) (res Result, err error) {
	defer func(start time.Time) { metrics.Observe("recall_hold", start, err) }(time.Now())

	res.LotID = lotID
	units, err := s.tracer.TraceBackward(ctx, lotID)
	if err != nil {
		return res, err
	}

	for _, u := range units {
		if u.Status != finished.StatusAging {
			res.Skipped = append(res.Skipped, u)
			continue
		}
		err := s.units.SetStatus(ctx, u.UnitID, finished.StatusHeld)
		switch {
		case err == nil:
			u.Status = finished.StatusHeld
			res.Held = append(res.Held, u)
		case errors.Is(err, errs.ErrInvalidTransition):
			// статус успели сменить между трассировкой и блокировкой
			res.Skipped = append(res.Skipped, u)
		default:
			return res, fmt.Errorf("hold unit %s: %w", u.Serial, err)
		}
	}

	s.log.Warn("lot recalled",
		"lot_id", lotID,
		"held", len(res.Held),
		"skipped", len(res.Skipped),
	)
	return res, nil
}
