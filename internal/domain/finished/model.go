package finished

import (
	"math"
	"strings"
	"time"

	"github.com/Spok95/batch-trace/internal/domain/errs"
)

type Status string

const (
	StatusAging     Status = "Aging"
	StatusReleased  Status = "Released"
	StatusHeld      Status = "Held"
	StatusDestroyed Status = "Destroyed"
)

// разрешённые переходы; Released и Destroyed конечные
var transitions = map[Status][]Status{
	StatusAging: {StatusReleased, StatusHeld, StatusDestroyed},
	StatusHeld:  {StatusReleased, StatusDestroyed},
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.TrimSpace(s)); st {
	case StatusAging, StatusReleased, StatusHeld, StatusDestroyed:
		return st, nil
	}
	return "", errs.Validation("status", "unknown status "+s)
}

func (s Status) Terminal() bool { return s == StatusReleased || s == StatusDestroyed }

// CanTransition сообщает, допустим ли переход. Переход в тот же статус запрещён.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Unit — готовое изделие (головка сыра). Serial уникален навсегда.
type Unit struct {
	ID        int64
	RunID     int64
	Serial    string
	Weight    float64
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

func normalizeUnit(runID int64, weight float64, serial string) (string, error) {
	serial = strings.TrimSpace(serial)
	switch {
	case runID <= 0:
		return "", errs.Validation("run_id", "must be a valid run id")
	case serial == "":
		return "", errs.Validation("serial_number", "must not be empty")
	case math.IsNaN(weight) || math.IsInf(weight, 0):
		return "", errs.Validation("weight", "must be a finite number")
	case weight <= 0:
		return "", errs.Validation("weight", "must be > 0")
	}
	return serial, nil
}
