package errs

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Сентинелы для errors.Is. Конкретные типы ниже несут детали (id лота, серийник и т.п.).
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateSerial   = errors.New("duplicate serial number")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type ValidationError struct {
	Field  string
	Reason string
}

func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError — ссылка на несуществующий лот/варку/изделие.
type NotFoundError struct {
	Entity string // lot | run | unit
	Key    string
}

func NotFound(entity string, key any) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type InsufficientStockError struct {
	LotID     int64
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock in lot %d: requested %s, available %s", e.LotID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

type DuplicateSerialError struct {
	Serial string
}

func (e *DuplicateSerialError) Error() string {
	return fmt.Sprintf("serial number %q already used", e.Serial)
}

func (e *DuplicateSerialError) Is(target error) bool { return target == ErrDuplicateSerial }

type InvalidTransitionError struct {
	UnitID int64
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("unit %d: transition %s -> %s not allowed", e.UnitID, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// Kind возвращает стабильную метку ошибки для метрик и логов.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrDuplicateSerial):
		return "duplicate_serial"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "error"
	}
}

// IsBusiness — ошибка вызывающей стороны или бизнес-правила, а не инфраструктуры.
func IsBusiness(err error) bool {
	k := Kind(err)
	return k != "ok" && k != "error"
}
