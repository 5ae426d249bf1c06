package service

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = errors.New("product not found")
)

// ValidationError rejected request with a message meant for the user
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// LineError a cart line that aborted a bill
type LineError struct {
	Err  error
	Name string
}

func (e *LineError) Error() string {
	switch e.Err {
	case ErrInsufficientStock:
		return "Insufficient stock for " + e.Name
	case ErrProductNotFound:
		return "Product " + e.Name + " not found"
	default:
		return e.Name + ": " + e.Err.Error()
	}
}

func (e *LineError) Unwrap() error { return e.Err }
