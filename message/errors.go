package message

import (
	"errors"

	"github.com/fxsml/msgdriver"
)

var (
	// ErrNotFound is returned when a path does not resolve to a value.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTarget is returned when a write cannot be applied at a
	// path, for example when the target is not a container or document.
	ErrInvalidTarget = errors.New("invalid target")
)

// PathError records a failed addressing operation. It is a data error.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return "message: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() []error {
	return []error{e.Err, msgdriver.ErrData}
}
