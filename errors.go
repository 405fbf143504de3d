package msgdriver

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrData indicates bad or missing request data. Data errors are
	// expected during normal operation and are usually reported back to
	// the caller.
	ErrData = errors.New("msgdriver: data error")
	// ErrSystem indicates a configuration or infrastructure failure.
	ErrSystem = errors.New("msgdriver: system error")
	// ErrFatal indicates an unrecoverable failure such as a panic inside a
	// processing unit. Fatal errors bypass deferral and error handlers.
	ErrFatal = errors.New("msgdriver: fatal error")
)

// Category classifies an error by severity.
type Category int

const (
	// CategoryNone is returned for nil or uncategorized errors.
	CategoryNone Category = iota
	CategoryData
	CategorySystem
	CategoryFatal
)

func (c Category) String() string {
	switch c {
	case CategoryData:
		return "data"
	case CategorySystem:
		return "system"
	case CategoryFatal:
		return "fatal"
	default:
		return "none"
	}
}

func (c Category) sentinel() error {
	switch c {
	case CategoryData:
		return ErrData
	case CategorySystem:
		return ErrSystem
	case CategoryFatal:
		return ErrFatal
	default:
		return nil
	}
}

type categoryError struct {
	category error
	cause    error
}

func (e *categoryError) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return e.category.Error()
}

func (e *categoryError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.category}
	}
	return []error{e.category, e.cause}
}

// DataErrorf formats a new data error.
func DataErrorf(format string, args ...any) error {
	return &categoryError{category: ErrData, cause: fmt.Errorf(format, args...)}
}

// SystemErrorf formats a new system error.
func SystemErrorf(format string, args ...any) error {
	return &categoryError{category: ErrSystem, cause: fmt.Errorf(format, args...)}
}

// AsData marks err as a data error. Errors already in the data category are
// returned unchanged.
func AsData(err error) error {
	if err == nil || errors.Is(err, ErrData) {
		return err
	}
	return &categoryError{category: ErrData, cause: err}
}

// AsSystem marks err as a system error. Errors already in the system
// category are returned unchanged.
func AsSystem(err error) error {
	if err == nil || errors.Is(err, ErrSystem) {
		return err
	}
	return &categoryError{category: ErrSystem, cause: err}
}

// Categorize returns err unchanged if it already carries a category and
// wraps it as a system error otherwise.
func Categorize(err error) error {
	if err == nil || CategoryOf(err) != CategoryNone {
		return err
	}
	return &categoryError{category: ErrSystem, cause: err}
}

// IsData reports whether err is in the data category.
func IsData(err error) bool { return errors.Is(err, ErrData) }

// IsSystem reports whether err is in the system category.
func IsSystem(err error) bool { return errors.Is(err, ErrSystem) }

// IsFatal reports whether err is in the fatal category.
func IsFatal(err error) bool { return errors.Is(err, ErrFatal) }

// CategoryOf returns the most severe category err belongs to.
func CategoryOf(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case IsFatal(err):
		return CategoryFatal
	case IsSystem(err):
		return CategorySystem
	case IsData(err):
		return CategoryData
	default:
		return CategoryNone
	}
}

// AggregateError combines several errors collected while processing a
// single request.
type AggregateError struct {
	category Category
	errs     []error
}

// Aggregate combines errs into a single error. Nil entries are ignored. A
// single error is returned unchanged. Several errors are combined into an
// *AggregateError whose message lists each error on its own line and whose
// category is the most severe one found; uncategorized errors count as
// system errors. errors.Is and errors.As match every contained error.
func Aggregate(errs ...error) error {
	var kept []error
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	agg := &AggregateError{category: CategoryData, errs: kept}
	for _, err := range kept {
		c := CategoryOf(err)
		if c == CategoryNone {
			c = CategorySystem
		}
		if c > agg.category {
			agg.category = c
		}
	}
	return agg
}

func (e *AggregateError) Error() string {
	msgs := make([]string, len(e.errs))
	for i, err := range e.errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

func (e *AggregateError) Unwrap() []error {
	return append([]error{e.category.sentinel()}, e.errs...)
}

// Category returns the category of the aggregate.
func (e *AggregateError) Category() Category { return e.category }

// Errors returns the contained errors in the order they were collected.
func (e *AggregateError) Errors() []error { return e.errs }
