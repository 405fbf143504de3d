package driver

import (
	"github.com/fxsml/msgdriver/message"
)

// UnitError reports the unit a failure occurred in.
type UnitError struct {
	Unit string
	Err  error
}

func (e *UnitError) Error() string {
	return "unit " + e.Unit + ": " + e.Err.Error()
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// ErrorRecord captures a failed unit call for the error handler.
type ErrorRecord struct {
	Unit  string
	Input message.Value
	Err   error
}

// ErrorRecords returns the records stored as a context value by the
// driver, most recent first.
func ErrorRecords(v message.Value) ([]ErrorRecord, bool) {
	n, ok := v.(message.Native)
	if !ok {
		return nil, false
	}
	records, ok := n.V.([]ErrorRecord)
	return records, ok
}

// ErrorValue returns the error stored as a context value by the driver,
// or nil when v does not hold one.
func ErrorValue(v message.Value) error {
	n, ok := v.(message.Native)
	if !ok {
		return nil
	}
	err, _ := n.V.(error)
	return err
}
