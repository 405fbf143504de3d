package driver

import (
	"time"

	"github.com/fxsml/msgdriver"
)

// Metrics describes a single unit call, or a whole request when Unit is
// empty.
type Metrics struct {
	Driver   string
	Unit     string
	Start    time.Time
	Duration time.Duration
	// Flush is set for unit calls without input.
	Flush bool
	// Outputs counts the messages a unit call emitted.
	Outputs int

	Metadata msgdriver.Metadata

	Error error
}

// Request reports whether m describes a whole request.
func (m *Metrics) Request() bool {
	return m.Unit == ""
}

// Success returns 1 for success, 0 otherwise.
func (m *Metrics) Success() int {
	if m.Error == nil {
		return 1
	}
	return 0
}

// Failure returns 1 for failure, 0 otherwise.
func (m *Metrics) Failure() int {
	if m.Error != nil {
		return 1
	}
	return 0
}

// Outcome returns "success" or the category of the error.
func (m *Metrics) Outcome() string {
	if m.Error == nil {
		return "success"
	}
	c := msgdriver.CategoryOf(m.Error)
	if c == msgdriver.CategoryNone {
		c = msgdriver.CategorySystem
	}
	return c.String()
}

// MetricsCollector receives metrics.
type MetricsCollector func(metrics *Metrics)

func (d *Driver) collect(m *Metrics) {
	for _, c := range d.cfg.collectors {
		c(m)
	}
}
