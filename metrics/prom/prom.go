// Package prom exports driver metrics to Prometheus.
//
//	c, err := prom.NewCollector(prometheus.DefaultRegisterer)
//	...
//	d, err := driver.Open(catalog, source, key, typ,
//		driver.WithMetricsCollector(c.Observe))
package prom

import (
	"github.com/fxsml/msgdriver/driver"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "msgdriver"

// Collector holds the metric vectors fed by Observe.
type Collector struct {
	unitCalls       *prometheus.CounterVec
	unitDuration    *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		unitCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unit_calls_total",
			Help:      "Unit calls by driver, unit, call kind and outcome.",
		}, []string{"driver", "unit", "kind", "outcome"}),
		unitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "unit_duration_seconds",
			Help:      "Duration of unit calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"driver", "unit"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests by driver and outcome.",
		}, []string{"driver", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"driver"}),
	}
	for _, col := range []prometheus.Collector{c.unitCalls, c.unitDuration, c.requests, c.requestDuration} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Observe records m. It has the signature of driver.MetricsCollector.
func (c *Collector) Observe(m *driver.Metrics) {
	if m.Request() {
		c.requests.WithLabelValues(m.Driver, m.Outcome()).Inc()
		c.requestDuration.WithLabelValues(m.Driver).Observe(m.Duration.Seconds())
		return
	}
	kind := "input"
	if m.Flush {
		kind = "flush"
	}
	c.unitCalls.WithLabelValues(m.Driver, m.Unit, kind, m.Outcome()).Inc()
	c.unitDuration.WithLabelValues(m.Driver, m.Unit).Observe(m.Duration.Seconds())
}
