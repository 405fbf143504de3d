package driver

import (
	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/txn"
	"github.com/google/uuid"
)

type options struct {
	log        msgdriver.Logger
	logConfig  msgdriver.LogConfig
	pool       txn.Pool
	collectors []MetricsCollector
	env        *config.Loader
	newID      func() string
}

func (o *options) parse() {
	if o.log == nil {
		o.log = msgdriver.DefaultLogger()
	}
	o.logConfig = o.logConfig.Parse()
	if o.newID == nil {
		o.newID = uuid.NewString
	}
}

// Option configures a Driver.
type Option func(*options)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log msgdriver.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithLogConfig controls how request outcomes are logged.
func WithLogConfig(cfg msgdriver.LogConfig) Option {
	return func(o *options) {
		o.logConfig = cfg
	}
}

// WithPool sets the pool contexts created by Process acquire their
// transactional resource from.
func WithPool(pool txn.Pool) Option {
	return func(o *options) {
		o.pool = pool
	}
}

// WithMetricsCollector adds a collector receiving metrics for every unit
// call and every request. Can be used multiple times.
func WithMetricsCollector(c MetricsCollector) Option {
	return func(o *options) {
		o.collectors = append(o.collectors, c)
	}
}

// WithEnv overlays environment variables on the parsed Settings during
// Initialize, using the driver key as the stage.
func WithEnv(loader config.Loader) Option {
	return func(o *options) {
		o.env = &loader
	}
}

// WithRequestIDFunc replaces the generator of request ids. Defaults to
// random UUIDs.
func WithRequestIDFunc(f func() string) Option {
	return func(o *options) {
		o.newID = f
	}
}
