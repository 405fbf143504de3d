package driver

import (
	"context"
	"time"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
	"github.com/fxsml/msgdriver/unit"
)

// Driver routes requests through a configured set of units. After
// Initialize it is immutable and safe for concurrent Process calls; every
// request gets its own unit instances, pending stack and dependency tree.
type Driver struct {
	catalog *unit.Catalog
	source  config.PropertySource
	cfg     options

	loc      config.Locator
	settings Settings
	units    []UnitInfo
	byName   map[string]int
	handler  *UnitInfo
	ready    bool
}

// New returns a driver resolving unit classes in catalog and properties in
// source. Call Initialize before Process.
func New(catalog *unit.Catalog, source config.PropertySource, opts ...Option) *Driver {
	d := &Driver{catalog: catalog, source: source}
	for _, opt := range opts {
		opt(&d.cfg)
	}
	d.cfg.parse()
	return d
}

// Open is New followed by Initialize.
func Open(catalog *unit.Catalog, source config.PropertySource, key, typ string, opts ...Option) (*Driver, error) {
	d := New(catalog, source, opts...)
	if err := d.Initialize(key, typ); err != nil {
		return nil, err
	}
	return d, nil
}

// Initialize reads the driver properties located by key and typ and the
// properties of every unit they list.
func (d *Driver) Initialize(key, typ string) error {
	if d.ready {
		return msgdriver.SystemErrorf("driver: already initialized as %s", d.loc)
	}
	props, err := d.source.Properties(key, typ)
	if err != nil {
		return msgdriver.AsSystem(err)
	}
	settings, err := ParseSettings(props)
	if err != nil {
		return err
	}
	if d.cfg.env != nil {
		if err := d.cfg.env.Load(key, &settings); err != nil {
			return msgdriver.AsSystem(err)
		}
	}
	if err := settings.validate(); err != nil {
		return err
	}

	units, err := readUnits(props, d.source)
	if err != nil {
		return err
	}
	byName := make(map[string]int, len(units))
	for i, u := range units {
		if _, dup := byName[u.Name]; dup {
			return msgdriver.SystemErrorf("driver: duplicate unit name %q", u.Name)
		}
		if !d.catalog.Has(u.Class) {
			return msgdriver.SystemErrorf("driver: unit %q has unknown class %q", u.Name, u.Class)
		}
		byName[u.Name] = i
	}
	if _, ok := byName[message.Root]; !ok {
		return msgdriver.SystemErrorf("driver: no unit named %s", message.Root)
	}

	if settings.ErrorClass != "" {
		if !d.catalog.Has(settings.ErrorClass) {
			return msgdriver.SystemErrorf("driver: unknown error handler class %q", settings.ErrorClass)
		}
		h, err := readUnit(d.source, settings.ErrorClass, settings.ErrorKey, settings.ErrorType)
		if err != nil {
			return err
		}
		d.handler = &h
	}

	d.loc = config.Locator{Key: key, Type: typ}
	d.settings = settings
	d.units = units
	d.byName = byName
	d.ready = true
	d.cfg.log.Debug("Driver initialized", "driver", d.loc.String(), "units", len(units))
	return nil
}

// Locator returns the key and type the driver was initialized from.
func (d *Driver) Locator() config.Locator { return d.loc }

// Settings returns the parsed driver settings.
func (d *Driver) Settings() Settings { return d.settings }

// Units returns the configured units in configuration order.
func (d *Driver) Units() []UnitInfo {
	return append([]UnitInfo(nil), d.units...)
}

// Has reports whether a unit named name is configured.
func (d *Driver) Has(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// Process runs request through the units using a new shared context that
// owns its transaction.
func (d *Driver) Process(ctx context.Context, request message.Value) (message.Value, error) {
	sc := shared.New(shared.WithPool(d.cfg.pool), shared.WithLogger(d.cfg.log))
	return d.ProcessWith(ctx, sc, request)
}

// ProcessWith runs request using sc. The transaction is committed or
// rolled back only if sc owns it.
func (d *Driver) ProcessWith(ctx context.Context, sc *shared.Context, request message.Value) (message.Value, error) {
	if !d.ready {
		return nil, msgdriver.SystemErrorf("driver: not initialized")
	}
	if sc == nil {
		return nil, msgdriver.SystemErrorf("driver: nil shared context")
	}
	if request == nil {
		return nil, msgdriver.DataErrorf("driver: nil request")
	}

	md := msgdriver.Metadata{msgdriver.MetadataDriver: d.loc.String()}
	if _, ok := msgdriver.MetadataFromContext(ctx)[msgdriver.MetadataRequestID]; !ok {
		md[msgdriver.MetadataRequestID] = d.cfg.newID()
	}
	ctx = msgdriver.ContextWithMetadata(ctx, md)
	md = msgdriver.MetadataFromContext(ctx)
	log := msgdriver.WithArgs(d.cfg.log, md.Args()...)

	start := time.Now()
	r := newRun(d, sc, md, log)
	resp, err := r.process(ctx, request)
	d.collect(&Metrics{
		Driver:   d.loc.String(),
		Start:    start,
		Duration: time.Since(start),
		Metadata: md,
		Error:    err,
	})

	lc := d.cfg.logConfig
	if err != nil {
		msgdriver.LogFunc(lc.LevelFailure, log)(lc.MessageFailure,
			"duration", time.Since(start), "category", msgdriver.CategoryOf(err).String(), "error", err)
		return nil, err
	}
	msgdriver.LogFunc(lc.LevelSuccess, log)(lc.MessageSuccess, "duration", time.Since(start))
	return d.response(resp), nil
}

func (d *Driver) response(v message.Value) message.Value {
	if !d.settings.ReturnString || v == nil {
		return v
	}
	if s, ok := message.String(v); ok {
		return message.Scalar(s)
	}
	return v
}

func (d *Driver) env(log msgdriver.Logger) unit.Env {
	return unit.Env{Catalog: d.catalog, Source: d.source, Logger: log}
}
