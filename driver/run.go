package driver

import (
	"context"
	"errors"
	"time"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/deptree"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
	"github.com/fxsml/msgdriver/unit"
)

// run holds the state of one request.
type run struct {
	d   *Driver
	sc  *shared.Context
	md  msgdriver.Metadata
	log msgdriver.Logger

	instances map[string]unit.Unit
	order     []string
	pending   []message.NamedMessage
	tree      *deptree.Tree
	deferred  []error
	records   []ErrorRecord
}

func newRun(d *Driver, sc *shared.Context, md msgdriver.Metadata, log msgdriver.Logger) *run {
	return &run{
		d:         d,
		sc:        sc,
		md:        md,
		log:       log,
		instances: make(map[string]unit.Unit),
		tree:      deptree.New(message.Root, d.Has, log),
	}
}

func (r *run) process(ctx context.Context, request message.Value) (message.Value, error) {
	resp, err := r.loop(ctx, request)
	r.log.Debug("Dependency tree", "tree", r.tree.Describe())

	if err == nil && len(r.deferred) > 0 {
		err = msgdriver.Aggregate(r.deferred...)
	}
	if err == nil {
		err = r.sc.Commit()
	}
	if err != nil {
		if msgdriver.IsFatal(err) {
			r.logFatal(err)
			r.rollback()
		} else {
			resp, err = r.handleError(ctx, request, err)
		}
	}

	if cerr := r.cleanup(ctx); cerr != nil {
		if err != nil {
			r.log.Error("Cleanup failed after request failure", "error", cerr)
		} else {
			err = cerr
		}
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *run) loop(ctx context.Context, request message.Value) (message.Value, error) {
	r.pending = append(r.pending, message.To(message.Root, request))
	for {
		if err := ctx.Err(); err != nil {
			return nil, msgdriver.AsSystem(err)
		}

		var next message.NamedMessage
		flush := false
		if n := len(r.pending); n > 0 {
			next = r.pending[n-1]
			r.pending = r.pending[:n-1]
		} else {
			name, ok := r.tree.Candidate()
			if !ok {
				return nil, nil
			}
			next = message.NamedMessage{Name: name}
			flush = true
		}

		out, err := r.execute(ctx, next, flush)
		if err != nil {
			if msgdriver.IsFatal(err) {
				return nil, err
			}
			r.remember(next, err)
			if !r.d.settings.DeferErrors {
				return nil, err
			}
			r.log.Warn("Deferring unit failure", "unit", next.Name, "error", err)
			r.deferred = append(r.deferred, err)
			if flush {
				r.tree.SetDone(next.Name)
			}
			continue
		}

		if flush && out.Len() == 0 {
			r.tree.SetDone(next.Name)
			continue
		}

		msgs := out.Messages()
		names := make([]string, 0, len(msgs))
		for _, m := range msgs {
			if m.Name == "" {
				return nil, msgdriver.SystemErrorf("driver: unit %q emitted a message without a name", next.Name)
			}
			if !m.Discard() {
				names = append(names, m.Name)
			}
		}
		r.tree.Attach(next.Name, names)

		for _, m := range msgs {
			if m.Discard() {
				continue
			}
			if m.Name == message.CommServer {
				if !r.d.settings.Async {
					return m.Value, nil
				}
				if !r.d.Has(message.CommServer) {
					r.log.Debug("Dropping response in async mode", "unit", next.Name)
					continue
				}
			}
			r.pending = append(r.pending, m)
		}
	}
}

func (r *run) instance(name string) (unit.Unit, error) {
	if u, ok := r.instances[name]; ok {
		return u, nil
	}
	i, ok := r.d.byName[name]
	if !ok {
		return nil, msgdriver.SystemErrorf("driver: no unit named %q", name)
	}
	info := r.d.units[i]
	u, err := r.d.catalog.New(info.Class, r.d.env(r.log), info.Props.Clone())
	if err != nil {
		return nil, err
	}
	r.instances[name] = u
	r.order = append(r.order, name)
	return u, nil
}

func (r *run) execute(ctx context.Context, m message.NamedMessage, flush bool) (unit.Outputs, error) {
	u, err := r.instance(m.Name)
	if err != nil {
		return unit.None(), err
	}
	var in *message.Object
	if !flush {
		in = message.NewObject(m.Value)
	}

	start := time.Now()
	out, err := msgdriver.Recover(func() (unit.Outputs, error) {
		return u.Process(ctx, r.sc, in)
	})
	if err != nil {
		err = msgdriver.Categorize(&UnitError{Unit: m.Name, Err: err})
	}
	r.d.collect(&Metrics{
		Driver:   r.d.loc.String(),
		Unit:     m.Name,
		Start:    start,
		Duration: time.Since(start),
		Flush:    flush,
		Outputs:  out.Len(),
		Metadata: r.md,
		Error:    err,
	})
	if err != nil {
		return unit.None(), err
	}
	r.log.Debug("Unit processed", "unit", m.Name, "flush", flush, "outputs", out.Len())
	return out, nil
}

func (r *run) remember(m message.NamedMessage, err error) {
	if r.d.settings.ErrorContextLocation == "" {
		return
	}
	rec := ErrorRecord{Unit: m.Name, Input: m.Value, Err: err}
	r.records = append([]ErrorRecord{rec}, r.records...)
	if limit := r.d.settings.ErrorContextLimit; len(r.records) > limit {
		r.records = r.records[:limit]
	}
}

// handleError gives the configured error handler a chance to turn err into
// a response. It returns the response to commit, or the error to return
// after rolling back.
func (r *run) handleError(ctx context.Context, request message.Value, err error) (message.Value, error) {
	if r.d.handler == nil {
		r.rollback()
		return nil, err
	}
	s := r.d.settings
	if s.ErrorLocation != "" {
		if serr := r.sc.Set(s.ErrorLocation, message.Native{V: err}); serr != nil {
			r.log.Error("Storing error for handler failed", "error", serr)
		}
	}
	if len(r.records) > 0 {
		records := append([]ErrorRecord(nil), r.records...)
		if serr := r.sc.Set(s.ErrorContextLocation, message.Native{V: records}); serr != nil {
			r.log.Error("Storing error records for handler failed", "error", serr)
		}
	}

	v := r.runHandler(ctx, request)
	if v == nil {
		r.rollback()
		return nil, err
	}
	if herr := ErrorValue(v); herr != nil {
		r.rollback()
		return nil, msgdriver.Categorize(herr)
	}
	if cerr := r.sc.Commit(); cerr != nil {
		r.rollback()
		return nil, cerr
	}
	r.log.Info("Error handler recovered request", "error", err)
	return v, nil
}

// runHandler returns the value of the handler's first output. Failures
// inside the handler are logged and yield nil.
func (r *run) runHandler(ctx context.Context, request message.Value) message.Value {
	h := r.d.handler
	u, err := r.d.catalog.New(h.Class, r.d.env(r.log), h.Props.Clone())
	if err != nil {
		r.log.Error("Creating error handler failed", "class", h.Class, "error", err)
		return nil
	}
	defer func() {
		if cerr := u.Cleanup(ctx); cerr != nil {
			r.log.Error("Error handler cleanup failed", "unit", h.Name, "error", cerr)
		}
	}()

	out, err := msgdriver.Recover(func() (unit.Outputs, error) {
		return u.Process(ctx, r.sc, message.NewObject(request))
	})
	if err != nil {
		r.log.Error("Error handler failed", "unit", h.Name, "error", err)
		return nil
	}
	if msgs := out.Messages(); len(msgs) > 0 {
		return msgs[0].Value
	}
	return nil
}

func (r *run) rollback() {
	if err := r.sc.Rollback(); err != nil {
		r.log.Error("Rollback failed", "error", err)
	}
}

func (r *run) logFatal(err error) {
	var rec *msgdriver.RecoveryError
	if errors.As(err, &rec) {
		r.log.Error("Fatal failure", "error", err, "stack", rec.StackTrace)
		return
	}
	r.log.Error("Fatal failure", "error", err)
}

// cleanup calls Cleanup on every unit created for the request and
// combines the failures.
func (r *run) cleanup(ctx context.Context) error {
	var errs []error
	for _, name := range r.order {
		u := r.instances[name]
		_, err := msgdriver.Recover(func() (struct{}, error) {
			return struct{}{}, u.Cleanup(ctx)
		})
		if err != nil {
			errs = append(errs, &UnitError{Unit: name, Err: err})
		}
	}
	return msgdriver.AsSystem(msgdriver.Aggregate(errs...))
}
