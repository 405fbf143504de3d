package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/driver"
	"github.com/fxsml/msgdriver/internal/logging"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/metrics/prom"
	"github.com/fxsml/msgdriver/shared"
)

// RequestHeader is the context name the --header file is stored under.
const RequestHeader = "REQUEST_HEADER"

type result struct {
	resp message.Value
	err  error
}

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process a request through a driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd)
		},
	}
	f := cmd.Flags()
	addDriverFlags(f)
	f.String("request", "-", "request file, - for stdin")
	f.String("header", "", "file stored in the context as "+RequestHeader)
	f.String("context", "", "YAML map of values seeded into the context")
	f.Int("count", 1, "number of times the request is processed")
	f.Int("parallel", 1, "maximum number of requests processed at once")
	f.String("db", "", "sqlite data source for transactional units")
	f.String("db-schema", "", "SQL file applied to the database before processing")
	f.Uint32("breaker-failures", 0, "consecutive acquire failures opening the circuit breaker, 0 disables it")
	f.Duration("breaker-timeout", 30*time.Second, "time the circuit breaker stays open")
	f.String("metrics-file", "", "write Prometheus metrics to this file when done")
	return cmd
}

func (a *app) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	count, parallel := a.v.GetInt("count"), a.v.GetInt("parallel")
	if count < 1 || parallel < 1 {
		return fmt.Errorf("--count and --parallel must be positive")
	}

	reg := prometheus.NewRegistry()
	collector, err := prom.NewCollector(reg)
	if err != nil {
		return err
	}
	d, err := a.openDriver(driver.WithMetricsCollector(collector.Observe))
	if err != nil {
		return err
	}

	text, err := readInput(cmd, a.v.GetString("request"))
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	seed, err := loadSeed(a.v.GetString("context"))
	if err != nil {
		return err
	}
	if path := a.v.GetString("header"); path != "" {
		header, err := readInput(cmd, path)
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		if seed == nil {
			seed = make(map[string]message.Value, 1)
		}
		seed[RequestHeader] = message.Scalar(header)
	}

	pool, closeDB, err := a.openPool(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	log := logging.New("run")
	results := make([]result, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i := range count {
		g.Go(func() error {
			sc := shared.New(shared.WithPool(pool), shared.WithLogger(log))
			for name, v := range seed {
				if err := sc.Set(name, message.Clone(v)); err != nil {
					return err
				}
			}
			resp, err := d.ProcessWith(gctx, sc, message.Scalar(text))
			results[i] = result{resp: resp, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	out := cmd.OutOrStdout()
	for i, r := range results {
		prefix := ""
		if count > 1 {
			prefix = fmt.Sprintf("#%d ", i+1)
		}
		if r.err != nil {
			failed++
			fmt.Fprintf(out, "%serror (%s): %v\n", prefix, msgdriver.CategoryOf(r.err), r.err)
			continue
		}
		fmt.Fprintf(out, "%s%s\n", prefix, show(r.resp))
	}

	if path := a.v.GetString("metrics-file"); path != "" {
		if err := prometheus.WriteToTextfile(path, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, count)
	}
	return nil
}

func show(v message.Value) string {
	if v == nil {
		return "<no response>"
	}
	if s, ok := message.String(v); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
