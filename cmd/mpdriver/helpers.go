package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/config/redisprops"
	"github.com/fxsml/msgdriver/driver"
	"github.com/fxsml/msgdriver/internal/logging"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/txn"

	_ "modernc.org/sqlite"
)

func addDriverFlags(f *pflag.FlagSet) {
	f.String("properties", "", "YAML property file")
	f.String("redis-addr", "", "Redis server holding properties, consulted before --properties")
	f.String("redis-prefix", redisprops.DefaultPrefix, "prefix of the Redis property hashes")
	f.String("key", "", "driver property key (required)")
	f.String("type", "driver", "driver property type")
	f.Bool("env-overlay", false, "override driver properties from MSGDRIVER_<KEY>_<PROPERTY> variables")
}

func (a *app) openDriver(opts ...driver.Option) (*driver.Driver, error) {
	if err := a.required("key"); err != nil {
		return nil, err
	}
	src, err := a.source()
	if err != nil {
		return nil, err
	}
	opts = append([]driver.Option{driver.WithLogger(logging.New("driver"))}, opts...)
	if a.v.GetBool("env-overlay") {
		opts = append(opts, driver.WithEnv(config.Loader{}))
	}
	return driver.Open(a.catalog, src, a.v.GetString("key"), a.v.GetString("type"), opts...)
}

// source layers the Redis properties over the property file.
func (a *app) source() (config.PropertySource, error) {
	var sources []config.PropertySource
	if addr := a.v.GetString("redis-addr"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		sources = append(sources, redisprops.New(client, redisprops.WithPrefix(a.v.GetString("redis-prefix"))))
	}
	if path := a.v.GetString("properties"); path != "" {
		file, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, file)
	}
	switch len(sources) {
	case 0:
		return nil, fmt.Errorf("required: --properties or --redis-addr")
	case 1:
		return sources[0], nil
	default:
		return config.Chain(sources...), nil
	}
}

// openPool opens the sqlite database named by --db. Without --db the
// returned pool is nil and units needing a transaction fail.
func (a *app) openPool(ctx context.Context) (txn.Pool, func(), error) {
	dsn := a.v.GetString("db")
	if dsn == "" {
		return nil, func() {}, nil
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	// one connection keeps :memory: databases alive between transactions
	db.SetMaxOpenConns(1)
	closeDB := func() { db.Close() }

	if schema := a.v.GetString("db-schema"); schema != "" {
		data, err := os.ReadFile(schema)
		if err != nil {
			closeDB()
			return nil, nil, err
		}
		if _, err := db.ExecContext(ctx, string(data)); err != nil {
			closeDB()
			return nil, nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	var pool txn.Pool = txn.NewSQLPool(db, nil)
	if n := a.v.GetUint32("breaker-failures"); n > 0 {
		log := logging.New("txn")
		pool = txn.NewBreakerPool(pool, txn.BreakerConfig{
			Name:        "sqlite",
			MaxFailures: n,
			Timeout:     a.v.GetDuration("breaker-timeout"),
			OnStateChange: func(name, from, to string) {
				log.Warn("Circuit breaker state changed", "breaker", name, "from", from, "to", to)
			},
		})
	}
	return pool, closeDB, nil
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// loadSeed reads a YAML map of context values. Nested maps and lists keep
// their structure.
func loadSeed(path string) (map[string]message.Value, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("context file: %w", err)
	}
	seed := make(map[string]message.Value, len(raw))
	for name, v := range raw {
		seed[name] = toValue(v)
	}
	return seed, nil
}

func toValue(v any) message.Value {
	switch v := v.(type) {
	case nil:
		return message.Scalar("")
	case map[string]any:
		m := make(message.Map, len(v))
		for k, item := range v {
			m[k] = toValue(item)
		}
		return m
	case []any:
		items := make([]message.Value, len(v))
		for i, item := range v {
			items[i] = toValue(item)
		}
		return message.NewList(items...)
	default:
		return message.Scalar(fmt.Sprint(v))
	}
}

func newTable(markdown bool) table.Writer {
	t := table.NewWriter()
	if !markdown {
		t.SetStyle(table.StyleLight)
	}
	return t
}

func render(w io.Writer, t table.Writer, markdown bool) {
	if markdown {
		fmt.Fprintln(w, t.RenderMarkdown())
		return
	}
	fmt.Fprintln(w, t.Render())
}
