package units

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
	"github.com/fxsml/msgdriver/txn"
	"github.com/fxsml/msgdriver/unit"
)

// SQLLog properties. COLUMN_n, LOCATION_n, DEFAULT_n and OPTIONAL_n count
// from 0.
const (
	PropTableName     = "TABLE_NAME"
	PropTransactional = "TRANSACTIONAL_LOGGING"
	PropFailOnError   = "FAIL_ON_ERROR"
	PropColumn        = "COLUMN"
	PropLocation      = "LOCATION"

	// LocationInput logs the text of the whole input.
	LocationInput = "PROCESSOR_INPUT"
	// LocationSysdate logs the current time.
	LocationSysdate = "SYSDATE"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type column struct {
	name      string
	locations []string
	def       string
	optional  bool
}

// SQLLog inserts one row per input into TABLE_NAME, taking each COLUMN_n's
// value from the first existing of its LOCATION_n alternatives. With
// TRANSACTIONAL_LOGGING (the default) the row is written through the
// request's transaction and shares its outcome; otherwise it is committed on
// a resource of its own from the same pool.
type SQLLog struct {
	unit.Base
	table         string
	columns       []column
	transactional bool
	failOnError   bool
	query         string
	now           func() time.Time
}

var _ unit.Unit = (*SQLLog)(nil)

// NewSQLLog creates a SQLLog unit.
func NewSQLLog(env unit.Env, props config.Properties) (unit.Unit, error) {
	b, err := unit.NewBase(env, props)
	if err != nil {
		return nil, err
	}
	table, err := props.Required(PropTableName)
	if err != nil {
		return nil, err
	}
	if !identifier.MatchString(table) {
		return nil, msgdriver.SystemErrorf("units: sqllog %s: invalid table name %q", b.Name(), table)
	}
	u := &SQLLog{Base: b, table: table, now: time.Now}
	if u.transactional, err = props.Bool(PropTransactional, true); err != nil {
		return nil, err
	}
	if u.failOnError, err = props.Bool(PropFailOnError, true); err != nil {
		return nil, err
	}
	sep := props.Get(PropSeparator, LocationSeparator)
	for i, r := range rows(props, 0, PropColumn, PropLocation, PropDefault, PropOptional) {
		name, ok := r[PropColumn]
		if !ok || !identifier.MatchString(name) {
			return nil, msgdriver.SystemErrorf("units: sqllog %s: invalid %s_%d %q", b.Name(), PropColumn, i, name)
		}
		optional, err := r.bool(PropOptional, false)
		if err != nil {
			return nil, err
		}
		u.columns = append(u.columns, column{
			name:      name,
			locations: splitLocations(r[PropLocation], sep),
			def:       r[PropDefault],
			optional:  optional,
		})
	}
	if len(u.columns) == 0 {
		return nil, msgdriver.SystemErrorf("units: sqllog %s has no columns", b.Name())
	}
	u.query = insertQuery(table, u.columns)
	return u, nil
}

func insertQuery(table string, columns []column) string {
	names := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.name
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(names, ", "), strings.Join(marks, ", "))
}

func (u *SQLLog) Process(ctx context.Context, sc *shared.Context, in *message.Object) (unit.Outputs, error) {
	if in == nil {
		return unit.None(), nil
	}
	args, err := u.values(sc, in)
	if err != nil {
		return unit.None(), err
	}
	if err := u.insert(ctx, sc, args); err != nil {
		if u.failOnError {
			return unit.None(), err
		}
		u.Logger().Warn("Logging to database failed", "table", u.table, "error", err)
	}
	return u.Forward(in.Value()), nil
}

func (u *SQLLog) values(sc *shared.Context, in *message.Object) ([]any, error) {
	args := make([]any, len(u.columns))
	for i, c := range u.columns {
		v, err := u.value(sc, in, c)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (u *SQLLog) value(sc *shared.Context, in *message.Object, c column) (any, error) {
	for _, loc := range c.locations {
		switch loc {
		case LocationSysdate:
			return u.now().UTC(), nil
		case LocationInput:
			s, ok := message.String(in.Value())
			if !ok {
				return nil, msgdriver.DataErrorf("units: sqllog %s: input has no text form", u.Name())
			}
			return s, nil
		}
		if !unit.Exists(sc, in, loc, true) {
			continue
		}
		return unit.GetString(sc, in, loc)
	}
	if c.def != "" {
		return c.def, nil
	}
	if c.optional {
		return nil, nil
	}
	return nil, msgdriver.DataErrorf("units: sqllog %s: no value for column %s", u.Name(), c.name)
}

func (u *SQLLog) insert(ctx context.Context, sc *shared.Context, args []any) error {
	if u.transactional {
		tx, err := sc.Tx(ctx)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, u.query, args...)
		return msgdriver.AsSystem(err)
	}

	pool := sc.Pool()
	if pool == nil {
		return msgdriver.SystemErrorf("units: sqllog %s: no pool", u.Name())
	}
	tx, err := pool.Acquire(ctx)
	if err != nil {
		return msgdriver.AsSystem(err)
	}
	return msgdriver.AsSystem(standalone(ctx, tx, u.query, args))
}

func standalone(ctx context.Context, tx txn.Tx, query string, args []any) (err error) {
	defer func() {
		err = errors.Join(err, tx.Release())
	}()
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}
