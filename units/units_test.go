package units

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
	"github.com/fxsml/msgdriver/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func env() unit.Env {
	return unit.Env{Catalog: Catalog(), Logger: quiet}
}

func newUnit(t *testing.T, f unit.Factory, props config.Properties) unit.Unit {
	t.Helper()
	u, err := f(env(), props)
	require.NoError(t, err)
	return u
}

func doc(t *testing.T, text string) *message.Doc {
	t.Helper()
	d, err := message.ParseDoc(text)
	require.NoError(t, err)
	return d
}

// only returns the single message of out.
func only(t *testing.T, out unit.Outputs) message.NamedMessage {
	t.Helper()
	require.Equal(t, 1, out.Len())
	return out.Messages()[0]
}

type spec struct {
	class string
	props config.Properties
}

// addDriver stores a driver configuration under key with the given units.
func addDriver(src config.MapSource, key string, driverProps config.Properties, specs ...spec) {
	dp := driverProps.Clone()
	if _, ok := dp["ASYNC_FLAG"]; !ok {
		dp["ASYNC_FLAG"] = "false"
	}
	for i, s := range specs {
		idx := strconv.Itoa(i)
		ukey := key + "." + s.props[unit.PropName]
		dp["CLASS_"+idx] = s.class
		dp["KEY_"+idx] = ukey
		dp["TYPE_"+idx] = "unit"
		src[config.Locator{Key: ukey, Type: "unit"}] = s.props
	}
	src[config.Locator{Key: key, Type: "driver"}] = dp
}

func TestRegister(t *testing.T) {
	c := Catalog()
	assert.Equal(t, []string{
		ClassBatch, ClassCopy, ClassErrorResponse, ClassEvent, ClassForward, ClassRoute,
		ClassSQLLog, ClassSplit, ClassSubFlow, ClassTest,
	}, c.Classes())
	assert.True(t, msgdriver.IsSystem(Register(c)))
}

func TestForward(t *testing.T) {
	u := newUnit(t, NewForward, config.Properties{
		"NAME":                "F",
		"NEXT_PROCESSOR_NAME": "A|B",
		"OUTPUT_LOCATION":     "@context.SAVED",
	})
	sc := shared.New()

	out, err := u.Process(context.Background(), sc, message.NewObject(message.Scalar("x")))
	require.NoError(t, err)
	assert.Equal(t, []message.NamedMessage{
		message.To("A", message.Scalar("x")),
		message.To("B", message.Scalar("x")),
	}, out.Messages())

	saved, err := sc.GetString("SAVED")
	require.NoError(t, err)
	assert.Equal(t, "x", saved)

	out, err = u.Process(context.Background(), sc, nil)
	require.NoError(t, err)
	assert.True(t, out.IsNone())
}

func TestBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("flush", func(t *testing.T) {
		u := newUnit(t, NewBatch, config.Properties{"NAME": "B", "NEXT_PROCESSOR_NAME": "OUT", "SEPARATOR": ","})
		for _, s := range []string{"1", "2", "3"} {
			out, err := u.Process(ctx, nil, message.NewObject(message.Scalar(s)))
			require.NoError(t, err)
			assert.True(t, out.IsNone())
		}
		out, err := u.Process(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, message.To("OUT", message.Scalar("1,2,3")), only(t, out))

		out, err = u.Process(ctx, nil, nil)
		require.NoError(t, err)
		assert.True(t, out.IsNone())
	})

	t.Run("size", func(t *testing.T) {
		u := newUnit(t, NewBatch, config.Properties{"NAME": "B", "NEXT_PROCESSOR_NAME": "OUT", "BATCH_SIZE": "2"})
		out, err := u.Process(ctx, nil, message.NewObject(message.Scalar("a")))
		require.NoError(t, err)
		assert.True(t, out.IsNone())
		out, err = u.Process(ctx, nil, message.NewObject(message.Scalar("b")))
		require.NoError(t, err)
		assert.Equal(t, message.Scalar("a\nb"), only(t, out).Value)

		_, err = u.Process(ctx, nil, message.NewObject(message.Scalar("c")))
		require.NoError(t, err)
		require.NoError(t, u.Cleanup(ctx))
		out, err = u.Process(ctx, nil, nil)
		require.NoError(t, err)
		assert.True(t, out.IsNone())
	})

	t.Run("input location", func(t *testing.T) {
		u := newUnit(t, NewBatch, config.Properties{"NAME": "B", "NEXT_PROCESSOR_NAME": "OUT", "INPUT_LOCATION": "Order.Id"})
		_, err := u.Process(ctx, nil, message.NewObject(doc(t, `<Order><Id>7</Id></Order>`)))
		require.NoError(t, err)
		_, err = u.Process(ctx, nil, message.NewObject(doc(t, `<Order/>`)))
		assert.True(t, msgdriver.IsData(err))
		out, err := u.Process(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, message.Scalar("7"), only(t, out).Value)
	})

	_, err := NewBatch(env(), config.Properties{"NAME": "B", "BATCH_SIZE": "-1"})
	assert.True(t, msgdriver.IsSystem(err))
}

func TestSplit(t *testing.T) {
	ctx := context.Background()
	props := config.Properties{
		"NAME":                "S",
		"NEXT_PROCESSOR_NAME": "OUT",
		"INPUT_LOCATION":      "Tn",
		"OUTPUT_LOCATION_0":   "@context.NPA",
		"SUBSTRING_FROM_0":    "0",
		"SUBSTRING_TO_0":      "3",
		"OUTPUT_LOCATION_1":   "@context.LINE",
		"SUBSTRING_FROM_1":    "3",
		"SUBSTRING_TO_1":      "END_OF_STRING",
	}

	t.Run("cuts", func(t *testing.T) {
		u := newUnit(t, NewSplit, props)
		sc := shared.New()
		in := message.Map{"Tn": message.Scalar("5551234567")}
		out, err := u.Process(ctx, sc, message.NewObject(in))
		require.NoError(t, err)
		assert.Equal(t, "OUT", only(t, out).Name)

		npa, _ := sc.GetString("NPA")
		line, _ := sc.GetString("LINE")
		assert.Equal(t, "555", npa)
		assert.Equal(t, "1234567", line)
	})

	t.Run("short value", func(t *testing.T) {
		u := newUnit(t, NewSplit, props)
		sc := shared.New()
		_, err := u.Process(ctx, sc, message.NewObject(message.Map{"Tn": message.Scalar("55")}))
		require.NoError(t, err)
		assert.False(t, sc.Exists("NPA", false))

		p := props.Clone()
		p["REQUIRED_0"] = "true"
		u = newUnit(t, NewSplit, p)
		_, err = u.Process(ctx, sc, message.NewObject(message.Map{"Tn": message.Scalar("55")}))
		assert.True(t, msgdriver.IsData(err))
	})

	t.Run("missing input", func(t *testing.T) {
		u := newUnit(t, NewSplit, props)
		out, err := u.Process(ctx, shared.New(), message.NewObject(message.Map{}))
		require.NoError(t, err)
		assert.Equal(t, 1, out.Len())
	})

	for name, bad := range map[string]config.Properties{
		"no input":    {"NAME": "S", "OUTPUT_LOCATION_0": "X", "SUBSTRING_FROM_0": "0"},
		"no cuts":     {"NAME": "S", "INPUT_LOCATION": "Tn"},
		"bad from":    {"NAME": "S", "INPUT_LOCATION": "Tn", "OUTPUT_LOCATION_0": "X", "SUBSTRING_FROM_0": "x"},
		"to < from":   {"NAME": "S", "INPUT_LOCATION": "Tn", "OUTPUT_LOCATION_0": "X", "SUBSTRING_FROM_0": "3", "SUBSTRING_TO_0": "1"},
		"no location": {"NAME": "S", "INPUT_LOCATION": "Tn", "SUBSTRING_FROM_0": "0"},
	} {
		_, err := NewSplit(env(), bad)
		assert.True(t, msgdriver.IsSystem(err), name)
	}
}

func TestRoute(t *testing.T) {
	ctx := context.Background()
	props := func(rule string) config.Properties {
		return config.Properties{
			"NAME":         "R",
			"ROUTING_KEY":  "Request.Type",
			"ROUTING_RULE": rule,
			"KEY_VALUE_1":  "NEW",
			"ROUTE_TO_1":   "CREATE",
			"KEY_VALUE_2":  "CAN",
			"ROUTE_TO_2":   "CANCEL",
		}
	}
	route := func(t *testing.T, u unit.Unit, sc *shared.Context, text string) (string, error) {
		out, err := u.Process(ctx, sc, message.NewObject(doc(t, text)))
		if err != nil {
			return "", err
		}
		return only(t, out).Name, nil
	}

	u := newUnit(t, NewRoute, props("EQUALS"))
	to, err := route(t, u, shared.New(), `<Request><Type>NEW</Type></Request>`)
	require.NoError(t, err)
	assert.Equal(t, "CREATE", to)

	_, err = route(t, u, shared.New(), `<Request><Type>CANCEL</Type></Request>`)
	assert.True(t, msgdriver.IsData(err))

	u = newUnit(t, NewRoute, props("starts_with"))
	to, err = route(t, u, shared.New(), `<Request><Type>CANCEL</Type></Request>`)
	require.NoError(t, err)
	assert.Equal(t, "CANCEL", to)

	p := props("NODE_EXISTS")
	p["ROUTING_KEY"] = "Request.Body"
	u = newUnit(t, NewRoute, p)
	to, err = route(t, u, shared.New(), `<Request><Body><CAN/></Body></Request>`)
	require.NoError(t, err)
	assert.Equal(t, "CANCEL", to)

	// per-request override of the routing key
	u = newUnit(t, NewRoute, props("ENDS_WITH"))
	sc := shared.New()
	require.NoError(t, sc.Set("R_ROUTING_KEY", message.Scalar("Request.Kind")))
	to, err = route(t, u, sc, `<Request><Type>X</Type><Kind>RENEW</Kind></Request>`)
	require.NoError(t, err)
	assert.Equal(t, "CREATE", to)

	bad := props("SOMETIMES")
	_, err = NewRoute(env(), bad)
	assert.True(t, msgdriver.IsSystem(err))
	_, err = NewRoute(env(), config.Properties{"NAME": "R", "ROUTING_KEY": "k", "ROUTING_RULE": "EQUALS"})
	assert.True(t, msgdriver.IsSystem(err))
}

func TestTest(t *testing.T) {
	ctx := context.Background()
	u := newUnit(t, NewTest, config.Properties{
		"NAME":                "T",
		"NEXT_PROCESSOR_NAME": "OUT",
		"RESULT_LOCATION":     "@context.RESULT",
		"AND_SEPARATOR":       " and ",
		"TEST_0":              "Type=NEW and Priority=HIGH",
		"RESULT_VALUE_0":      "urgent",
		"TEST_1":              "Type=NEW||@context.FORCE",
		"RESULT_VALUE_1":      "normal",
		"TEST_2":              "Type",
	})

	run := func(in message.Map, force bool) (*shared.Context, unit.Outputs) {
		sc := shared.New()
		if force {
			require.NoError(t, sc.Set("FORCE", message.Scalar("yes")))
		}
		out, err := u.Process(ctx, sc, message.NewObject(in))
		require.NoError(t, err)
		return sc, out
	}
	result := func(sc *shared.Context) string {
		s, _ := sc.GetString("RESULT")
		return s
	}

	sc, out := run(message.Map{"Type": message.Scalar("NEW"), "Priority": message.Scalar("HIGH")}, false)
	assert.Equal(t, "urgent", result(sc))
	assert.Equal(t, "OUT", only(t, out).Name)

	sc, _ = run(message.Map{"Type": message.Scalar("NEW")}, false)
	assert.Equal(t, "normal", result(sc))

	sc, _ = run(message.Map{"Type": message.Scalar("OLD")}, true)
	assert.Equal(t, "normal", result(sc))

	// matches TEST_2, which has no result value
	sc, out = run(message.Map{"Type": message.Scalar("OLD")}, false)
	assert.False(t, sc.Exists("RESULT", false))
	assert.Equal(t, 1, out.Len())

	_, err := NewTest(env(), config.Properties{"NAME": "T", "RESULT_LOCATION": "R"})
	assert.True(t, msgdriver.IsSystem(err))
	_, err = NewTest(env(), config.Properties{"NAME": "T", "RESULT_LOCATION": "R", "TEST_0": "=x"})
	assert.True(t, msgdriver.IsSystem(err))
}

func TestCopy(t *testing.T) {
	ctx := context.Background()
	u := newUnit(t, NewCopy, config.Properties{
		"NAME":         "C",
		"INPUT_LOC_0":  "Order.Id|@context.ID",
		"OUTPUT_LOC_0": "@context.ORDER_ID",
		"INPUT_LOC_1":  "Order.Region",
		"OUTPUT_LOC_1": "@context.REGION",
		"DEFAULT_1":    "EAST",
		"INPUT_LOC_2":  "Order.Note",
		"OUTPUT_LOC_2": "@context.NOTE",
		"OPTIONAL_2":   "true",
	})

	sc := shared.New()
	_, err := u.Process(ctx, sc, message.NewObject(doc(t, `<Order><Id>42</Id></Order>`)))
	require.NoError(t, err)
	id, _ := sc.GetString("ORDER_ID")
	region, _ := sc.GetString("REGION")
	assert.Equal(t, "42", id)
	assert.Equal(t, "EAST", region)
	assert.False(t, sc.Exists("NOTE", false))

	sc = shared.New()
	require.NoError(t, sc.Set("ID", message.Scalar("43")))
	_, err = u.Process(ctx, sc, message.NewObject(doc(t, `<Order/>`)))
	require.NoError(t, err)
	id, _ = sc.GetString("ORDER_ID")
	assert.Equal(t, "43", id)

	_, err = u.Process(ctx, shared.New(), message.NewObject(doc(t, `<Order/>`)))
	assert.True(t, msgdriver.IsData(err))

	_, err = NewCopy(env(), config.Properties{"NAME": "C", "INPUT_LOC_0": "x"})
	assert.True(t, msgdriver.IsSystem(err))
}
