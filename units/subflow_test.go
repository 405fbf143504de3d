package units

import (
	"context"
	"errors"
	"testing"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/driver"
	"github.com/fxsml/msgdriver/internal/test"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDriver(t *testing.T, src config.MapSource, key string, opts ...driver.Option) *driver.Driver {
	t.Helper()
	opts = append([]driver.Option{driver.WithLogger(quiet)}, opts...)
	d, err := driver.Open(Catalog(), src, key, "driver", opts...)
	require.NoError(t, err)
	return d
}

func subFlow(extra config.Properties) spec {
	p := config.Properties{
		"NAME":                "ROOT",
		"NEXT_PROCESSOR_NAME": "COMM_SERVER",
		"DEFAULT_DRIVER_KEY":  "child",
		"DEFAULT_DRIVER_TYPE": "driver",
	}
	for k, v := range extra {
		p[k] = v
	}
	return spec{ClassSubFlow, p}
}

// logChild is a nested driver that remembers its input in the context and
// writes it through the transaction.
func logChild(src config.MapSource) {
	addDriver(src, "child", nil,
		spec{ClassForward, config.Properties{"NAME": "ROOT", "NEXT_PROCESSOR_NAME": "LOG", "OUTPUT_LOCATION": "@context.SEEN"}},
		spec{ClassSQLLog, config.Properties{
			"NAME":                "LOG",
			"NEXT_PROCESSOR_NAME": "COMM_SERVER",
			"TABLE_NAME":          "events",
			"COLUMN_0":            "body",
			"LOCATION_0":          "PROCESSOR_INPUT",
		}},
	)
}

func TestSubFlowSharesParentContext(t *testing.T) {
	src := config.MapSource{}
	logChild(src)
	addDriver(src, "parent", nil, subFlow(nil))
	pool := &test.Pool{}
	d := openDriver(t, src, "parent")

	sc := shared.New(shared.WithPool(pool))
	resp, err := d.ProcessWith(context.Background(), sc, message.Scalar("hello"))
	require.NoError(t, err)
	assert.Equal(t, message.Scalar("hello"), resp)

	seen, err := sc.GetString("SEEN")
	require.NoError(t, err)
	assert.Equal(t, "hello", seen)
	assert.True(t, sc.Owner())
	assert.Equal(t, test.Counts{Acquired: 1, Commits: 1, Releases: 1}, pool.Counts())
	assert.Len(t, pool.Execs(), 1)
}

func TestSubFlowOwnTransaction(t *testing.T) {
	src := config.MapSource{}
	logChild(src)
	addDriver(src, "parent", nil, subFlow(config.Properties{"USE_PARENT_TRANSACTION": "false"}))
	pool := &test.Pool{}
	d := openDriver(t, src, "parent")

	sc := shared.New(shared.WithPool(pool))
	_, err := d.ProcessWith(context.Background(), sc, message.Scalar("hello"))
	require.NoError(t, err)
	assert.False(t, sc.HasTx())
	// values are still shared without explicit copies
	assert.True(t, sc.Exists("SEEN", true))
	assert.Equal(t, test.Counts{Acquired: 1, Commits: 1, Releases: 1}, pool.Counts())
}

func TestSubFlowContextCopies(t *testing.T) {
	src := config.MapSource{}
	addDriver(src, "child", nil,
		spec{ClassCopy, config.Properties{
			"NAME":                "ROOT",
			"NEXT_PROCESSOR_NAME": "COMM_SERVER",
			"INPUT_LOC_0":         "@context.CHILD_IN",
			"OUTPUT_LOC_0":        "@context.RESULT",
		}},
	)
	addDriver(src, "parent", nil, subFlow(config.Properties{
		"SOURCE_CTX_VALUE_LOC_0":        "IN",
		"TARGET_CTX_VALUE_LOC_0":        "CHILD_IN",
		"RETURN_SOURCE_CTX_VALUE_LOC_0": "RESULT",
		"RETURN_TARGET_CTX_VALUE_LOC_0": "OUT",
	}))
	d := openDriver(t, src, "parent")

	sc := shared.New()
	require.NoError(t, sc.Set("IN", message.Scalar("v")))
	_, err := d.ProcessWith(context.Background(), sc, message.Scalar("x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"IN", "OUT"}, sc.Keys())
	out, _ := sc.GetString("OUT")
	assert.Equal(t, "v", out)

	_, err = d.Process(context.Background(), message.Scalar("x"))
	assert.True(t, msgdriver.IsData(err))
}

func TestSubFlowDriverFromContext(t *testing.T) {
	src := config.MapSource{}
	addDriver(src, "upper", nil,
		spec{ClassForward, config.Properties{"NAME": "ROOT", "NEXT_PROCESSOR_NAME": "COMM_SERVER", "OUTPUT_LOCATION": "@context.VIA"}},
	)
	addDriver(src, "parent", nil, spec{ClassSubFlow, config.Properties{
		"NAME":                "ROOT",
		"NEXT_PROCESSOR_NAME": "COMM_SERVER",
		"DRIVER_KEY_CTX_LOC":  "FLOW",
		"DEFAULT_DRIVER_TYPE": "driver",
	}})
	d := openDriver(t, src, "parent")

	sc := shared.New()
	require.NoError(t, sc.Set("FLOW", message.Scalar("upper")))
	_, err := d.ProcessWith(context.Background(), sc, message.Scalar("x"))
	require.NoError(t, err)
	assert.True(t, sc.Exists("VIA", true))

	_, err = d.Process(context.Background(), message.Scalar("x"))
	assert.True(t, msgdriver.IsData(err))

	_, err = NewSubFlow(env(), config.Properties{"NAME": "S", "DEFAULT_DRIVER_TYPE": "driver"})
	assert.True(t, msgdriver.IsSystem(err))
}

func errorFlow(src config.MapSource, handler config.Properties) {
	addDriver(src, "errs", config.Properties{
		"ERROR_PROCESSOR_CLASS_NAME":         ClassErrorResponse,
		"ERROR_PROCESSOR_KEY":                "errs.handler",
		"ERROR_PROCESSOR_TYPE":               "unit",
		"ERROR_PROCESSOR_EXCEPTION_LOCATION": "ERR",
	}, spec{ClassRoute, config.Properties{
		"NAME":         "ROOT",
		"ROUTING_KEY":  "Request.Type",
		"ROUTING_RULE": "EQUALS",
		"KEY_VALUE_1":  "NEW",
		"ROUTE_TO_1":   "COMM_SERVER",
	}})
	src[config.Locator{Key: "errs.handler", Type: "unit"}] = handler
}

func TestErrorResponse(t *testing.T) {
	src := config.MapSource{}
	errorFlow(src, config.Properties{"NAME": "HANDLER", "ERROR_LOCATION": "ERR"})
	d := openDriver(t, src, "errs")

	resp, err := d.Process(context.Background(), message.Scalar(`<Request><Type>OLD</Type></Request>`))
	require.NoError(t, err)
	doc, ok := resp.(*message.Doc)
	require.True(t, ok)

	category, _ := doc.Get("ErrorResponse.Category")
	assert.Equal(t, "data", category)
	unitName, _ := doc.Get("ErrorResponse.Error(0).Unit")
	assert.Equal(t, "ROOT", unitName)
	msg, _ := doc.Get("ErrorResponse.Message")
	assert.Contains(t, msg, "does not match any routing entry")

	resp, err = d.Process(context.Background(), message.Scalar(`<Request><Type>NEW</Type></Request>`))
	require.NoError(t, err)
	text, ok := message.String(resp)
	require.True(t, ok)
	assert.Contains(t, text, "<Type>NEW</Type>")
}

func TestErrorResponseRethrow(t *testing.T) {
	src := config.MapSource{}
	errorFlow(src, config.Properties{"NAME": "HANDLER", "ERROR_LOCATION": "ERR", "RETHROW": "true"})
	d := openDriver(t, src, "errs")

	_, err := d.Process(context.Background(), message.Scalar(`<Request><Type>OLD</Type></Request>`))
	require.Error(t, err)
	assert.True(t, msgdriver.IsData(err))
	var ue *driver.UnitError
	assert.True(t, errors.As(err, &ue))
}

func TestErrorResponseWithoutError(t *testing.T) {
	u := newUnit(t, NewErrorResponse, config.Properties{"NAME": "H", "ERROR_LOCATION": "ERR"})
	out, err := u.Process(context.Background(), shared.New(), message.NewObject(message.Scalar("x")))
	require.NoError(t, err)
	assert.True(t, out.IsNone())

	_, err = NewErrorResponse(env(), config.Properties{"NAME": "H"})
	assert.True(t, msgdriver.IsSystem(err))
}
