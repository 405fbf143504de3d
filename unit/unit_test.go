package unit

import (
	"context"
	"errors"
	"testing"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echo struct {
	Base
}

func (e *echo) Process(ctx context.Context, sc *shared.Context, in *message.Object) (Outputs, error) {
	if in == nil {
		return None(), nil
	}
	return e.Forward(in.Value()), nil
}

func newEcho(env Env, props config.Properties) (Unit, error) {
	b, err := NewBase(env, props)
	if err != nil {
		return nil, err
	}
	return &echo{Base: b}, nil
}

func TestOutputs(t *testing.T) {
	assert.True(t, None().IsNone())
	assert.False(t, Emit().IsNone())
	assert.Equal(t, 0, Emit().Len())
	o := Emit(message.To("A", message.Scalar("x")))
	assert.Equal(t, 1, o.Len())
	assert.Equal(t, "A", o.Messages()[0].Name)
}

func TestParseNext(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, ParseNext("A| nobody |B||NOBODY"))
	assert.Nil(t, ParseNext(""))
}

func TestCatalog(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register("echo", newEcho))
	assert.True(t, msgdriver.IsSystem(c.Register("echo", newEcho)))
	assert.True(t, msgdriver.IsSystem(c.Register("", newEcho)))
	assert.Panics(t, func() { c.MustRegister("echo", newEcho) })
	assert.Equal(t, []string{"echo"}, c.Classes())
	assert.True(t, c.Has("echo"))

	u, err := c.New("echo", Env{}, config.Properties{PropName: "A", PropNext: "B|C"})
	require.NoError(t, err)
	assert.Equal(t, "A", u.Name())

	out, err := u.Process(context.Background(), shared.New(), message.NewObject(message.Scalar("x")))
	require.NoError(t, err)
	assert.Equal(t, []message.NamedMessage{
		message.To("B", message.Scalar("x")),
		message.To("C", message.Scalar("x")),
	}, out.Messages())
	assert.NoError(t, u.Cleanup(context.Background()))

	_, err = c.New("missing", Env{}, config.Properties{PropName: "A"})
	assert.True(t, msgdriver.IsSystem(err))

	_, err = c.New("echo", Env{}, config.Properties{})
	assert.True(t, msgdriver.IsSystem(err))
}

func TestCatalogCategorizesFactoryErrors(t *testing.T) {
	boom := errors.New("boom")
	c := NewCatalog()
	c.MustRegister("bad", func(Env, config.Properties) (Unit, error) { return nil, boom })

	_, err := c.New("bad", Env{}, config.Properties{PropName: "A"})
	assert.True(t, errors.Is(err, boom))
	assert.True(t, msgdriver.IsSystem(err))
}

func TestBaseProperty(t *testing.T) {
	b, err := NewBase(Env{}, config.Properties{PropName: "A", "MODE": "static"})
	require.NoError(t, err)

	sc := shared.New()
	assert.Equal(t, "static", b.Property(sc, "MODE"))
	require.NoError(t, sc.Set("A_MODE", message.Scalar("dynamic")))
	assert.Equal(t, "dynamic", b.Property(sc, "MODE"))
	assert.Equal(t, "static", b.Property(nil, "MODE"))
	assert.Equal(t, "", b.Property(sc, "OTHER"))
}

func TestAddressing(t *testing.T) {
	sc := shared.New()
	in := message.NewObject(message.Scalar(`<R><Id>1</Id></R>`))

	require.NoError(t, Set(sc, in, "@context.OUT", message.Scalar("v")))
	require.NoError(t, Set(sc, in, "@message.R.Name", message.Scalar("n")))

	s, err := GetString(sc, in, "@context.OUT")
	require.NoError(t, err)
	assert.Equal(t, "v", s)

	s, err = GetString(sc, in, "R.Name")
	require.NoError(t, err)
	assert.Equal(t, "n", s)

	v, err := Get(sc, in, message.InputMessage)
	require.NoError(t, err)
	assert.Same(t, in.Value(), v)

	assert.True(t, Exists(sc, in, "R.Id", true))
	assert.True(t, Exists(sc, nil, "@context.OUT", true))
	assert.False(t, Exists(sc, nil, "R.Id", false))

	_, err = Get(sc, nil, "R.Id")
	assert.True(t, msgdriver.IsData(err))
	assert.True(t, msgdriver.IsData(Set(sc, nil, "R.Id", message.Scalar("x"))))
}
