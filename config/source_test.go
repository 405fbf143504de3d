package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fxsml/msgdriver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const propsYAML = `
orders:
  driver:
    ASYNC_FLAG: false
    CLASS_0: forward
    KEY_0: orders.root
    TYPE_0: unit
    ERROR_CONTEXT_LIMIT: 8
    UNSET: ~
orders.root:
  unit:
    NAME: ROOT
    NEXT_PROCESSOR_NAME: "A|NOBODY"
`

func TestParseYAML(t *testing.T) {
	src, err := ParseYAML([]byte(propsYAML))
	require.NoError(t, err)

	p, err := src.Properties("orders", "driver")
	require.NoError(t, err)
	assert.Equal(t, "false", p["ASYNC_FLAG"])
	assert.Equal(t, "8", p["ERROR_CONTEXT_LIMIT"])
	_, ok := p["UNSET"]
	assert.False(t, ok)

	assert.Equal(t, []Locator{{"orders", "driver"}, {"orders.root", "unit"}}, src.Locators())

	_, err = src.Properties("orders", "other")
	assert.True(t, errors.Is(err, ErrNoProperties))
	assert.True(t, msgdriver.IsSystem(err))
}

func TestParseYAMLRejectsNested(t *testing.T) {
	_, err := ParseYAML([]byte("k:\n  t:\n    LIST: [1, 2]\n"))
	assert.True(t, msgdriver.IsSystem(err))

	_, err = ParseYAML([]byte("k: ["))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "props.yaml")
	require.NoError(t, os.WriteFile(path, []byte(propsYAML), 0o600))

	src, err := LoadFile(path)
	require.NoError(t, err)
	p, err := src.Properties("orders.root", "unit")
	require.NoError(t, err)
	assert.Equal(t, "ROOT", p["NAME"])

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, msgdriver.IsSystem(err))
}

func TestMapSourceReturnsCopy(t *testing.T) {
	src := MapSource{{"k", "t"}: {"A": "1"}}
	p, err := src.Properties("k", "t")
	require.NoError(t, err)
	p["A"] = "2"
	assert.Equal(t, "1", src[Locator{"k", "t"}]["A"])
}

func TestChain(t *testing.T) {
	first := MapSource{{"k", "t"}: {"A": "first"}}
	second := MapSource{{"k", "t"}: {"A": "second"}, {"k", "u"}: {"A": "only"}}
	src := Chain(first, second)

	p, err := src.Properties("k", "t")
	require.NoError(t, err)
	assert.Equal(t, "first", p["A"])

	p, err = src.Properties("k", "u")
	require.NoError(t, err)
	assert.Equal(t, "only", p["A"])

	_, err = src.Properties("x", "y")
	assert.True(t, errors.Is(err, ErrNoProperties))

	boom := errors.New("boom")
	failing := SourceFunc(func(string, string) (Properties, error) { return nil, boom })
	_, err = Chain(failing, second).Properties("k", "t")
	assert.True(t, errors.Is(err, boom))
}

func TestProperties(t *testing.T) {
	p := Properties{
		"NAME":    " A ",
		"BLANK":   "  ",
		"FLAG":    "true",
		"BAD":     "nope",
		"SIZE":    "3",
		"CLASS_0": "x",
		"CLASS_1": "y",
		"CLASS_3": "z",
	}

	assert.Equal(t, "A", p.Get("NAME", "d"))
	assert.Equal(t, "d", p.Get("BLANK", "d"))

	_, err := p.Required("BLANK")
	assert.True(t, msgdriver.IsSystem(err))

	b, err := p.Bool("FLAG", false)
	require.NoError(t, err)
	assert.True(t, b)
	b, err = p.Bool("MISSING", true)
	require.NoError(t, err)
	assert.True(t, b)
	_, err = p.Bool("BAD", false)
	assert.True(t, msgdriver.IsSystem(err))
	_, err = p.RequiredBool("MISSING")
	assert.True(t, msgdriver.IsSystem(err))

	n, err := p.Int("SIZE", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, err = p.Int("BAD", 0)
	assert.Error(t, err)

	assert.Equal(t, []string{"x", "y"}, p.Indexed("CLASS_", 0))
	assert.Nil(t, p.Indexed("CLASS_", 5))
}
