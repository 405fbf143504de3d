package condition

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapResolver map[string]string

func (m mapResolver) Exists(loc string, requireValue bool) bool {
	v, ok := m[loc]
	if requireValue {
		return ok && v != ""
	}
	return ok
}

func (m mapResolver) GetString(loc string) (string, error) {
	v, ok := m[loc]
	if !ok {
		return "", errors.New("missing")
	}
	return v, nil
}

func TestEval(t *testing.T) {
	r := mapResolver{"Type": "NEW", "Region": "", "Priority": "LOW"}

	tests := []struct {
		expr string
		want bool
	}{
		{"Type=NEW", true},
		{"Type=OLD", false},
		{"Region", true},
		{"Missing", false},
		{"Region=", false},
		{"Type=NEW&&Priority=LOW", true},
		{"Type=NEW&&Priority=HIGH", false},
		{"Type=OLD||Priority=LOW", true},
		{"Type=OLD&&Region||Missing||Priority = LOW", true},
		{" Type = NEW ", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e, err := Parse(tt.expr, Separators{})
			require.NoError(t, err)
			got, err := e.Eval(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCustomSeparators(t *testing.T) {
	r := mapResolver{"a": "1", "b": "2"}
	seps := Separators{Field: ":", And: " and ", Or: " or "}

	e, err := Parse("a:1 and b:3 or b:2", seps)
	require.NoError(t, err)
	assert.Len(t, e.Alternatives(), 2)
	ok, err := e.Eval(r)
	require.NoError(t, err)
	assert.True(t, ok)

	// OR keeps its own separator when only AND is customized
	e, err = Parse("a=1;b=3||b=2", Separators{And: ";"})
	require.NoError(t, err)
	require.Len(t, e.Alternatives(), 2)
	assert.Equal(t, []Term{{Location: "a", Value: "1", Compare: true}, {Location: "b", Value: "3", Compare: true}}, e.Alternatives()[0])
}

func TestParseErrors(t *testing.T) {
	for _, expr := range []string{"", "  ", "a=1&&", "||a", "=1"} {
		_, err := Parse(expr, Separators{})
		assert.ErrorIs(t, err, ErrSyntax, expr)
	}
	_, err := Parse("a", Separators{And: "|", Or: "|"})
	assert.ErrorIs(t, err, ErrSyntax)

	assert.Panics(t, func() { MustParse("", Separators{}) })
}

func TestEvalError(t *testing.T) {
	e := MustParse("a=1", Separators{})
	_, err := e.Eval(failing{})
	assert.Error(t, err)
}

type failing struct{}

func (failing) Exists(string, bool) bool         { return true }
func (failing) GetString(string) (string, error) { return "", errors.New("broken") }
