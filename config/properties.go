package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fxsml/msgdriver"
)

// Properties is a flat set of named string settings for a driver or a unit.
type Properties map[string]string

// Get returns the value of name, or def when unset or blank.
func (p Properties) Get(name, def string) string {
	if v, ok := p.Lookup(name); ok {
		return v
	}
	return def
}

// Lookup returns the trimmed value of name and whether it is set and not
// blank.
func (p Properties) Lookup(name string) (string, bool) {
	v, ok := p[name]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Required returns the value of name or a system error when it is unset.
func (p Properties) Required(name string) (string, error) {
	v, ok := p.Lookup(name)
	if !ok {
		return "", msgdriver.SystemErrorf("config: required property %s is missing", name)
	}
	return v, nil
}

// Bool parses name as a boolean, returning def when unset.
func (p Properties) Bool(name string, def bool) (bool, error) {
	v, ok := p.Lookup(name)
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, msgdriver.SystemErrorf("config: property %s: %w", name, err)
	}
	return b, nil
}

// RequiredBool parses name as a boolean and fails when it is unset.
func (p Properties) RequiredBool(name string) (bool, error) {
	if _, ok := p.Lookup(name); !ok {
		return false, msgdriver.SystemErrorf("config: required property %s is missing", name)
	}
	return p.Bool(name, false)
}

// Int parses name as an integer, returning def when unset.
func (p Properties) Int(name string, def int) (int, error) {
	v, ok := p.Lookup(name)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, msgdriver.SystemErrorf("config: property %s: %w", name, err)
	}
	return n, nil
}

// Indexed returns the values of prefix+n for n counting up from start until
// the first unset index.
func (p Properties) Indexed(prefix string, start int) []string {
	var out []string
	for n := start; ; n++ {
		v, ok := p.Lookup(prefix + strconv.Itoa(n))
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

// Names returns the property names in sorted order.
func (p Properties) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy of p.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Locator identifies a property set by key and type.
type Locator struct {
	Key  string
	Type string
}

func (l Locator) String() string {
	return fmt.Sprintf("%s/%s", l.Key, l.Type)
}
