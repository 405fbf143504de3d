package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/fxsml/msgdriver"
	"gopkg.in/yaml.v3"
)

// ErrNoProperties is returned when a source has no properties for a
// locator.
var ErrNoProperties = errors.New("config: no properties")

// PropertySource resolves the properties of a driver or unit by key and
// type.
type PropertySource interface {
	Properties(key, typ string) (Properties, error)
}

// SourceFunc adapts a function to the PropertySource interface.
type SourceFunc func(key, typ string) (Properties, error)

// Properties calls f.
func (f SourceFunc) Properties(key, typ string) (Properties, error) {
	return f(key, typ)
}

// MapSource is an in-memory PropertySource.
type MapSource map[Locator]Properties

// Properties returns a copy of the properties stored under key and typ.
func (s MapSource) Properties(key, typ string) (Properties, error) {
	p, ok := s[Locator{Key: key, Type: typ}]
	if !ok {
		return nil, NotFound(key, typ)
	}
	return p.Clone(), nil
}

// Locators returns the stored locators sorted by key then type.
func (s MapSource) Locators() []Locator {
	out := make([]Locator, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// NotFound returns the error sources report for a locator without
// properties. It matches ErrNoProperties.
func NotFound(key, typ string) error {
	return msgdriver.AsSystem(fmt.Errorf("%w for %s/%s", ErrNoProperties, key, typ))
}

// ParseYAML decodes a property document of the form
//
//	orders:           # key
//	  driver:         # type
//	    ASYNC_FLAG: false
//	    CLASS_0: forward
//
// Scalar values of any YAML type are stored in their text form.
func ParseYAML(data []byte) (MapSource, error) {
	var raw map[string]map[string]map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, msgdriver.AsSystem(fmt.Errorf("config: %w", err))
	}
	src := make(MapSource)
	for key, types := range raw {
		for typ, props := range types {
			p := make(Properties, len(props))
			for name, node := range props {
				if node.Kind != yaml.ScalarNode {
					return nil, msgdriver.SystemErrorf("config: %s/%s: property %s is not a scalar", key, typ, name)
				}
				if node.Tag == "!!null" {
					continue
				}
				p[name] = node.Value
			}
			src[Locator{Key: key, Type: typ}] = p
		}
	}
	return src, nil
}

// LoadFile reads a YAML property file.
func LoadFile(path string) (MapSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, msgdriver.AsSystem(err)
	}
	return ParseYAML(data)
}

// Chain returns a source asking each of sources in order and returning the
// first properties found.
func Chain(sources ...PropertySource) PropertySource {
	return SourceFunc(func(key, typ string) (Properties, error) {
		for _, s := range sources {
			p, err := s.Properties(key, typ)
			if err == nil {
				return p, nil
			}
			if !errors.Is(err, ErrNoProperties) {
				return nil, err
			}
		}
		return nil, NotFound(key, typ)
	})
}
