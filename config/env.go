package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/fxsml/msgdriver"
)

// DefaultEnvPrefix starts every variable name unless Loader.Prefix is set.
const DefaultEnvPrefix = "MSGDRIVER"

var durationType = reflect.TypeOf(time.Duration(0))

// Loader overlays environment variables on settings structs, so that a
// deployment can override what the property source says about one driver.
//
// A field is read from {Prefix}_{STAGE}_{NAME}. STAGE is usually the driver
// key. NAME is the field's prop tag, which makes the variable carry the
// name of the property it overrides, or else the field name in
// UPPER_SNAKE_CASE:
//
//	DeferErrors bool `prop:"DEFER_EXCEPTIONS_FLAG"`  MSGDRIVER_ORDERS_DEFER_EXCEPTIONS_FLAG
//	Retries     int                                 MSGDRIVER_ORDERS_RETRIES
//
// Values are parsed like property values. Named struct fields add a name
// segment, embedded structs are flattened and a tag of "-" skips a field.
// Supported field types are string, bool, integers, floats and
// time.Duration.
type Loader struct {
	// Prefix of the variable names. Default: DefaultEnvPrefix.
	Prefix string

	// Lookup replaces os.LookupEnv when set.
	Lookup func(string) (string, bool)
}

// Load sets the fields of the struct dst points to from the variables that
// are present. Other fields keep their value.
func (l Loader) Load(stage string, dst any) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return msgdriver.SystemErrorf("config: env overlay needs a pointer to a struct, got %T", dst)
	}
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return walk(l.stagePrefix(stage), v.Elem(), func(key string, fv reflect.Value) error {
		raw, ok := lookup(key)
		if !ok {
			return nil
		}
		return assign(fv, key, raw)
	})
}

// Keys lists the variables Load reads for dst, a struct or a pointer to
// one, in field order.
func (l Loader) Keys(stage string, dst any) []string {
	t := reflect.TypeOf(dst)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var keys []string
	_ = walk(l.stagePrefix(stage), reflect.New(t).Elem(), func(key string, _ reflect.Value) error {
		keys = append(keys, key)
		return nil
	})
	return keys
}

func (l Loader) stagePrefix(stage string) string {
	p := l.Prefix
	if p == "" {
		p = DefaultEnvPrefix
	}
	return p + "_" + normalizeStage(stage)
}

// walk calls visit for every settable leaf field of v.
func walk(prefix string, v reflect.Value, visit func(key string, fv reflect.Value) error) error {
	t := v.Type()
	for i := range t.NumField() {
		sf := t.Field(i)
		tag := sf.Tag.Get("prop")
		if tag == "-" {
			continue
		}
		fv := v.Field(i)
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			if err := walk(prefix, fv, visit); err != nil {
				return err
			}
			continue
		}
		if !sf.IsExported() {
			continue
		}
		if tag == "" {
			tag = toUpperSnake(sf.Name)
		}
		key := prefix + "_" + tag

		var err error
		switch {
		case sf.Type == durationType || scalarKind(sf.Type.Kind()):
			err = visit(key, fv)
		case sf.Type.Kind() == reflect.Struct:
			err = walk(key, fv, visit)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func scalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// assign parses raw into fv. Bools and ints go through Properties so that
// the environment accepts exactly what a property file does.
func assign(fv reflect.Value, key, raw string) error {
	p := Properties{key: raw}
	if fv.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return msgdriver.SystemErrorf("config: env %s: %w", key, err)
		}
		fv.SetInt(int64(d))
		return nil
	}
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := p.Bool(key, false)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int:
		n, err := p.Int(key, 0)
		if err != nil {
			return err
		}
		fv.SetInt(int64(n))
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return msgdriver.SystemErrorf("config: env %s: %w", key, err)
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, fv.Type().Bits())
		if err != nil {
			return msgdriver.SystemErrorf("config: env %s: %w", key, err)
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, fv.Type().Bits())
		if err != nil {
			return msgdriver.SystemErrorf("config: env %s: %w", key, err)
		}
		fv.SetFloat(f)
	}
	return nil
}

// normalizeStage turns a driver key into a variable name segment: letters
// are upper-cased, '-', '.', ' ' and '_' become '_' and the rest is dropped.
func normalizeStage(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return unicode.ToUpper(r)
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '.' || r == ' ' || r == '_':
			return '_'
		}
		return -1
	}, s)
}

// toUpperSnake converts CamelCase to UPPER_SNAKE_CASE, keeping acronyms
// together: URLPath → URL_PATH.
func toUpperSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !unicode.IsUpper(prev) || nextLower {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
