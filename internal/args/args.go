// Package args is the parse-and-validate boundary for agent-supplied command
// arguments. Agents routinely send "3" for 3 and "TRUE" for true; every accessor
// here coerces what it can and reports anything else as absent.
package args

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Opt is a coerced argument: Valid is false when the key was missing or unusable.
type Opt[T any] struct {
	Value T
	Valid bool
}

func Some[T any](v T) Opt[T] { return Opt[T]{Value: v, Valid: true} }

func None[T any]() Opt[T] { return Opt[T]{} }

// Or returns the value when valid, else d.
func (o Opt[T]) Or(d T) T {
	if o.Valid {
		return o.Value
	}
	return d
}

// Args is one command invocation's raw arguments keyed by parameter name.
type Args map[string]any

func (a Args) raw(key string) (any, bool) {
	if a == nil {
		return nil, false
	}
	v, ok := a[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (a Args) Has(key string) bool {
	_, ok := a.raw(key)
	return ok
}

// String coerces scalars to their textual form. Composite values are absent.
func (a Args) String(key string) Opt[string] {
	v, ok := a.raw(key)
	if !ok {
		return None[string]()
	}
	switch v.(type) {
	case map[string]any, []any:
		return None[string]()
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return None[string]()
	}
	return Some(s)
}

// Bool accepts booleans and the strings "true"/"false" in any case.
func (a Args) Bool(key string) Opt[bool] {
	v, ok := a.raw(key)
	if !ok {
		return None[bool]()
	}
	switch t := v.(type) {
	case bool:
		return Some(t)
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if s != "true" && s != "false" {
			return None[bool]()
		}
		return Some(s == "true")
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return None[bool]()
	}
	return Some(b)
}

// Float accepts numbers and numeric strings. NaN and infinities are absent.
func (a Args) Float(key string) Opt[float64] {
	v, ok := a.raw(key)
	if !ok {
		return None[float64]()
	}
	if _, isBool := v.(bool); isBool {
		return None[float64]()
	}
	if s, isString := v.(string); isString {
		v = strings.TrimSpace(s)
		if v == "" {
			return None[float64]()
		}
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return None[float64]()
	}
	return Some(f)
}

// Int accepts integral numbers ("2", 2, 2.0). Fractional values are absent.
func (a Args) Int(key string) Opt[int] {
	f := a.Float(key)
	if !f.Valid || f.Value != math.Trunc(f.Value) || math.Abs(f.Value) > math.MaxInt32 {
		return None[int]()
	}
	return Some(int(f.Value))
}

// ParseKV builds Args from key=value tokens (as typed on a command line). Values
// stay strings; typing happens at the accessors.
func ParseKV(tokens []string) (Args, error) {
	out := Args{}
	for _, tok := range tokens {
		k, v, ok := strings.Cut(tok, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid argument %q (expected key=value)", tok)
		}
		out[k] = v
	}
	return out, nil
}

// Keys returns the argument names in sorted order.
func (a Args) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
