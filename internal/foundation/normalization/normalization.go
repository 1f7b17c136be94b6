// Package normalization maps loosely written configuration strings onto
// typed enum values.
package normalization

import (
	"fmt"
	"slices"
	"strings"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Enum normalizes raw strings (case and surrounding space insensitive)
// to values of T.
type Enum[T comparable] struct {
	name   string
	values map[string]T
	keys   []string
	def    T
}

// NewEnum builds an Enum. Aliases are just extra keys mapping to the same
// value. def is returned for empty input.
func NewEnum[T comparable](name string, values map[string]T, def T) *Enum[T] {
	e := &Enum[T]{name: name, values: make(map[string]T, len(values)), def: def}
	for k, v := range values {
		k = clean(k)
		e.values[k] = v
		e.keys = append(e.keys, k)
	}
	slices.Sort(e.keys)
	return e
}

// Normalize returns the value for raw, or the default when raw is empty or
// unknown.
func (e *Enum[T]) Normalize(raw string) T {
	if v, ok := e.values[clean(raw)]; ok {
		return v
	}
	return e.def
}

// Parse is the strict form of Normalize: unknown non-empty input is an
// InvalidConfig error listing the accepted keys.
func (e *Enum[T]) Parse(raw string) (T, error) {
	c := clean(raw)
	if c == "" {
		return e.def, nil
	}
	if v, ok := e.values[c]; ok {
		return v, nil
	}
	var zero T
	return zero, ferrors.ConfigError(fmt.Sprintf("invalid %s %q (valid: %s)", e.name, raw, strings.Join(e.keys, ", "))).
		WithContext("value", raw).
		Build()
}

// Keys returns the accepted spellings in sorted order.
func (e *Enum[T]) Keys() []string { return slices.Clone(e.keys) }

func clean(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
