package kv

import (
	"time"

	"github.com/spf13/cast"
)

// Float64 lenently coerces a metadata value (which may have arrived as
// JSON float64, int, or string after a persistence round-trip) to a
// float64, following the spec's convention that numeric metadata fields
// such as confidence/importance/strength are read defensively.
func (m KSVA) Float64(key string, def float64) float64 {
	v, ok := m.Value(key)
	if !ok {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return f
}

// Time coerces a metadata value to a time.Time, accepting RFC3339
// strings, unix seconds, or an already-parsed time.Time.
func (m KSVA) Time(key string, def time.Time) time.Time {
	v, ok := m.Value(key)
	if !ok {
		return def
	}
	t, err := cast.ToTimeE(v)
	if err != nil {
		return def
	}
	return t
}

// StringSlice coerces a metadata value to a []string, accepting
// []string, []any of strings, or a single string.
func (m KSVA) StringSlice(key string) []string {
	v, ok := m.Value(key)
	if !ok {
		return nil
	}
	ss, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil
	}
	return ss
}
