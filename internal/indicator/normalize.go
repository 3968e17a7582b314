package indicator

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is one normalized indicator value. The zero Value is the absent
// sentinel: "no usable value was obtained", which is distinct from a
// legitimate zero.
type Value struct {
	kind Kind
	f    float64
	i    int64
	s    string
}

// Percent wraps a normalized percentage.
func Percent(f float64) Value { return Value{kind: KindPercentage, f: f} }

// Count wraps a normalized integer count.
func Count(i int64) Value { return Value{kind: KindInteger, i: i} }

// Text wraps a passthrough string.
func Text(s string) Value { return Value{kind: KindString, s: s} }

// Absent reports whether the value is the absent sentinel.
func (v Value) Absent() bool { return v.kind == 0 }

// Kind returns the value kind, or 0 for an absent value.
func (v Value) Kind() Kind { return v.kind }

// Float returns the percentage value. Only meaningful for KindPercentage.
func (v Value) Float() float64 { return v.f }

// Int returns the count value. Only meaningful for KindInteger.
func (v Value) Int() int64 { return v.i }

// Arg returns the value as a database driver argument, or nil when absent.
func (v Value) Arg() any {
	switch v.kind {
	case KindPercentage:
		return v.f
	case KindInteger:
		return v.i
	case KindString:
		return v.s
	default:
		return nil
	}
}

// String renders the value for logging.
func (v Value) String() string {
	switch v.kind {
	case KindPercentage:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindString:
		return v.s
	default:
		return "<absent>"
	}
}

// NormalizePercentage converts a raw scraped value into a percentage.
// "86.25%" becomes 86.25; a bare numeric string or number passes through as
// a float. Nil input, NaN, and anything unparseable return nil. It never
// fails for any input.
func NormalizePercentage(raw any) *float64 {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(v)
		s = strings.TrimSuffix(s, "%")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return &f
	default:
		f, ok := toFloat(raw)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return &f
	}
}

// NormalizeInteger converts a raw scraped value into an integer count. The
// input is parsed as a float first so that "123.0" still yields 123, then
// truncated. Any parse failure returns nil instead of an error.
func NormalizeInteger(raw any) *int64 {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		n := int64(f)
		return &n
	default:
		f, ok := toFloat(raw)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		n := int64(f)
		return &n
	}
}

// NormalizeString trims a raw value and passes it through. Empty strings
// and nil collapse to nil.
func NormalizeString(raw any) *string {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		return &s
	default:
		s := strings.TrimSpace(fmt.Sprint(raw))
		if s == "" {
			return nil
		}
		return &s
	}
}

// Normalize dispatches a raw value through the registry. An unknown field
// name is a caller bug and returns an error; a value that fails to parse is
// expected operational noise and returns the absent sentinel.
func Normalize(field string, raw any) (Value, error) {
	kind, ok := KindOf(field)
	if !ok {
		return Value{}, fmt.Errorf("indicator: unknown field %q", field)
	}
	switch kind {
	case KindPercentage:
		if f := NormalizePercentage(raw); f != nil {
			return Percent(*f), nil
		}
	case KindInteger:
		if n := NormalizeInteger(raw); n != nil {
			return Count(*n), nil
		}
	case KindString:
		if s := NormalizeString(raw); s != nil {
			return Text(*s), nil
		}
	}
	return Value{}, nil
}

// toFloat coerces the numeric types a scraper or API caller can plausibly
// hand us. Anything else is treated as unparseable.
func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
