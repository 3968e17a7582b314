package indicator_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpicli/internal/indicator"
)

func TestNormalizePercentage(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want *float64
	}{
		{name: "percent string", raw: "86.25%", want: floatPtr(86.25)},
		{name: "bare numeric string", raw: "92.3", want: floatPtr(92.3)},
		{name: "numeric string with spaces", raw: "  77.10%  ", want: floatPtr(77.1)},
		{name: "float passthrough", raw: 12.5, want: floatPtr(12.5)},
		{name: "int passthrough", raw: 40, want: floatPtr(40)},
		{name: "nil", raw: nil, want: nil},
		{name: "garbage", raw: "not-a-number", want: nil},
		{name: "empty string", raw: "", want: nil},
		{name: "bare percent sign", raw: "%", want: nil},
		{name: "ui placeholder", raw: "--", want: nil},
		{name: "NaN", raw: math.NaN(), want: nil},
		{name: "infinity", raw: math.Inf(1), want: nil},
		{name: "unsupported type", raw: struct{}{}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := indicator.NormalizePercentage(tt.raw)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestNormalizeInteger(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want *int64
	}{
		{name: "plain integer string", raw: "123", want: intPtr(123)},
		{name: "float formatted count", raw: "123.0", want: intPtr(123)},
		{name: "truncates fraction", raw: "99.9", want: intPtr(99)},
		{name: "numeric passthrough", raw: 42, want: intPtr(42)},
		{name: "float passthrough", raw: 42.7, want: intPtr(42)},
		{name: "nil", raw: nil, want: nil},
		{name: "empty string", raw: "", want: nil},
		{name: "garbage", raw: "n/a", want: nil},
		{name: "NaN", raw: math.NaN(), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := indicator.NormalizeInteger(tt.raw)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestNormalizeString(t *testing.T) {
	assert.Nil(t, indicator.NormalizeString(nil))
	assert.Nil(t, indicator.NormalizeString(""))
	assert.Nil(t, indicator.NormalizeString("   "))

	got := indicator.NormalizeString("  1523  ")
	require.NotNil(t, got)
	assert.Equal(t, "1523", *got)
}

func TestNormalizeDispatch(t *testing.T) {
	v, err := indicator.Normalize("conn15Rate", "92.30%")
	require.NoError(t, err)
	require.False(t, v.Absent())
	assert.Equal(t, indicator.KindPercentage, v.Kind())
	assert.InDelta(t, 92.3, v.Float(), 1e-9)

	v, err = indicator.Normalize("artCallinCt", "123.0")
	require.NoError(t, err)
	require.False(t, v.Absent())
	assert.Equal(t, int64(123), v.Int())

	v, err = indicator.Normalize("wanselfcnt", " 20041 ")
	require.NoError(t, err)
	require.False(t, v.Absent())
	assert.Equal(t, "20041", v.String())

	// Parse failures resolve to the absent sentinel, not an error.
	v, err = indicator.Normalize("conn15Rate", "loading...")
	require.NoError(t, err)
	assert.True(t, v.Absent())

	// Unknown field names are a contract violation and do error.
	_, err = indicator.Normalize("noSuchField", "1")
	assert.Error(t, err)
}

func TestValueArg(t *testing.T) {
	assert.Equal(t, 86.25, indicator.Percent(86.25).Arg())
	assert.Equal(t, int64(7), indicator.Count(7).Arg())
	assert.Equal(t, "x", indicator.Text("x").Arg())
	assert.Nil(t, indicator.Value{}.Arg())
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int64) *int64       { return &i }
