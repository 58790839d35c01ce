package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		in   string
		want int64 // micro-units
	}{
		{"0", 0},
		{"0.00", 0},
		{"1", 1_000_000},
		{"50.00", 50_000_000},
		{"0.5", 500_000},
		{"0.000001", 1},
		{"123.456789", 123_456_789},
		{"1000000", 1_000_000_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			a, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.MicroUnits())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		".5",
		"5.",
		"-1",
		"+1",
		"1e6",
		"1,000",
		"abc",
		"1.2.3",
		"0.0000001", // 7 decimal places - never rounded, always rejected
		"10 ",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			assert.Error(t, err)
		})
	}
}

func TestString_TrimsToTwoPlaces(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"50", "50.00"},
		{"50.00", "50.00"},
		{"0.5", "0.50"},
		{"0.000001", "0.000001"},
		{"123.456", "123.456"},
		{"0", "0.00"},
	}
	for _, tt := range tests {
		a := MustParse(tt.in)
		assert.Equal(t, tt.want, a.String())
	}
}

func TestString_Negative(t *testing.T) {
	a := MustParse("10.00").Sub(MustParse("12.50"))
	assert.Equal(t, "-2.50", a.String())
	assert.True(t, a.IsNegative())
}

func TestParseString_RoundTrip(t *testing.T) {
	// Round-trip the boundary values the engine actually passes around.
	for _, s := range []string{"0.00", "50.00", "90.00", "100.00", "0.000001"} {
		a := MustParse(s)
		b, err := Parse(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestAdd_Overflow(t *testing.T) {
	a := Amount(1<<63 - 10)
	_, err := a.Add(Amount(100))
	assert.Error(t, err)

	sum, err := MustParse("90.00").Add(MustParse("20.00"))
	require.NoError(t, err)
	assert.Equal(t, "110.00", sum.String())
}

func TestCmp(t *testing.T) {
	assert.Equal(t, -1, MustParse("10.00").Cmp(MustParse("20.00")))
	assert.Equal(t, 0, MustParse("10").Cmp(MustParse("10.000000")))
	assert.Equal(t, 1, MustParse("60.00").Cmp(MustParse("50.00")))
}
