package rational

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNormalizes(t *testing.T) {
	tests := []struct {
		name     string
		num, den int64
		want     string
	}{
		{"already reduced", 3, 8, "3/8"},
		{"reduces", 6, 16, "3/8"},
		{"negative denominator", 1, -4, "-1/4"},
		{"integer", 8, 4, "2"},
		{"zero", 0, 7, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.num, tt.den).String())
		})
	}
}

func TestZeroValueIsZero(t *testing.T) {
	var r Rational
	assert.True(t, r.IsZero())
	assert.Equal(t, Zero, New(0, 3))
	assert.Equal(t, int64(1), r.Den())
	assert.Equal(t, One, New(4, 4))
}

func TestArithmetic(t *testing.T) {
	eighth := New(1, 8)

	assert.Equal(t, New(3, 8), eighth.Plus(New(1, 4)))
	assert.Equal(t, New(-1, 8), eighth.Minus(New(1, 4)))
	assert.Equal(t, New(1, 12), eighth.Times(TwoThirds))
	assert.Equal(t, ThreeHalves, New(3, 8).Divides(Quarter))
	assert.Equal(t, New(3, 4), Quarter.TimesInt(3))
	assert.Equal(t, -1, eighth.Cmp(Quarter))
	assert.Equal(t, 0, New(2, 16).Cmp(eighth))
	assert.True(t, Quarter.Less(Half))
	assert.Equal(t, Quarter, Min(Half, Quarter))
	assert.Equal(t, Half, Max(Half, Quarter))
}

func TestDividesByZeroPanics(t *testing.T) {
	assert.Panics(t, func() { One.Divides(Zero) })
}

func TestParse(t *testing.T) {
	r, err := Parse(" 6/8 ")
	require.NoError(t, err)
	assert.Equal(t, New(3, 4), r)

	r, err = Parse("2")
	require.NoError(t, err)
	assert.Equal(t, Int(2), r)

	for _, bad := range []string{"", "a/2", "1/0", "1/x"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrSyntax, bad)
	}
}

func TestTextRoundTrip(t *testing.T) {
	var r Rational
	require.NoError(t, r.UnmarshalText([]byte("3/12")))
	text, err := r.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1/4", string(text))
}

func TestOptionalHelpers(t *testing.T) {
	assert.Equal(t, "", String(nil))
	assert.Equal(t, "1/2", String(Half.Ptr()))

	p, err := ParsePtr("")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = ParsePtr("1/2")
	require.NoError(t, err)
	assert.True(t, EqualPtr(p, Half.Ptr()))
	assert.False(t, EqualPtr(p, nil))
	assert.True(t, EqualPtr(nil, nil))
}

func TestRationalAsMapKey(t *testing.T) {
	m := map[Rational]int{}
	m[New(1, 4)]++
	m[New(2, 8)]++
	m[Quarter]++
	assert.Equal(t, 3, m[Quarter])
}
