package num

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntDivMod(t *testing.T) {
	var testCases = []struct {
		a, b int64
		div  int64
		mod  int64
	}{
		{7, 3, 2, 1},
		{-7, 3, -2, 2},
		{7, -3, -2, 1},
		{-7, -3, 2, 2},
		{6, 3, 2, 0},
		{-6, 3, -2, 0},
		{0, 5, 0, 0},
	}
	for _, tc := range testCases {
		a, b := NewInt(tc.a), NewInt(tc.b)
		assert.Equal(t, tc.div, a.Div(b).Int64(), "%d div %d", tc.a, tc.b)
		assert.Equal(t, tc.mod, a.Mod(b).Int64(), "%d mod %d", tc.a, tc.b)
		assert.True(t, a.Mod(b).Sign() >= 0)
	}
}

func TestIntOverflow(t *testing.T) {
	max := NewInt(math.MaxInt64)
	min := NewInt(math.MinInt64)
	assert.Panics(t, func() { max.Add(NewInt(1)) })
	assert.Panics(t, func() { min.Sub(NewInt(1)) })
	assert.Panics(t, func() { max.Mul(NewInt(2)) })
	assert.Panics(t, func() { min.Neg() })
	assert.Panics(t, func() { min.Abs() })
	assert.NotPanics(t, func() { max.Add(NewInt(0)) })
	assert.NotPanics(t, func() { max.Neg() })
}

func TestGcdBezout(t *testing.T) {
	var testCases = []struct {
		a, b int64
		g    int64
	}{
		{2, 3, 1},
		{12, 18, 6},
		{-4, 6, 2},
		{0, 5, 5},
		{5, 0, 5},
		{21, 14, 7},
		{-21, -14, 7},
	}
	for _, tc := range testCases {
		g, x, y := Gcd(NewInt(tc.a), NewInt(tc.b))
		assert.Equal(t, tc.g, g.Int64(), "gcd(%d, %d)", tc.a, tc.b)
		lhs := NewInt(tc.a).Mul(x).Add(NewInt(tc.b).Mul(y))
		assert.Equal(t, tc.g, lhs.Int64(), "bezout for (%d, %d)", tc.a, tc.b)
	}
}

func TestDivides(t *testing.T) {
	assert.True(t, Divides(NewInt(3), NewInt(12)))
	assert.True(t, Divides(NewInt(-3), NewInt(12)))
	assert.False(t, Divides(NewInt(5), NewInt(12)))
	assert.True(t, Divides(NewInt(1), NewInt(7)))
}

func TestSqrt(t *testing.T) {
	for n := int64(0); n <= 1000; n++ {
		r := Sqrt(NewInt(n))
		rr := r.Mul(r)
		r1 := r.Add(NewInt(1))
		assert.True(t, rr.Int64() <= n, "sqrt(%d) = %d", n, r.Int64())
		assert.True(t, r1.Mul(r1).Int64() > n, "sqrt(%d) = %d", n, r.Int64())
	}
}

func TestRatExact(t *testing.T) {
	third := NewRat(1, 3)
	sum := third.Add(third).Add(third)
	assert.Equal(t, 0, sum.Cmp(NewRat(1, 1)))

	q := NewRat(1, 1).Quo(NewRat(3, 1))
	assert.Equal(t, 0, q.Cmp(third))
	assert.False(t, q.IsInt())
	assert.True(t, NewRat(4, 2).IsInt())
}

func TestRatZeroValue(t *testing.T) {
	var zero Rat
	assert.True(t, zero.IsZero())
	assert.Equal(t, int64(5), zero.Add(NewRat(5, 1)).Int64())
	assert.Equal(t, "0", zero.String())
}

func TestRatDivMod(t *testing.T) {
	a, b := NewRat(-7, 1), NewRat(3, 1)
	assert.Equal(t, int64(-2), a.Div(b).Int64())
	assert.Equal(t, int64(2), a.Mod(b).Int64())
}

func TestFromRat(t *testing.T) {
	var zi Int
	n, ok := zi.FromRat(big.NewRat(42, 1))
	require.True(t, ok)
	assert.Equal(t, int64(42), n.Int64())
	_, ok = zi.FromRat(big.NewRat(1, 2))
	assert.False(t, ok)

	var zr Rat
	r, ok := zr.FromRat(big.NewRat(1, 2))
	require.True(t, ok)
	assert.Equal(t, "1/2", r.String())
}
