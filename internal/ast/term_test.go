package ast

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSorts(t *testing.T) {
	x := NewVar("x", SortInt)
	r := NewVar("r", SortReal)
	assert.True(t, x.IsInt())
	assert.True(t, r.IsReal())
	assert.True(t, x.IsIntReal())

	assert.Equal(t, SortInt, Add(x, NewIntNum(1)).Sort())
	assert.Equal(t, SortReal, Add(x, r).Sort())
	assert.Equal(t, SortReal, Div(x, x).Sort())
	assert.Equal(t, SortInt, Mod(x, x).Sort())
	assert.Equal(t, SortBool, Le(x, x).Sort())
}

func TestNumVal(t *testing.T) {
	n := NewIntNum(42)
	v, ok := n.NumVal()
	require.True(t, ok)
	assert.Equal(t, int64(42), v.Num().Int64())

	neg := Neg(n)
	v, ok = neg.NumVal()
	require.True(t, ok)
	assert.Equal(t, int64(-42), v.Num().Int64())

	_, ok = NewVar("x", SortInt).NumVal()
	assert.False(t, ok)

	half := NewNum(big.NewRat(1, 2), SortReal)
	v, ok = half.NumVal()
	require.True(t, ok)
	assert.Equal(t, "1/2", v.RatString())
}

func TestPredicates(t *testing.T) {
	x := NewVar("x", SortInt)
	y := NewVar("y", SortInt)
	assert.True(t, Add(x, y).IsAdd())
	assert.True(t, Mul(x, y).IsMul())
	assert.True(t, Sub(x, y).IsSub())
	assert.True(t, Mod(x, y).IsMod())
	assert.True(t, Eq(x, y).IsEq())
	assert.True(t, Lt(x, y).IsLt())
	assert.True(t, Abs(x).IsAbs())
	assert.True(t, Mul(x, y).IsArithExpr())
	assert.False(t, Eq(x, y).IsArithExpr())
	assert.False(t, x.IsArithExpr())
}

func TestString(t *testing.T) {
	x := NewVar("x", SortInt)
	y := NewVar("y", SortInt)
	assert.Equal(t, "x + y <= 0", Le(Add(x, y), NewIntNum(0)).String())
	assert.Equal(t, "x*x = 16", Eq(Mul(x, x), NewIntNum(16)).String())
	assert.Equal(t, "(x mod 5) = 2", Eq(Mod(x, NewIntNum(5)), NewIntNum(2)).String())
	assert.Equal(t, "(x + y)*y", Mul(Add(x, y), y).String())
}

func TestModel(t *testing.T) {
	x := NewVar("x", SortInt)
	m := NewModel()
	assert.Nil(t, m.Value(x))
	m.Set(x, NewIntNum(3))
	require.NotNil(t, m.Value(x))
	v, ok := m.Value(x).NumVal()
	require.True(t, ok)
	assert.Equal(t, int64(3), v.Num().Int64())
	assert.Equal(t, "x := 3", m.String())
}
