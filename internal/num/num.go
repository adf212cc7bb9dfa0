package num

import (
	"math/big"
)

// Val is the numeric abstraction the arithmetic engine is parameterized
// over. Int is a 64-bit integer with overflow detection, Rat is an exact
// rational. Values are immutable; every operation returns a fresh value.
//
// Div truncates toward zero, Mod is always non-negative. Both treat the
// operands as integers and must only be called on integer-valued inputs.
type Val[T any] interface {
	FromInt64(v int64) T
	FromRat(r *big.Rat) (T, bool)
	ToRat() *big.Rat

	Add(o T) T
	Sub(o T) T
	Neg() T
	Mul(o T) T
	Quo(o T) T
	Div(o T) T
	Mod(o T) T
	Abs() T

	Cmp(o T) int
	Sign() int
	IsZero() bool
	IsInt() bool
	Int64() int64
	String() string
}

// Gcd returns g = gcd(a, b) together with Bezout coefficients x, y such
// that g == a*x + b*y. Both arguments must be integer-valued; g is
// non-negative and zero only when both arguments are zero.
func Gcd[T Val[T]](a, b T) (g, x, y T) {
	var zero T
	one := zero.FromInt64(1)
	oldR, r := a, b
	oldX, curX := one, zero
	oldY, curY := zero, one
	for !r.IsZero() {
		q := oldR.Div(r)
		oldR, r = r, oldR.Sub(q.Mul(r))
		oldX, curX = curX, oldX.Sub(q.Mul(curX))
		oldY, curY = curY, oldY.Sub(q.Mul(curY))
	}
	if oldR.Sign() < 0 {
		return oldR.Neg(), oldX.Neg(), oldY.Neg()
	}
	return oldR, oldX, oldY
}

// Divides reports whether a divides b. a must be non-zero.
func Divides[T Val[T]](a, b T) bool {
	return b.Mod(a).IsZero()
}

// Sqrt computes the integer square root of n by Newton iteration.
// For n >= 0 the result r satisfies r*r <= n < (r+1)*(r+1).
func Sqrt[T Val[T]](n T) T {
	var zero T
	one := zero.FromInt64(1)
	two := zero.FromInt64(2)
	if n.Cmp(one) <= 0 {
		return n
	}
	x0 := n.Div(two)
	x1 := x0.Add(n.Div(x0)).Div(two)
	for x1.Cmp(x0) < 0 {
		x0 = x1
		x1 = x0.Add(n.Div(x0)).Div(two)
	}
	return x0
}
