package num

import (
	"math"
	"math/big"
	"strconv"

	"github.com/pkg/errors"
)

// ErrOverflow is the panic value raised when an Int operation leaves the
// 64-bit range. The rational mode never raises it.
var ErrOverflow = errors.New("num: int64 overflow")

// Int is a 64-bit integer with overflow detection. Overflow is fatal and
// surfaces as a panic carrying ErrOverflow.
type Int struct {
	v int64
}

// NewInt returns the Int with value v.
func NewInt(v int64) Int {
	return Int{v: v}
}

func (Int) FromInt64(v int64) Int {
	return Int{v: v}
}

func (Int) FromRat(r *big.Rat) (Int, bool) {
	if !r.IsInt() || !r.Num().IsInt64() {
		return Int{}, false
	}
	return Int{v: r.Num().Int64()}, true
}

func (a Int) ToRat() *big.Rat {
	return new(big.Rat).SetInt64(a.v)
}

func (a Int) Add(b Int) Int {
	c := a.v + b.v
	if (c > a.v) != (b.v > 0) {
		panic(errors.Wrapf(ErrOverflow, "%d + %d", a.v, b.v))
	}
	return Int{v: c}
}

func (a Int) Sub(b Int) Int {
	c := a.v - b.v
	if (c < a.v) != (b.v > 0) {
		panic(errors.Wrapf(ErrOverflow, "%d - %d", a.v, b.v))
	}
	return Int{v: c}
}

func (a Int) Neg() Int {
	if a.v == math.MinInt64 {
		panic(errors.Wrapf(ErrOverflow, "-(%d)", a.v))
	}
	return Int{v: -a.v}
}

func (a Int) Mul(b Int) Int {
	if a.v == 0 || b.v == 0 {
		return Int{}
	}
	c := a.v * b.v
	if c/b.v != a.v || (a.v == -1 && b.v == math.MinInt64) || (b.v == -1 && a.v == math.MinInt64) {
		panic(errors.Wrapf(ErrOverflow, "%d * %d", a.v, b.v))
	}
	return Int{v: c}
}

// Quo coincides with Div: the bounded mode carries no exact fractions.
func (a Int) Quo(b Int) Int {
	return a.Div(b)
}

// Div truncates toward zero.
func (a Int) Div(b Int) Int {
	if a.v == math.MinInt64 && b.v == -1 {
		panic(errors.Wrapf(ErrOverflow, "%d div %d", a.v, b.v))
	}
	return Int{v: a.v / b.v}
}

// Mod returns the non-negative remainder.
func (a Int) Mod(b Int) Int {
	r := a.v % b.v
	if r < 0 {
		if b.v < 0 {
			r -= b.v
		} else {
			r += b.v
		}
	}
	return Int{v: r}
}

func (a Int) Abs() Int {
	if a.v < 0 {
		return a.Neg()
	}
	return a
}

func (a Int) Cmp(b Int) int {
	switch {
	case a.v < b.v:
		return -1
	case a.v > b.v:
		return 1
	default:
		return 0
	}
}

func (a Int) Sign() int {
	switch {
	case a.v < 0:
		return -1
	case a.v > 0:
		return 1
	default:
		return 0
	}
}

func (a Int) IsZero() bool {
	return a.v == 0
}

func (Int) IsInt() bool {
	return true
}

func (a Int) Int64() int64 {
	return a.v
}

func (a Int) String() string {
	return strconv.FormatInt(a.v, 10)
}
