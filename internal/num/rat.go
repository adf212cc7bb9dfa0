package num

import (
	"math/big"
)

// Rat is an exact arbitrary precision rational. The zero value is 0.
type Rat struct {
	v *big.Rat
}

// NewRat returns the Rat with value a/b.
func NewRat(a, b int64) Rat {
	return Rat{v: big.NewRat(a, b)}
}

func (a Rat) rat() *big.Rat {
	if a.v == nil {
		return new(big.Rat)
	}
	return a.v
}

func (Rat) FromInt64(v int64) Rat {
	return Rat{v: new(big.Rat).SetInt64(v)}
}

func (Rat) FromRat(r *big.Rat) (Rat, bool) {
	return Rat{v: new(big.Rat).Set(r)}, true
}

func (a Rat) ToRat() *big.Rat {
	return new(big.Rat).Set(a.rat())
}

func (a Rat) Add(b Rat) Rat {
	return Rat{v: new(big.Rat).Add(a.rat(), b.rat())}
}

func (a Rat) Sub(b Rat) Rat {
	return Rat{v: new(big.Rat).Sub(a.rat(), b.rat())}
}

func (a Rat) Neg() Rat {
	return Rat{v: new(big.Rat).Neg(a.rat())}
}

func (a Rat) Mul(b Rat) Rat {
	return Rat{v: new(big.Rat).Mul(a.rat(), b.rat())}
}

// Quo is exact division. b must be non-zero.
func (a Rat) Quo(b Rat) Rat {
	return Rat{v: new(big.Rat).Quo(a.rat(), b.rat())}
}

// Div truncates the quotient toward zero. Operands must be integer-valued.
func (a Rat) Div(b Rat) Rat {
	q := new(big.Int).Quo(a.rat().Num(), b.rat().Num())
	return Rat{v: new(big.Rat).SetInt(q)}
}

// Mod returns the non-negative remainder. Operands must be integer-valued.
func (a Rat) Mod(b Rat) Rat {
	r := new(big.Int).Rem(a.rat().Num(), b.rat().Num())
	if r.Sign() < 0 {
		r.Add(r, new(big.Int).Abs(b.rat().Num()))
	}
	return Rat{v: new(big.Rat).SetInt(r)}
}

func (a Rat) Abs() Rat {
	return Rat{v: new(big.Rat).Abs(a.rat())}
}

func (a Rat) Cmp(b Rat) int {
	return a.rat().Cmp(b.rat())
}

func (a Rat) Sign() int {
	return a.rat().Sign()
}

func (a Rat) IsZero() bool {
	return a.rat().Sign() == 0
}

func (a Rat) IsInt() bool {
	return a.rat().IsInt()
}

// Int64 truncates toward zero.
func (a Rat) Int64() int64 {
	return new(big.Int).Quo(a.rat().Num(), a.rat().Denom()).Int64()
}

func (a Rat) String() string {
	return a.rat().RatString()
}
