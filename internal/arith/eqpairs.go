package arith

import (
	log "github.com/sirupsen/logrus"

	"gosls/internal/num"
)

// solveEqPairs repairs an equality by solving for a pair of variables with
// non-unit coefficients: the remaining terms are folded into the right hand
// side and the pair is solved as a linear Diophantine equation.
func (p *Plugin[T]) solveEqPairs(i *ineq[T]) bool {
	v := i.varToFlip
	if v == nullIdx || p.isFixed(v) {
		return false
	}
	bound := i.coeff.Neg()
	argsv := i.argsValue
	var a T
	found := false
	for _, arg := range i.args {
		if arg.v == v {
			a = arg.coeff
			argsv = argsv.Sub(p.value(v).Mul(arg.coeff))
			found = true
		}
	}
	if !found || a.Abs().Cmp(p.num(1)) == 0 {
		return false
	}
	log.Debugf("solve_eq_pairs %s for v%d", i, v)
	start := p.ctx.Rand(len(i.args))
	for k := 0; k < len(i.args); k++ {
		j := (start + k) % len(i.args)
		b, w := i.args[j].coeff, i.args[j].v
		if w == v {
			continue
		}
		if b.Abs().Cmp(p.num(1)) == 0 {
			continue
		}
		argsv = argsv.Sub(p.value(w).Mul(b))
		if p.solvePair(a, v, b, w, bound.Sub(argsv)) {
			return true
		}
		argsv = argsv.Add(p.value(w).Mul(b))
	}
	return false
}

// solvePair solves a*x + b*y = r over the integers. With g = gcd(a, b) and
// Bezout coefficients scaled by r/g, the solution progression is
// (x0 + k*b/g, y0 - k*a/g); k is adjusted to pull both variables into
// their bounds. Moves that blow a value up past twice its current
// magnitude are rejected; a variable currently at zero is exempt.
func (p *Plugin[T]) solvePair(a T, x int, b T, y int, r T) bool {
	if p.isFixed(y) {
		return false
	}
	if !a.IsInt() || !b.IsInt() || !r.IsInt() {
		return false
	}
	g, x0, y0 := num.Gcd(a, b)
	if !num.Divides(g, r) {
		return false
	}
	scale := r.Div(g)
	x0 = x0.Mul(scale)
	y0 = y0.Mul(scale)

	// center the base solution on the current value of x; the Bezout
	// solution can be arbitrarily far out on the progression
	bgStep := b.Div(g)
	agStep := a.Div(g)
	if !bgStep.IsZero() {
		k := p.value(x).Sub(x0).Div(bgStep)
		x0 = x0.Add(k.Mul(bgStep))
		y0 = y0.Sub(k.Mul(agStep))
	}

	// one step of the progression applied to the first variable; the
	// second moves in lockstep to keep a*x0 + b*y0 == r
	adjustLo := func(x0, y0, a, b T, xv int, lo, hi *bound[T]) (T, T, bool) {
		if lo == nil || lo.value.Cmp(x0) <= 0 {
			return x0, y0, true
		}
		delta := lo.value.Sub(x0)
		bg := b.Div(g).Abs()
		k := p.divide(xv, delta, bg)
		x1 := x0.Add(k.Mul(bg))
		if hi != nil && hi.value.Cmp(x1) < 0 {
			return x0, y0, false
		}
		step := a.Div(g)
		if b.Div(g).Sign() > 0 {
			step = step.Neg()
		}
		return x1, y0.Add(k.Mul(step)), true
	}
	adjustHi := func(x0, y0, a, b T, xv int, lo, hi *bound[T]) (T, T, bool) {
		if hi == nil || hi.value.Cmp(x0) >= 0 {
			return x0, y0, true
		}
		delta := x0.Sub(hi.value)
		bg := b.Div(g).Abs()
		k := p.divide(xv, delta, bg)
		x1 := x0.Sub(k.Mul(bg))
		if lo != nil && lo.value.Cmp(x1) > 0 {
			return x0, y0, false
		}
		step := a.Div(g)
		if b.Div(g).Sign() > 0 {
			step = step.Neg()
		}
		return x1, y0.Sub(k.Mul(step)), true
	}

	loX, hiX := p.vars[x].lo, p.vars[x].hi
	var ok bool
	if x0, y0, ok = adjustLo(x0, y0, a, b, x, loX, hiX); !ok {
		return false
	}
	if x0, y0, ok = adjustHi(x0, y0, a, b, x, loX, hiX); !ok {
		return false
	}
	loY, hiY := p.vars[y].lo, p.vars[y].hi
	if y0, x0, ok = adjustLo(y0, x0, b, a, y, loY, hiY); !ok {
		return false
	}
	if y0, x0, ok = adjustHi(y0, x0, b, a, y, loY, hiY); !ok {
		return false
	}

	if loX != nil && loX.value.Cmp(x0) > 0 {
		return false
	}
	if hiX != nil && hiX.value.Cmp(x0) < 0 {
		return false
	}
	if x0.Cmp(p.value(x)) == 0 {
		return false
	}
	// stability: a non-zero variable may not grow past twice its current
	// magnitude
	if !p.value(x).IsZero() && p.value(x).Abs().Mul(p.num(2)).Cmp(x0.Abs()) < 0 {
		return false
	}
	if !p.value(y).IsZero() && p.value(y).Abs().Mul(p.num(2)).Cmp(y0.Abs()) < 0 {
		return false
	}
	p.update(x, x0)
	p.update(y, y0)
	return true
}
