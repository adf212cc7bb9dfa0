package arith

import (
	"fmt"
	"strings"

	"gosls/internal/num"
	"gosls/internal/sat"
)

// ineq encodes args <= bound, args < bound or args = bound, stored as
// sum(c_i * v_i) + coeff <op> 0 with the cached argsValue = sum(c_i * v_i).
type ineq[T num.Val[T]] struct {
	linearTerm[T]
	op        ineqKind
	argsValue T
	// pivot selected by the reward pass, consumed by repair
	varToFlip int
}

func (i *ineq[T]) lhs() T {
	return i.argsValue.Add(i.coeff)
}

func (i *ineq[T]) isTrue() bool {
	switch i.op {
	case ineqLE:
		return i.lhs().Sign() <= 0
	case ineqEQ:
		return i.lhs().Sign() == 0
	default:
		return i.lhs().Sign() < 0
	}
}

func (i *ineq[T]) String() string {
	var b strings.Builder
	for j, a := range i.args {
		if j > 0 {
			b.WriteString(" + ")
		}
		fmt.Fprintf(&b, "%s * v%d", a.coeff, a.v)
	}
	if !i.coeff.IsZero() {
		fmt.Fprintf(&b, " + %s", i.coeff)
	}
	switch i.op {
	case ineqLE:
		fmt.Fprintf(&b, " <= 0 (%s)", i.lhs())
	case ineqEQ:
		fmt.Fprintf(&b, " == 0 (%s)", i.lhs())
	default:
		fmt.Fprintf(&b, " < 0 (%s)", i.lhs())
	}
	return b.String()
}

// dttArgs is the distance to truth of i under the hypothetical left hand side
// args. sign=false asks the distance to i being true, sign=true the
// distance to i being false.
func (p *Plugin[T]) dttArgs(sign bool, args T, i *ineq[T]) T {
	zero := p.num(0)
	lhs := args.Add(i.coeff)
	switch i.op {
	case ineqLE:
		if sign {
			if lhs.Sign() <= 0 {
				return i.coeff.Neg().Sub(args).Add(p.num(1))
			}
			return zero
		}
		if lhs.Sign() <= 0 {
			return zero
		}
		return lhs
	case ineqEQ:
		if sign {
			if lhs.Sign() == 0 {
				return p.num(1)
			}
			return zero
		}
		if lhs.Sign() == 0 {
			return zero
		}
		return p.num(1)
	case ineqLT:
		if sign {
			if lhs.Sign() < 0 {
				return i.coeff.Neg().Sub(args)
			}
			return zero
		}
		if lhs.Sign() < 0 {
			return zero
		}
		return lhs.Add(p.num(1))
	default:
		panic("invalid ineq kind")
	}
}

func (p *Plugin[T]) dtt(sign bool, i *ineq[T]) T {
	return p.dttArgs(sign, i.argsValue, i)
}

// dttVar evaluates dtt under v := newValue. Returns 1 when v does not occur.
func (p *Plugin[T]) dttVar(sign bool, i *ineq[T], v int, newValue T) T {
	for _, a := range i.args {
		if a.v == v {
			delta := a.coeff.Mul(newValue.Sub(p.value(v)))
			return p.dttArgs(sign, i.argsValue.Add(delta), i)
		}
	}
	return p.num(1)
}

func (p *Plugin[T]) dttShift(sign bool, i *ineq[T], coeff, oldValue, newValue T) T {
	return p.dttArgs(sign, i.argsValue.Add(coeff.Mul(newValue.Sub(oldValue))), i)
}

// computeDts is the distance to truth of a clause: the minimum dtt over its
// literals. Literals without an arithmetic atom are skipped.
func (p *Plugin[T]) computeDts(cl int) T {
	d := p.num(1)
	first := true
	for _, lit := range p.ctx.Clause(cl).Lits {
		i := p.atom(lit.Var())
		if i == nil {
			continue
		}
		d2 := p.dtt(lit.Sign(), i)
		if first {
			d, first = d2, false
		} else if d2.Cmp(d) < 0 {
			d = d2
		}
		if d.IsZero() {
			break
		}
	}
	return d
}

func (p *Plugin[T]) dts(cl, v int, newValue T) T {
	d := p.num(1)
	first := true
	for _, lit := range p.ctx.Clause(cl).Lits {
		i := p.atom(lit.Var())
		if i == nil {
			continue
		}
		d2 := p.dttVar(lit.Sign(), i, v, newValue)
		if first {
			d, first = d2, false
		} else if d2.Cmp(d) < 0 {
			d = d2
		}
		if d.IsZero() {
			break
		}
	}
	return d
}

// cmScore is the net number of false clauses that flipping v to newValue
// makes true.
func (p *Plugin[T]) cmScore(v int, newValue T) int {
	score := 0
	vi := &p.vars[v]
	oldValue := vi.value
	for _, br := range vi.boolVars {
		i := p.atom(br.bv)
		oldSign := p.sign(br.bv)
		dttOld := p.dtt(oldSign, i)
		dttNew := p.dttShift(oldSign, i, br.coeff, oldValue, newValue)
		if dttOld.IsZero() == dttNew.IsZero() {
			continue
		}
		lit := sat.MkLit(br.bv, oldSign)
		if dttOld.IsZero() {
			// flips from true to false
			lit = lit.Neg()
		}
		// lit flips from false to true
		for _, cl := range p.ctx.UseList(lit) {
			if !p.ctx.Clause(cl).IsTrue() {
				score++
			}
		}
		// clauses containing several literals over v are not compensated
		for _, cl := range p.ctx.UseList(lit.Neg()) {
			if p.ctx.Clause(cl).NumTrues == 1 {
				score--
			}
		}
	}
	return score
}

// dscore weighs the dts improvement of v := newValue over all clauses that
// mention the variable, scaled by the controller's clause weights.
func (p *Plugin[T]) dscore(v int, newValue T) float64 {
	score := 0.0
	vi := &p.vars[v]
	for _, br := range vi.boolVars {
		lit := sat.MkLit(br.bv, false)
		for _, cl := range p.ctx.UseList(lit) {
			delta := p.computeDts(cl).Sub(p.dts(cl, v, newValue))
			score += float64(delta.Int64()) * float64(p.ctx.Weight(cl))
		}
		for _, cl := range p.ctx.UseList(lit.Neg()) {
			delta := p.computeDts(cl).Sub(p.dts(cl, v, newValue))
			score += float64(delta.Int64()) * float64(p.ctx.Weight(cl))
		}
	}
	return score
}
