package arith

import (
	"math/big"

	log "github.com/sirupsen/logrus"

	"gosls/internal/ast"
	"gosls/internal/num"
	"gosls/internal/sat"
)

// rem is the remainder with the sign of the dividend.
func rem[T num.Val[T]](a, b T) T {
	return a.Sub(b.Mul(a.Div(b)))
}

// power raises a to the non-negative integer b. Unsupported exponents,
// negative, fractional or past the bit width, evaluate to 0.
func power[T num.Val[T]](a, b T) T {
	var zero T
	if b.Sign() < 0 || !b.IsInt() || b.Int64() > 64 {
		return zero.FromInt64(0)
	}
	r := zero.FromInt64(1)
	for i := int64(0); i < b.Int64(); i++ {
		r = r.Mul(a)
	}
	return r
}

// floor rounds toward negative infinity.
func floor[T num.Val[T]](a T) T {
	if a.IsInt() {
		return a
	}
	r := a.ToRat()
	q := new(big.Int).Div(r.Num(), r.Denom())
	var zero T
	f, ok := zero.FromRat(new(big.Rat).SetInt(q))
	if !ok {
		panic(num.ErrOverflow)
	}
	return f
}

// divide rounds delta/coeff away from the current value: ceiling division
// for integer variables, exact division for reals.
func (p *Plugin[T]) divide(v int, delta, coeff T) T {
	if p.isInt(v) {
		return delta.Add(coeff.Abs()).Sub(p.num(1)).Div(coeff)
	}
	return delta.Quo(coeff)
}

func (p *Plugin[T]) cm(i *ineq[T], v int) (T, bool) {
	for _, a := range i.args {
		if a.v == v {
			return p.cmCoeff(i, v, a.coeff)
		}
	}
	var zero T
	return zero, false
}

// cmCoeff computes a critical move: a value for v that toggles the truth of
// the atom. The result is clamped toward the variable bounds.
func (p *Plugin[T]) cmCoeff(i *ineq[T], v int, coeff T) (T, bool) {
	bound := i.coeff.Neg()
	argsv := i.argsValue
	delta := argsv.Sub(bound)
	lo := p.vars[v].lo
	hi := p.vars[v].hi

	var newValue T
	if p.isFixed(v) {
		return newValue, false
	}

	wellFormed := func() bool {
		newArgs := argsv.Add(coeff.Mul(newValue.Sub(p.value(v))))
		if i.isTrue() {
			switch i.op {
			case ineqLE:
				return newArgs.Cmp(bound) > 0
			case ineqLT:
				return newArgs.Cmp(bound) >= 0
			case ineqEQ:
				return newArgs.Cmp(bound) != 0
			}
		} else {
			switch i.op {
			case ineqLE:
				return newArgs.Cmp(bound) <= 0
			case ineqLT:
				return newArgs.Cmp(bound) < 0
			case ineqEQ:
				return newArgs.Cmp(bound) == 0
			}
		}
		return false
	}

	moveToBounds := func() bool {
		if !wellFormed() {
			panic("cm: move is not well formed")
		}
		if !p.inBounds(v, p.value(v)) {
			return true
		}
		if p.inBounds(v, newValue) {
			return true
		}
		if lo != nil && lo.value.Cmp(newValue) > 0 {
			newValue = lo.value
			if !wellFormed() {
				newValue = newValue.Add(p.num(1))
			}
		}
		if hi != nil && hi.value.Cmp(newValue) < 0 {
			newValue = hi.value
			if !wellFormed() {
				newValue = newValue.Sub(p.num(1))
			}
		}
		return wellFormed() && p.inBounds(v, newValue)
	}

	ok := false
	if i.isTrue() {
		switch i.op {
		case ineqLE:
			// args <= bound becomes args > bound
			delta = delta.Sub(p.num(1))
			step := delta.Sub(p.num(int64(p.ctx.Rand(3)))).Abs()
			newValue = p.value(v).Add(p.divide(v, step, coeff))
			ok = moveToBounds()
		case ineqLT:
			// args < bound becomes args >= bound
			delta = delta.Abs()
			step := delta.Add(p.num(int64(p.ctx.Rand(3))))
			newValue = p.value(v).Add(p.divide(v, step, coeff))
			ok = moveToBounds()
		case ineqEQ:
			step := delta.Abs().Add(p.num(1)).Add(p.num(int64(p.ctx.Rand(10))))
			d := p.divide(v, step, coeff)
			if p.ctx.Rand(2) == 0 {
				newValue = p.value(v).Add(d)
			} else {
				newValue = p.value(v).Sub(d)
			}
			ok = moveToBounds()
		}
	} else {
		switch i.op {
		case ineqLE:
			delta = delta.Add(p.num(int64(p.ctx.Rand(10))))
			step := delta.Add(p.num(int64(p.ctx.Rand(3))))
			newValue = p.value(v).Sub(p.divide(v, step, coeff))
			ok = moveToBounds()
		case ineqLT:
			delta = delta.Add(p.num(1)).Add(p.num(int64(p.ctx.Rand(10))))
			step := delta.Add(p.num(int64(p.ctx.Rand(3))))
			newValue = p.value(v).Sub(p.divide(v, step, coeff))
			ok = moveToBounds()
		case ineqEQ:
			// exact solve or give up
			if delta.Sign() < 0 {
				newValue = p.value(v).Add(p.divide(v, delta.Abs(), coeff))
			} else {
				newValue = p.value(v).Sub(p.divide(v, delta, coeff))
			}
			ok = argsv.Add(coeff.Mul(newValue.Sub(p.value(v)))).Cmp(bound) == 0 && moveToBounds()
		}
	}
	return newValue, ok
}

// update is the single mutation entry point. It validates bounds, refreshes
// every cached atom value, requests Boolean flips for atoms whose truth
// changed, and propagates through the definitions reading v.
func (p *Plugin[T]) update(v int, newValue T) bool {
	vi := &p.vars[v]
	oldValue := vi.value
	if oldValue.Cmp(newValue) == 0 {
		return true
	}
	if !p.inBounds(v, newValue) {
		lo := vi.lo
		hi := vi.hi
		if lo != nil && hi != nil && lo.value.Cmp(hi.value) > 0 {
			// contradictory bounds, no value can be admitted
			return false
		}
		if p.isInt(v) && lo != nil && !lo.strict && newValue.Cmp(lo.value) < 0 {
			if lo.value.Cmp(oldValue) != 0 {
				return p.update(v, lo.value)
			}
			if p.inBounds(v, oldValue.Add(p.num(1))) {
				return p.update(v, oldValue.Add(p.num(1)))
			}
			return false
		}
		if p.isInt(v) && hi != nil && !hi.strict && newValue.Cmp(hi.value) > 0 {
			if hi.value.Cmp(oldValue) != 0 {
				return p.update(v, hi.value)
			}
			if p.inBounds(v, oldValue.Sub(p.num(1))) {
				return p.update(v, oldValue.Sub(p.num(1)))
			}
			return false
		}
		log.Debugf("out of bounds move v%d := %s", v, newValue)
		return false
	}
	p.stats.updates++
	for _, br := range vi.boolVars {
		i := p.atom(br.bv)
		oldSign := p.sign(br.bv)
		i.argsValue = i.argsValue.Add(br.coeff.Mul(newValue.Sub(oldValue)))
		if !p.dtt(oldSign, i).IsZero() {
			p.stats.boolFlips++
			p.ctx.Flip(br.bv)
		}
	}
	vi.value = newValue
	p.ctx.NewValue(vi.expr)
	for _, idx := range vi.muls {
		md := &p.muls[idx]
		prod := md.coeff
		for _, w := range md.monomial {
			prod = prod.Mul(p.value(w))
		}
		if p.value(md.v).Cmp(prod) != 0 {
			p.update(md.v, prod)
		}
	}
	for _, idx := range vi.adds {
		ad := &p.adds[idx]
		sum := ad.coeff
		for _, a := range ad.args {
			sum = sum.Add(a.coeff.Mul(p.value(a.v)))
		}
		if p.value(ad.v).Cmp(sum) != 0 {
			p.update(ad.v, sum)
		}
	}
	return true
}

// PropagateLiteral repairs the arithmetic atom of a literal that just
// became true while its atom evaluates the other way.
func (p *Plugin[T]) PropagateLiteral(lit sat.Lit) {
	if !p.ctx.IsTrue(lit) {
		return
	}
	i := p.atom(lit.Var())
	if i == nil {
		return
	}
	if i.isTrue() != lit.Sign() {
		return
	}
	p.repair(lit, i)
}

// RepairLiteral aligns the Boolean assignment of lit with its atom.
func (p *Plugin[T]) RepairLiteral(lit sat.Lit) {
	bv := lit.Var()
	i := p.atom(bv)
	if i != nil && i.isTrue() != p.ctx.IsTrue(sat.MkLit(bv, false)) {
		p.ctx.Flip(bv)
	}
}

// Propagate has nothing beyond literal propagation.
func (p *Plugin[T]) Propagate() bool {
	return false
}

func (p *Plugin[T]) repair(lit sat.Lit, i *ineq[T]) {
	p.dttReward(lit)

	v := i.varToFlip
	if v == nullIdx {
		log.Debug("no var to flip")
		return
	}
	if p.repairEq(lit, i) {
		return
	}
	newValue, ok := p.cm(i, v)
	if !ok {
		log.Debugf("no critical move for v%d", v)
		if !p.dtt(!p.ctx.IsTrue(lit), i).IsZero() {
			p.stats.boolFlips++
			p.ctx.Flip(lit.Var())
		}
		return
	}
	log.Debugf("repair %s: %s var: v%d := %s -> %s", lit, i, v, p.value(v), newValue)
	p.update(v, newValue)
	p.invariantIneq(i)
	if !p.dtt(!p.ctx.IsTrue(lit), i).IsZero() {
		p.stats.boolFlips++
		p.ctx.Flip(lit.Var())
	}
}

// repairEq handles positive equalities: a Bezout pair solve with a small
// prior probability, then a critical move, then the pair solve again. The
// second attempt runs only when the critical move failed.
func (p *Plugin[T]) repairEq(lit sat.Lit, i *ineq[T]) bool {
	if lit.Sign() || i.op != ineqEQ {
		return false
	}
	v := i.varToFlip
	if p.ctx.Rand(10) == 0 && p.solveEqPairs(i) {
		log.Debugf("solved eq by pairs: %s", i)
	} else if newValue, ok := p.cm(i, v); ok && p.update(v, newValue) {
		// solved by a critical move
	} else if p.solveEqPairs(i) {
		log.Debugf("solved eq by pairs: %s", i)
	} else {
		return false
	}
	if !p.dtt(!p.ctx.IsTrue(lit), i).IsZero() {
		p.stats.boolFlips++
		p.ctx.Flip(lit.Var())
	}
	return true
}

// defValue evaluates the definition of a variable from its inputs.
func (p *Plugin[T]) defValue(vi *varInfo[T]) T {
	switch vi.op {
	case opAdd:
		ad := &p.adds[vi.defIdx]
		sum := ad.coeff
		for _, a := range ad.args {
			sum = sum.Add(a.coeff.Mul(p.value(a.v)))
		}
		return sum
	case opMul:
		md := &p.muls[vi.defIdx]
		prod := md.coeff
		for _, w := range md.monomial {
			prod = prod.Mul(p.value(w))
		}
		return prod
	case opMod:
		od := &p.ops[vi.defIdx]
		v1, v2 := p.value(od.arg1), p.value(od.arg2)
		if v2.IsZero() {
			return p.num(0)
		}
		return v1.Mod(v2)
	case opRem:
		od := &p.ops[vi.defIdx]
		v1, v2 := p.value(od.arg1), p.value(od.arg2)
		if v2.IsZero() {
			return p.num(0)
		}
		return rem(v1, v2)
	case opIDiv:
		od := &p.ops[vi.defIdx]
		v1, v2 := p.value(od.arg1), p.value(od.arg2)
		if v2.IsZero() {
			return p.num(0)
		}
		return v1.Div(v2)
	case opDiv:
		od := &p.ops[vi.defIdx]
		v1, v2 := p.value(od.arg1), p.value(od.arg2)
		if v2.IsZero() {
			return p.num(0)
		}
		return v1.Quo(v2)
	case opPower:
		od := &p.ops[vi.defIdx]
		return power(p.value(od.arg1), p.value(od.arg2))
	case opAbs:
		od := &p.ops[vi.defIdx]
		return p.value(od.arg1).Abs()
	case opToInt:
		od := &p.ops[vi.defIdx]
		return floor(p.value(od.arg1))
	case opToReal:
		od := &p.ops[vi.defIdx]
		return p.value(od.arg1)
	default:
		return vi.value
	}
}

// RepairUp re-evaluates the definition of e from its inputs and updates
// the output. Idempotent while the inputs are unchanged.
func (p *Plugin[T]) RepairUp(e *ast.Term) {
	v, ok := p.expr2var[e]
	if !ok {
		return
	}
	vi := &p.vars[v]
	if vi.defIdx == nullIdx {
		return
	}
	p.update(v, p.defValue(vi))
}

// RepairDown adjusts the inputs of the definition of e so they agree with
// its cached output value.
func (p *Plugin[T]) RepairDown(e *ast.Term) bool {
	v, ok := p.expr2var[e]
	if !ok {
		return false
	}
	vi := &p.vars[v]
	if vi.defIdx == nullIdx {
		return false
	}
	if p.defValue(vi).Cmp(vi.value) == 0 {
		return true
	}
	switch vi.op {
	case opAdd:
		return p.repairAdd(&p.adds[vi.defIdx])
	case opMul:
		return p.repairMul(&p.muls[vi.defIdx])
	case opMod:
		return p.repairMod(&p.ops[vi.defIdx])
	case opRem:
		return p.repairRem(&p.ops[vi.defIdx])
	case opPower:
		return p.repairPower(&p.ops[vi.defIdx])
	case opIDiv:
		return p.repairIDiv(&p.ops[vi.defIdx])
	case opDiv:
		return p.repairDiv(&p.ops[vi.defIdx])
	case opAbs:
		return p.repairAbs(&p.ops[vi.defIdx])
	case opToInt:
		return p.repairToInt(&p.ops[vi.defIdx])
	case opToReal:
		return p.repairToReal(&p.ops[vi.defIdx])
	}
	return true
}

func (p *Plugin[T]) repairAdd(ad *addDef[T]) bool {
	v := ad.v
	sum := ad.coeff
	val := p.value(v)
	for _, a := range ad.args {
		sum = sum.Add(a.coeff.Mul(p.value(a.v)))
	}
	if val.Cmp(sum) == 0 {
		return true
	}
	if p.ctx.Rand(20) == 0 {
		return p.update(v, sum)
	}
	a := ad.args[p.ctx.Rand(len(ad.args))]
	delta := val.Sub(sum)
	var step T
	switch {
	case p.vars[a.v].sort == sortReal:
		step = delta.Quo(a.coeff)
	case p.ctx.Rand(2) == 0:
		step = delta.Div(a.coeff)
	default:
		step = delta.Add(a.coeff).Sub(p.num(1)).Div(a.coeff)
	}
	return p.update(a.v, p.value(a.v).Add(step))
}

func (p *Plugin[T]) repairMod(od *opDef) bool {
	val := p.value(od.v)
	v1 := p.value(od.arg1)
	v2 := p.value(od.arg2)
	// repair the first argument when the result is a feasible remainder
	if val.Sign() >= 0 && val.Cmp(v2) < 0 {
		v3 := v1.Mod(v2)
		if v3.Cmp(val) == 0 {
			return true
		}
		// v1 := v1 + val - v3, shifted by v2 either way now and then
		v1 = v1.Add(val.Sub(v3))
		switch p.ctx.Rand(6) {
		case 0:
			v1 = v1.Add(v2)
		case 1:
			v1 = v1.Sub(v2)
		}
		return p.update(od.arg1, v1)
	}
	if v2.IsZero() {
		return p.update(od.v, p.num(0))
	}
	return p.update(od.v, v1.Mod(v2))
}

func (p *Plugin[T]) repairRem(od *opDef) bool {
	v1 := p.value(od.arg1)
	v2 := p.value(od.arg2)
	if v2.IsZero() {
		return p.update(od.v, p.num(0))
	}
	log.Debug("todo repair rem")
	// bail
	return p.update(od.v, rem(v1, v2))
}

func (p *Plugin[T]) repairAbs(od *opDef) bool {
	val := p.value(od.v)
	v1 := p.value(od.arg1)
	if val.Sign() < 0 {
		return p.update(od.v, v1.Abs())
	}
	if p.ctx.Rand(2) == 0 {
		return p.update(od.arg1, val)
	}
	return p.update(od.arg1, val.Neg())
}

func (p *Plugin[T]) repairToInt(od *opDef) bool {
	val := p.value(od.v)
	v1 := p.value(od.arg1)
	if val.Sub(p.num(1)).Cmp(v1) < 0 && v1.Cmp(val) <= 0 {
		return true
	}
	return p.update(od.arg1, val)
}

func (p *Plugin[T]) repairToReal(od *opDef) bool {
	if p.ctx.Rand(20) == 0 {
		return p.update(od.arg1, p.value(od.v))
	}
	return p.update(od.v, p.value(od.arg1))
}

func (p *Plugin[T]) repairPower(od *opDef) bool {
	v1 := p.value(od.arg1)
	v2 := p.value(od.arg2)
	if v1.IsZero() && v2.IsZero() {
		return p.update(od.v, p.num(0))
	}
	// inverse repair of power is unsupported
	log.Debug("todo repair ^")
	return false
}

func (p *Plugin[T]) repairIDiv(od *opDef) bool {
	v1 := p.value(od.arg1)
	v2 := p.value(od.arg2)
	log.Debug("todo repair div")
	// bail
	if v2.IsZero() {
		return p.update(od.v, p.num(0))
	}
	return p.update(od.v, v1.Div(v2))
}

func (p *Plugin[T]) repairDiv(od *opDef) bool {
	v1 := p.value(od.arg1)
	v2 := p.value(od.arg2)
	log.Debug("todo repair /")
	// bail
	if v2.IsZero() {
		return p.update(od.v, p.num(0))
	}
	return p.update(od.v, v1.Quo(v2))
}
