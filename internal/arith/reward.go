package arith

import (
	log "github.com/sirupsen/logrus"

	"gosls/internal/sat"
)

// Reward scores flipping lit and, as a side effect, selects the pivot
// variable the next repair will move. In dscore mode (entered on rescale)
// the weighted clause distance is used instead of the flip count.
func (p *Plugin[T]) Reward(lit sat.Lit) float64 {
	if p.dscoreMode {
		return p.dscoreReward(lit.Var())
	}
	return p.dttReward(lit)
}

// dttReward scores every variable of the atom by the net number of atoms a
// critical move would flip from false to true, then samples the pivot by a
// roulette wheel over per-variable probabilities.
func (p *Plugin[T]) dttReward(lit sat.Lit) float64 {
	i := p.atom(lit.Var())
	if i == nil {
		return -1
	}
	if len(i.args) == 0 {
		return -1
	}
	maxResult := -100.0
	n := 0
	if cap(p.probs) < len(i.args) {
		p.probs = make([]float64, len(i.args))
	}
	p.probs = p.probs[:len(i.args)]
	sumProb := 0.0
	for j, a := range i.args {
		x := a.v
		prob := 0.0
		var newValue T
		ok := false
		if !p.isFixed(x) {
			newValue, ok = p.cmCoeff(i, x, a.coeff)
		}
		switch {
		case p.isFixed(x):
			prob = 0
		case !ok:
			prob = 0.5
		default:
			result := 0.0
			oldValue := p.vars[x].value
			for _, br := range p.vars[x].boolVars {
				oldSign := p.sign(br.bv)
				atom := p.atom(br.bv)
				dttOld := p.dtt(oldSign, atom)
				dttNew := p.dttShift(oldSign, atom, br.coeff, oldValue, newValue)
				if dttNew.IsZero() && !dttOld.IsZero() {
					result++
				}
				if !dttNew.IsZero() && dttOld.IsZero() {
					result--
				}
			}
			n++
			if result > maxResult || maxResult == -100 ||
				(result == maxResult && p.ctx.Rand(n) == 0) {
				maxResult = result
			}
			switch {
			case result < 0:
				prob = 0.1
			case result == 0:
				prob = 0.2
			default:
				prob = result
			}
		}
		p.probs[j] = prob
		sumProb += prob
	}
	lim := sumProb * p.ctx.RandFloat()
	j := len(p.probs)
	for {
		j--
		lim -= p.probs[j]
		if lim < 0 || j == 0 {
			break
		}
	}
	i.varToFlip = i.args[j].v
	return maxResult
}

// dscoreReward picks the first variable whose critical move has a positive
// weighted distance improvement.
func (p *Plugin[T]) dscoreReward(bv sat.Var) float64 {
	p.dscoreMode = false
	i := p.atom(bv)
	if i == nil {
		return 0
	}
	for _, a := range i.args {
		if newValue, ok := p.cmCoeff(i, a.v, a.coeff); ok {
			if result := p.dscore(a.v, newValue); result > 0 {
				i.varToFlip = a.v
				return result
			}
		}
	}
	return 0
}

// OnRescale switches the next reward computation to dscore mode.
func (p *Plugin[T]) OnRescale() {
	p.dscoreMode = true
}

// OnRestart aligns every Boolean assignment with its atom.
func (p *Plugin[T]) OnRestart() {
	for v := 0; v < p.ctx.NumBoolVars(); v++ {
		p.initBoolVarAssignment(sat.Var(v))
	}
	p.checkIneqs()
}

func (p *Plugin[T]) initBoolVarAssignment(bv sat.Var) {
	i := p.atom(bv)
	if i != nil && p.ctx.IsTrue(sat.MkLit(bv, false)) != p.dtt(false, i).IsZero() {
		p.ctx.Flip(bv)
	}
}

// IsSat checks the full assignment: every clause must contain a true
// literal whose atom, if any, agrees with the literal's polarity.
func (p *Plugin[T]) IsSat() bool {
	p.invariant()
	for idx := 0; idx < p.ctx.NumClauses(); idx++ {
		c := p.ctx.Clause(idx)
		satisfied := false
		for _, lit := range c.Lits {
			if !p.ctx.IsTrue(lit) {
				continue
			}
			i := p.atom(lit.Var())
			if i == nil || i.isTrue() != lit.Sign() {
				satisfied = true
				break
			}
		}
		if !satisfied {
			log.Debugf("not sat: %s", c)
			return false
		}
	}
	return true
}
