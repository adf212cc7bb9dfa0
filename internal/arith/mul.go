package arith

import (
	log "github.com/sirupsen/logrus"

	"gosls/internal/num"
)

// repairSquare solves v = coeff * w * w over the integers by an integer
// square root guess with an occasional +/-1 perturbation.
func (p *Plugin[T]) repairSquare(md *mulDef[T]) bool {
	v := md.v
	if !p.isInt(v) || len(md.monomial) != 2 || md.monomial[0] != md.monomial[1] {
		return false
	}
	val := p.value(v).Div(md.coeff)
	w := md.monomial[0]
	if val.Sign() < 0 {
		p.update(w, p.num(int64(p.ctx.Rand(10))))
	} else {
		root := num.Sqrt(val)
		if p.ctx.Rand(3) == 0 {
			root = root.Neg()
		}
		if root.Mul(root).Cmp(val) == 0 {
			p.update(w, root)
		} else {
			p.update(w, root.Add(p.num(int64(p.ctx.Rand(3)))).Sub(p.num(1)))
		}
	}
	log.Debugf("root %s v%d := %s", val, w, p.value(w))
	return true
}

// repairMul1 solves for a single factor: if the product of the remaining
// factors divides the target, the chosen factor takes the quotient.
func (p *Plugin[T]) repairMul1(md *mulDef[T]) bool {
	if !p.isInt(md.v) {
		return false
	}
	val := p.value(md.v).Div(md.coeff)
	if val.IsZero() {
		return false
	}
	sz := len(md.monomial)
	start := p.ctx.Rand(sz)
	for k := 0; k < sz; k++ {
		w := md.monomial[(start+k)%sz]
		product := p.num(1)
		for _, u := range md.monomial {
			if u != w {
				product = product.Mul(p.value(u))
			}
		}
		if product.IsZero() || !num.Divides(product, val) {
			continue
		}
		if p.update(w, val.Div(product)) {
			return true
		}
	}
	return false
}

// repairMul dispatches the multiplicative repair strategies for
// v = coeff * prod(monomial).
func (p *Plugin[T]) repairMul(md *mulDef[T]) bool {
	prod := md.coeff
	val := p.value(md.v)
	for _, w := range md.monomial {
		prod = prod.Mul(p.value(w))
	}
	if prod.Cmp(val) == 0 {
		return true
	}
	log.Debugf("repair mul %s := %s (product: %s)", p.vars[md.v].expr, val, prod)
	sz := len(md.monomial)
	switch {
	case p.ctx.Rand(20) == 0:
		return p.update(md.v, prod)
	case val.IsZero():
		w := md.monomial[p.ctx.Rand(sz)]
		return p.update(w, p.num(0))
	case p.repairSquare(md):
		return true
	case p.ctx.Rand(4) != 0 && p.repairMul1(md):
		return true
	case p.isInt(md.v):
		n := val.Div(md.coeff)
		if !num.Divides(md.coeff, val) && p.ctx.Rand(2) == 0 {
			n = val.Add(md.coeff).Sub(p.num(1)).Div(md.coeff)
		}
		fs := p.factor(n.Abs())
		coeffs := make([]T, sz)
		for i := range coeffs {
			coeffs[i] = p.num(1)
		}
		// the product sign of the fresh coefficient vector; primes are
		// distributed afterwards, so this is always +/-1 and the
		// correction below only fires for n == 0
		sign := p.num(1)
		for _, c := range coeffs {
			sign = sign.Mul(c)
		}
		for i, w := range md.monomial {
			vi := &p.vars[w]
			switch {
			case vi.lo != nil && vi.lo.value.Sign() >= 0:
				coeffs[i] = p.num(1)
			case vi.hi != nil && vi.hi.value.Sign() < 0:
				coeffs[i] = p.num(-1)
			case p.ctx.Rand(2) == 0:
				coeffs[i] = p.num(1)
			default:
				coeffs[i] = p.num(-1)
			}
		}
		for _, f := range fs {
			j := p.ctx.Rand(sz)
			coeffs[j] = coeffs[j].Mul(f)
		}
		if sign.IsZero() != n.IsZero() {
			j := p.ctx.Rand(sz)
			coeffs[j] = coeffs[j].Neg()
		}
		log.Debugf("value %s coeff: %s factors: %v", val, md.coeff, fs)
		for i, w := range md.monomial {
			if !p.update(w, coeffs[i]) {
				log.Debugf("failed to update v%d to %s", w, coeffs[i])
				return false
			}
		}
		return true
	default:
		// nonlinear real products have no inverse repair
		log.Debug("todo repair real mul")
		return false
	}
}

// factor splits n into small primes: trial division by 2, 3, 5, then a
// wheel of eight increments for at most three more divisor candidates.
// The tail is kept as a single factor.
func (p *Plugin[T]) factor(n T) []T {
	p.factors = p.factors[:0]
	if n.IsZero() {
		return p.factors
	}
	for _, d := range []int64{2, 3, 5} {
		dd := p.num(d)
		for n.Mod(dd).IsZero() {
			p.factors = append(p.factors, dd)
			n = n.Div(dd)
		}
	}
	increments := [8]int64{4, 2, 4, 2, 4, 6, 2, 6}
	i := 0
	d := p.num(7)
	for j := 0; d.Mul(d).Cmp(n) <= 0 && j < 3; j++ {
		for n.Mod(d).IsZero() {
			p.factors = append(p.factors, d)
			n = n.Div(d)
		}
		d = d.Add(p.num(increments[i]))
		i++
		if i == 8 {
			i = 0
		}
	}
	if n.Cmp(p.num(1)) > 0 {
		p.factors = append(p.factors, n)
	}
	return p.factors
}
