// Package arith is a stochastic local search repair engine for linear and
// nonlinear integer/real arithmetic. It keeps a candidate assignment to
// numeric variables consistent with a set of Boolean-indexed atoms of the
// form sum(c_i * v_i) + k <op> 0 and proposes value moves that flip chosen
// atoms, calling back into the controlling search for Boolean flips.
package arith

import (
	log "github.com/sirupsen/logrus"

	"gosls/internal/ast"
	"gosls/internal/num"
	"gosls/internal/sat"
)

const nullIdx = -1

type ineqKind int

const (
	ineqLE ineqKind = iota
	ineqLT
	ineqEQ
)

type varSort int

const (
	sortInt varSort = iota
	sortReal
)

type opKind int

const (
	opNone opKind = iota
	opAdd
	opMul
	opMod
	opRem
	opIDiv
	opDiv
	opPower
	opAbs
	opToInt
	opToReal
)

func (k opKind) String() string {
	switch k {
	case opNone:
		return "none"
	case opAdd:
		return "+"
	case opMul:
		return "*"
	case opMod:
		return "mod"
	case opRem:
		return "rem"
	case opIDiv:
		return "div"
	case opDiv:
		return "/"
	case opPower:
		return "^"
	case opAbs:
		return "abs"
	case opToInt:
		return "to_int"
	case opToReal:
		return "to_real"
	default:
		panic("invalid op kind")
	}
}

type linearArg[T num.Val[T]] struct {
	coeff T
	v     int
}

// bound is one side of a variable range. Strict integer bounds are
// tightened to non-strict ones at insertion.
type bound[T num.Val[T]] struct {
	strict bool
	value  T
}

type varInfo[T num.Val[T]] struct {
	expr      *ast.Term
	value     T
	bestValue T
	sort      varSort
	op        opKind
	defIdx    int
	// atoms mentioning this variable, with the coefficient it has there
	boolVars []boolRef[T]
	muls     []int
	adds     []int
	lo, hi   *bound[T]
}

type boolRef[T num.Val[T]] struct {
	coeff T
	bv    sat.Var
}

type mulDef[T num.Val[T]] struct {
	v        int
	coeff    T
	monomial []int
}

type addDef[T num.Val[T]] struct {
	v     int
	coeff T
	args  []linearArg[T]
}

type opDef struct {
	v    int
	op   opKind
	arg1 int
	arg2 int
}

type stats struct {
	updates   int
	boolFlips int
}

// Plugin is the arithmetic local search engine. It is generic over the
// numeric mode: num.Rat for exact rationals, num.Int for checked 64-bit.
type Plugin[T num.Val[T]] struct {
	ctx sat.Controller

	vars  []varInfo[T]
	bools []*ineq[T]
	muls  []mulDef[T]
	adds  []addDef[T]
	ops   []opDef

	expr2var map[*ast.Term]int

	probs      []float64
	factors    []T
	dscoreMode bool
	stats      stats
}

// New creates an engine attached to the given controller.
func New[T num.Val[T]](ctx sat.Controller) *Plugin[T] {
	return &Plugin[T]{
		ctx:      ctx,
		expr2var: make(map[*ast.Term]int),
	}
}

func (p *Plugin[T]) num(i int64) T {
	var zero T
	return zero.FromInt64(i)
}

func (p *Plugin[T]) value(v int) T {
	return p.vars[v].value
}

func (p *Plugin[T]) isInt(v int) bool {
	return p.vars[v].sort == sortInt
}

func (p *Plugin[T]) atom(bv sat.Var) *ineq[T] {
	if int(bv) >= len(p.bools) {
		return nil
	}
	return p.bools[bv]
}

// sign reports the asserted polarity of bv: true when the controller holds
// the atom false.
func (p *Plugin[T]) sign(bv sat.Var) bool {
	return !p.ctx.IsTrue(sat.MkLit(bv, false))
}

func (p *Plugin[T]) mkVar(e *ast.Term) int {
	if v, ok := p.expr2var[e]; ok {
		return v
	}
	v := len(p.vars)
	p.expr2var[e] = v
	sort := sortReal
	if e.IsInt() {
		sort = sortInt
	}
	var zero T
	p.vars = append(p.vars, varInfo[T]{
		expr:   e,
		value:  zero.FromInt64(0),
		sort:   sort,
		op:     opNone,
		defIdx: nullIdx,
	})
	return v
}

// mkTerm maps an expression to a variable, creating an add definition when
// the expression is a non-trivial linear term.
func (p *Plugin[T]) mkTerm(e *ast.Term) int {
	if v, ok := p.expr2var[e]; ok {
		return v
	}
	var t linearTerm[T]
	t.coeff = p.num(0)
	p.addArgs(&t, e, p.num(1))
	if t.coeff.IsZero() && len(t.args) == 1 && t.args[0].coeff.Cmp(p.num(1)) == 0 {
		return t.args[0].v
	}
	if len(t.args) == 0 {
		// a constant operand, e.g. the modulus of x mod 5
		v := p.mkVar(e)
		p.vars[v].value = t.coeff
		return v
	}
	v := p.mkVar(e)
	idx := len(p.adds)
	sum := t.coeff
	p.adds = append(p.adds, addDef[T]{v: v, coeff: t.coeff, args: t.args})
	for _, a := range t.args {
		p.vars[a.v].adds = append(p.vars[a.v].adds, idx)
		sum = sum.Add(a.coeff.Mul(p.value(a.v)))
	}
	p.vars[v].defIdx = idx
	p.vars[v].op = opAdd
	p.vars[v].value = sum
	return v
}

func (p *Plugin[T]) mkOp(k opKind, e, x, y *ast.Term) int {
	v := p.mkVar(e)
	w1 := p.mkTerm(x)
	w2 := w1
	if y != x {
		w2 = p.mkTerm(y)
	}
	idx := len(p.ops)
	v1 := p.value(w1)
	v2 := p.value(w2)
	var val T
	switch k {
	case opMod:
		if v2.IsZero() {
			val = p.num(0)
		} else {
			val = v1.Mod(v2)
		}
	case opRem:
		if v2.IsZero() {
			val = p.num(0)
		} else {
			val = rem(v1, v2)
		}
	case opIDiv:
		if v2.IsZero() {
			val = p.num(0)
		} else {
			val = v1.Div(v2)
		}
	case opDiv:
		if v2.IsZero() {
			val = p.num(0)
		} else {
			val = v1.Quo(v2)
		}
	case opPower:
		val = power(v1, v2)
	case opAbs:
		val = v1.Abs()
	case opToInt:
		val = floor(v1)
	case opToReal:
		val = v1
	default:
		panic("mkOp: not an op kind")
	}
	log.Debugf("mk-op %s := %s", e, val)
	p.ops = append(p.ops, opDef{v: v, op: k, arg1: w1, arg2: w2})
	p.vars[v].defIdx = idx
	p.vars[v].op = k
	p.vars[v].value = val
	return v
}

type linearTerm[T num.Val[T]] struct {
	args  []linearArg[T]
	coeff T
}

func (t *linearTerm[T]) addArg(c T, v int) {
	if !c.IsZero() {
		t.args = append(t.args, linearArg[T]{coeff: c, v: v})
	}
}

// isNum recognizes extended numerals and converts them to the numeric mode.
// Conversion failure is an overflow in the bounded mode.
func (p *Plugin[T]) isNum(e *ast.Term) (T, bool) {
	r, ok := e.NumVal()
	if !ok {
		var zero T
		return zero, false
	}
	var zero T
	n, ok := zero.FromRat(r)
	if !ok {
		panic(num.ErrOverflow)
	}
	return n, true
}

func (p *Plugin[T]) addArgs(t *linearTerm[T], e *ast.Term, coeff T) {
	if v, ok := p.expr2var[e]; ok {
		t.addArg(coeff, v)
		return
	}
	if i, ok := p.isNum(e); ok {
		t.coeff = t.coeff.Add(coeff.Mul(i))
		return
	}
	switch {
	case e.IsAdd():
		for _, arg := range e.Args() {
			p.addArgs(t, arg, coeff)
		}
	case e.IsSub():
		p.addArgs(t, e.Arg(0), coeff)
		p.addArgs(t, e.Arg(1), coeff.Neg())
	case e.IsNeg():
		p.addArgs(t, e.Arg(0), coeff.Neg())
	case e.IsMul():
		var monomial []int
		c := p.num(1)
		for _, arg := range e.Args() {
			if i, ok := p.isNum(arg); ok {
				c = c.Mul(i)
			} else {
				monomial = append(monomial, p.mkTerm(arg))
			}
		}
		switch len(monomial) {
		case 0:
			t.coeff = t.coeff.Add(c.Mul(coeff))
		case 1:
			t.addArg(c.Mul(coeff), monomial[0])
		default:
			v := p.mkVar(e)
			idx := len(p.muls)
			p.muls = append(p.muls, mulDef[T]{v: v, coeff: c, monomial: monomial})
			prod := c
			for _, w := range monomial {
				p.vars[w].muls = append(p.vars[w].muls, idx)
				prod = prod.Mul(p.value(w))
			}
			p.vars[v].defIdx = idx
			p.vars[v].op = opMul
			p.vars[v].value = prod
			t.addArg(coeff, v)
		}
	case e.IsMod():
		t.addArg(coeff, p.mkOp(opMod, e, e.Arg(0), e.Arg(1)))
	case e.IsIDiv():
		t.addArg(coeff, p.mkOp(opIDiv, e, e.Arg(0), e.Arg(1)))
	case e.IsDiv():
		t.addArg(coeff, p.mkOp(opDiv, e, e.Arg(0), e.Arg(1)))
	case e.IsRem():
		t.addArg(coeff, p.mkOp(opRem, e, e.Arg(0), e.Arg(1)))
	case e.IsPower():
		t.addArg(coeff, p.mkOp(opPower, e, e.Arg(0), e.Arg(1)))
	case e.IsAbs():
		t.addArg(coeff, p.mkOp(opAbs, e, e.Arg(0), e.Arg(0)))
	case e.IsToInt():
		t.addArg(coeff, p.mkOp(opToInt, e, e.Arg(0), e.Arg(0)))
	case e.IsToReal():
		t.addArg(coeff, p.mkOp(opToReal, e, e.Arg(0), e.Arg(0)))
	case e.IsArithExpr():
		panic("addArgs: unsupported arithmetic expression " + e.String())
	default:
		t.addArg(coeff, p.mkVar(e))
	}
}

func (p *Plugin[T]) newIneq(op ineqKind, coeff T) *ineq[T] {
	return &ineq[T]{
		linearTerm: linearTerm[T]{coeff: coeff},
		op:         op,
		varToFlip:  nullIdx,
	}
}

func (p *Plugin[T]) initIneq(bv sat.Var, i *ineq[T]) {
	i.argsValue = p.num(0)
	for _, a := range i.args {
		p.vars[a.v].boolVars = append(p.vars[a.v].boolVars, boolRef[T]{coeff: a.coeff, bv: bv})
		i.argsValue = i.argsValue.Add(a.coeff.Mul(p.value(a.v)))
	}
	p.setAtom(bv, i)
}

func (p *Plugin[T]) setAtom(bv sat.Var, i *ineq[T]) {
	for int(bv) >= len(p.bools) {
		p.bools = append(p.bools, nil)
	}
	p.bools[bv] = i
}

func (p *Plugin[T]) initBoolVar(bv sat.Var) {
	if p.atom(bv) != nil {
		return
	}
	e := p.ctx.Atom(bv)
	if e == nil {
		return
	}
	var x, y *ast.Term
	switch {
	case e.IsLe():
		x, y = e.Arg(0), e.Arg(1)
	case e.IsGe():
		x, y = e.Arg(1), e.Arg(0)
	case e.IsLt():
		x, y = e.Arg(0), e.Arg(1)
	case e.IsGt():
		x, y = e.Arg(1), e.Arg(0)
	case e.IsEq():
		x, y = e.Arg(0), e.Arg(1)
	default:
		return
	}
	if !x.IsIntReal() {
		return
	}
	// normalize to x - y <op> 0
	switch {
	case e.IsLe() || e.IsGe():
		i := p.newIneq(ineqLE, p.num(0))
		p.addArgs(&i.linearTerm, x, p.num(1))
		p.addArgs(&i.linearTerm, y, p.num(-1))
		p.initIneq(bv, i)
	case (e.IsLt() || e.IsGt()) && x.IsInt():
		// x < y over Int is x - y + 1 <= 0
		i := p.newIneq(ineqLE, p.num(1))
		p.addArgs(&i.linearTerm, x, p.num(1))
		p.addArgs(&i.linearTerm, y, p.num(-1))
		p.initIneq(bv, i)
	case e.IsLt() || e.IsGt():
		i := p.newIneq(ineqLT, p.num(0))
		p.addArgs(&i.linearTerm, x, p.num(1))
		p.addArgs(&i.linearTerm, y, p.num(-1))
		p.initIneq(bv, i)
	case e.IsEq():
		i := p.newIneq(ineqEQ, p.num(0))
		p.addArgs(&i.linearTerm, x, p.num(1))
		p.addArgs(&i.linearTerm, y, p.num(-1))
		p.initIneq(bv, i)
	}
}

// RegisterTerm introduces the numeric subterms of e to the engine and
// attaches an atom when e is owned by a Boolean variable.
func (p *Plugin[T]) RegisterTerm(e *ast.Term) {
	if v := p.ctx.AtomToBoolVar(e); v != sat.NullVar {
		p.initBoolVar(v)
	}
	if !e.IsArithExpr() && !e.IsEq() {
		for _, arg := range e.Args() {
			if arg.IsIntReal() {
				p.mkTerm(arg)
			}
		}
	}
}

// Initialize digests the unit literals into variable bounds.
func (p *Plugin[T]) Initialize() {
	for _, lit := range p.ctx.UnitLiterals() {
		p.initLiteral(lit)
	}
}

func (p *Plugin[T]) initLiteral(lit sat.Lit) {
	p.initBoolVar(lit.Var())
	i := p.atom(lit.Var())
	if i == nil || len(i.args) != 1 {
		return
	}
	c, v := i.args[0].coeff, i.args[0].v
	one := p.num(1)
	isOne := c.Cmp(one) == 0
	isMinusOne := c.Cmp(one.Neg()) == 0
	switch i.op {
	case ineqLE:
		if lit.Sign() {
			switch {
			case isMinusOne: // -(-x + k <= 0) implies x <= k
				p.addLe(v, i.coeff)
			case isOne: // -(x + k <= 0) implies x >= -k
				p.addGe(v, i.coeff.Neg())
			default:
				log.Debugf("initialize %s %s", lit, i)
			}
		} else {
			switch {
			case isMinusOne:
				p.addGe(v, i.coeff)
			case isOne:
				p.addLe(v, i.coeff.Neg())
			default:
				log.Debugf("initialize %s %s", lit, i)
			}
		}
	case ineqEQ:
		if lit.Sign() {
			log.Debugf("initialize %s %s", lit, i)
		} else {
			switch {
			case isMinusOne:
				p.addGe(v, i.coeff)
				p.addLe(v, i.coeff)
			case isOne:
				p.addGe(v, i.coeff.Neg())
				p.addLe(v, i.coeff.Neg())
			default:
				log.Debugf("initialize %s %s", lit, i)
			}
		}
	case ineqLT:
		if lit.Sign() {
			switch {
			case isMinusOne:
				p.addLe(v, i.coeff)
			case isOne:
				p.addGe(v, i.coeff.Neg())
			default:
				log.Debugf("initialize %s %s", lit, i)
			}
		} else {
			switch {
			case isMinusOne:
				p.addGt(v, i.coeff)
			case isOne:
				p.addLt(v, i.coeff.Neg())
			default:
				log.Debugf("initialize %s %s", lit, i)
			}
		}
	}
}

func (p *Plugin[T]) addLe(v int, n T) {
	if hi := p.vars[v].hi; hi != nil && hi.value.Cmp(n) <= 0 {
		return
	}
	p.vars[v].hi = &bound[T]{value: n}
}

func (p *Plugin[T]) addGe(v int, n T) {
	if lo := p.vars[v].lo; lo != nil && lo.value.Cmp(n) >= 0 {
		return
	}
	p.vars[v].lo = &bound[T]{value: n}
}

func (p *Plugin[T]) addLt(v int, n T) {
	if p.isInt(v) {
		p.addLe(v, n.Sub(p.num(1)))
	} else {
		p.vars[v].hi = &bound[T]{strict: true, value: n}
	}
}

func (p *Plugin[T]) addGt(v int, n T) {
	if p.isInt(v) {
		p.addGe(v, n.Add(p.num(1)))
	} else {
		p.vars[v].lo = &bound[T]{strict: true, value: n}
	}
}

func (p *Plugin[T]) inBounds(v int, value T) bool {
	lo := p.vars[v].lo
	hi := p.vars[v].hi
	if lo != nil && value.Cmp(lo.value) < 0 {
		return false
	}
	if lo != nil && lo.strict && value.Cmp(lo.value) <= 0 {
		return false
	}
	if hi != nil && value.Cmp(hi.value) > 0 {
		return false
	}
	if hi != nil && hi.strict && value.Cmp(hi.value) >= 0 {
		return false
	}
	return true
}

func (p *Plugin[T]) isFixed(v int) bool {
	lo := p.vars[v].lo
	hi := p.vars[v].hi
	return lo != nil && hi != nil &&
		lo.value.Cmp(hi.value) == 0 && lo.value.Cmp(p.value(v)) == 0
}

// SaveBest snapshots the current assignment as the best seen.
func (p *Plugin[T]) SaveBest() {
	for i := range p.vars {
		p.vars[i].bestValue = p.vars[i].value
	}
	p.checkIneqs()
}

// SetValue forces the value of e to the numeral val; a val that is not a
// numeral is ignored. A numeral the bounded mode cannot represent panics
// with num.ErrOverflow.
func (p *Plugin[T]) SetValue(e, val *ast.Term) {
	if !e.IsIntReal() {
		return
	}
	w, ok := p.expr2var[e]
	if !ok {
		w = p.mkTerm(e)
	}
	n, ok := p.isNum(val)
	if !ok {
		return
	}
	if n.Cmp(p.value(w)) == 0 {
		return
	}
	p.update(w, n)
}

// GetValue returns the current value of e as a numeral term.
func (p *Plugin[T]) GetValue(e *ast.Term) *ast.Term {
	if n, ok := p.isNum(e); ok {
		return p.fromNum(e, n)
	}
	v := p.mkTerm(e)
	return p.fromNum(e, p.value(v))
}

func (p *Plugin[T]) fromNum(e *ast.Term, n T) *ast.Term {
	sort := ast.SortReal
	if e.IsInt() {
		sort = ast.SortInt
	}
	return ast.NewNum(n.ToRat(), sort)
}

// MkModel fills m with the values of all registered free variables.
func (p *Plugin[T]) MkModel(m *ast.Model) {
	for i := range p.vars {
		vi := &p.vars[i]
		if vi.expr.IsVar() {
			m.Set(vi.expr, p.fromNum(vi.expr, vi.value))
		}
	}
}
