package arith

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"gosls/internal/sat"
)

func (p *Plugin[T]) displayVar(w io.Writer, v int) {
	vi := &p.vars[v]
	fmt.Fprintf(w, "v%d := %s ", v, vi.value)
	if vi.lo != nil || vi.hi != nil {
		if vi.lo != nil {
			br := "["
			if vi.lo.strict {
				br = "("
			}
			fmt.Fprintf(w, "%s%s", br, vi.lo.value)
		} else {
			fmt.Fprint(w, "(")
		}
		fmt.Fprint(w, " ")
		if vi.hi != nil {
			br := "]"
			if vi.hi.strict {
				br = ")"
			}
			fmt.Fprintf(w, "%s%s", vi.hi.value, br)
		} else {
			fmt.Fprint(w, ")")
		}
		fmt.Fprint(w, " ")
	}
	fmt.Fprintf(w, "%s : ", vi.expr)
	for _, br := range vi.boolVars {
		fmt.Fprintf(w, "%s@b%d ", br.coeff, br.bv)
	}
	fmt.Fprintln(w)
}

// Display dumps the atom, variable and definition tables.
func (p *Plugin[T]) Display(w io.Writer) {
	for v := 0; v < p.ctx.NumBoolVars(); v++ {
		if i := p.atom(sat.Var(v)); i != nil {
			fmt.Fprintf(w, "b%d: %s\n", v, i)
		}
	}
	for v := range p.vars {
		p.displayVar(w, v)
	}
	for _, md := range p.muls {
		fmt.Fprintf(w, "v%d := ", md.v)
		if !md.coeff.IsZero() {
			fmt.Fprintf(w, "%s ", md.coeff)
		}
		for _, u := range md.monomial {
			fmt.Fprintf(w, "v%d ", u)
		}
		fmt.Fprintln(w)
	}
	for _, ad := range p.adds {
		fmt.Fprintf(w, "v%d := ", ad.v)
		parts := make([]string, 0, len(ad.args)+1)
		for _, a := range ad.args {
			parts = append(parts, fmt.Sprintf("%s * v%d", a.coeff, a.v))
		}
		if !ad.coeff.IsZero() {
			parts = append(parts, ad.coeff.String())
		}
		fmt.Fprintln(w, strings.Join(parts, " + "))
	}
	for _, od := range p.ops {
		fmt.Fprintf(w, "v%d := v%d %s v%d\n", od.v, od.arg1, od.op, od.arg2)
	}
	fmt.Fprintf(w, "updates: %d flips: %d\n", p.stats.updates, p.stats.boolFlips)
}

// invariant checks that every cached atom value and every add and mul
// output agrees with its definition; op definitions are not checked.
// Violations are unreachable states and fatal.
func (p *Plugin[T]) invariant() {
	for v := 0; v < p.ctx.NumBoolVars(); v++ {
		if i := p.atom(sat.Var(v)); i != nil {
			p.invariantIneq(i)
		}
	}
	for _, md := range p.muls {
		prod := md.coeff
		for _, u := range md.monomial {
			prod = prod.Mul(p.value(u))
		}
		if prod.Cmp(p.value(md.v)) != 0 {
			panic(errors.Errorf("arith: mul definition v%d out of sync: %s != %s",
				md.v, p.value(md.v), prod))
		}
	}
	for _, ad := range p.adds {
		sum := ad.coeff
		for _, a := range ad.args {
			sum = sum.Add(a.coeff.Mul(p.value(a.v)))
		}
		if sum.Cmp(p.value(ad.v)) != 0 {
			panic(errors.Errorf("arith: add definition v%d out of sync: %s != %s",
				ad.v, p.value(ad.v), sum))
		}
	}
}

func (p *Plugin[T]) invariantIneq(i *ineq[T]) {
	val := p.num(0)
	for _, a := range i.args {
		val = val.Add(a.coeff.Mul(p.value(a.v)))
	}
	if val.Cmp(i.argsValue) != 0 {
		panic(errors.Errorf("arith: stale args value for %s: %s != %s", i, i.argsValue, val))
	}
}

// checkIneqs verifies the Boolean assignment agrees with every atom.
func (p *Plugin[T]) checkIneqs() {
	for v := 0; v < p.ctx.NumBoolVars(); v++ {
		bv := sat.Var(v)
		i := p.atom(bv)
		if i == nil {
			continue
		}
		d := p.dtt(p.sign(bv), i)
		lit := sat.MkLit(bv, p.sign(bv))
		if p.ctx.IsTrue(lit) != d.IsZero() {
			panic(errors.Errorf("arith: invalid assignment b%d %s", bv, i))
		}
	}
}
