package arith

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosls/internal/ast"
	"gosls/internal/num"
	"gosls/internal/parse"
	"gosls/internal/sat"
	"gosls/internal/search"
)

// buildProblem wires a parsed problem into a search controller with a
// rational-mode engine and runs the registration/initialization phase.
func buildProblem(t *testing.T, seed int64, text string) (*search.Solver, *Plugin[num.Rat], *parse.Problem) {
	t.Helper()
	problem, err := parse.Parse(strings.NewReader(text))
	require.NoError(t, err)
	cfg := search.DefaultConfig()
	cfg.Seed = seed
	s := search.NewSolver(cfg)
	for _, clause := range problem.Clauses {
		lits := make([]sat.Lit, 0, len(clause))
		for _, l := range clause {
			lits = append(lits, sat.MkLit(s.BoolVar(l.Atom), l.Neg))
		}
		s.AddClause(lits...)
	}
	p := New[num.Rat](s)
	s.Register(p)
	s.Init()
	return s, p, problem
}

func (p *Plugin[T]) varOf(t *testing.T, problem *parse.Problem, name string) int {
	t.Helper()
	v, ok := p.expr2var[problem.Vars[name]]
	require.True(t, ok, "no engine variable for %s", name)
	return v
}

func TestDttTable(t *testing.T) {
	p := New[num.Rat](nil)
	n := func(i int64) num.Rat { return num.NewRat(i, 1) }
	le := &ineq[num.Rat]{linearTerm: linearTerm[num.Rat]{coeff: n(-10)}, op: ineqLE}
	lt := &ineq[num.Rat]{linearTerm: linearTerm[num.Rat]{coeff: n(-10)}, op: ineqLT}
	eq := &ineq[num.Rat]{linearTerm: linearTerm[num.Rat]{coeff: n(-10)}, op: ineqEQ}

	var testCases = []struct {
		name string
		i    *ineq[num.Rat]
		sign bool
		args int64
		want int64
	}{
		{"le sat", le, false, 5, 0},
		{"le unsat", le, false, 12, 2},
		{"le negated sat", le, true, 12, 0},
		{"le negated unsat", le, true, 5, 6},
		{"lt sat", lt, false, 5, 0},
		{"lt boundary", lt, false, 10, 1},
		{"lt negated sat", lt, true, 12, 0},
		{"lt negated unsat", lt, true, 5, 5},
		{"eq sat", eq, false, 10, 0},
		{"eq unsat", eq, false, 9, 1},
		{"eq negated sat", eq, true, 9, 0},
		{"eq negated unsat", eq, true, 10, 1},
	}
	for _, tc := range testCases {
		got := p.dttArgs(tc.sign, n(tc.args), tc.i)
		assert.Equal(t, tc.want, got.Int64(), tc.name)
	}
}

func TestDttVarMissing(t *testing.T) {
	_, p, problem := buildProblem(t, 1, "int x y\nx <= 10\ny >= 0\n")
	i := p.atom(0)
	yv := p.varOf(t, problem, "y")
	assert.Equal(t, int64(1), p.dttVar(false, i, yv, num.NewRat(5, 1)).Int64())
}

func TestUpdateNoop(t *testing.T) {
	_, p, problem := buildProblem(t, 1, "int x\nx <= 10\n")
	xv := p.varOf(t, problem, "x")
	before := p.stats.updates
	assert.True(t, p.update(xv, p.value(xv)))
	assert.Equal(t, before, p.stats.updates)
}

func TestUpdateClampsToBounds(t *testing.T) {
	_, p, problem := buildProblem(t, 1, "int x\nx >= 0\nx <= 5\n")
	xv := p.varOf(t, problem, "x")
	require.True(t, p.update(xv, num.NewRat(9, 1)))
	assert.Equal(t, int64(5), p.value(xv).Int64())
	require.True(t, p.update(xv, num.NewRat(-3, 1)))
	assert.Equal(t, int64(0), p.value(xv).Int64())
}

func TestFixedVarNeverMoves(t *testing.T) {
	_, p, problem := buildProblem(t, 1, "int x\nx >= 2\nx <= 2\nx <= 10\n")
	xv := p.varOf(t, problem, "x")
	require.True(t, p.update(xv, num.NewRat(2, 1)))
	require.True(t, p.isFixed(xv))

	assert.False(t, p.update(xv, num.NewRat(4, 1)))
	assert.Equal(t, int64(2), p.value(xv).Int64())

	i := p.atom(2) // x <= 10
	require.NotNil(t, i)
	_, ok := p.cm(i, xv)
	assert.False(t, ok)
}

func TestStrictIntBoundsTighten(t *testing.T) {
	_, p, problem := buildProblem(t, 1, "int x\nx < 5\nx > 0\n")
	xv := p.varOf(t, problem, "x")
	vi := &p.vars[xv]
	require.NotNil(t, vi.hi)
	require.NotNil(t, vi.lo)
	assert.False(t, vi.hi.strict)
	assert.False(t, vi.lo.strict)
	assert.Equal(t, int64(4), vi.hi.value.Int64())
	assert.Equal(t, int64(1), vi.lo.value.Int64())
}

func TestStrictRealBounds(t *testing.T) {
	_, p, problem := buildProblem(t, 1, "real a\na < 3\n")
	av := p.varOf(t, problem, "a")
	vi := &p.vars[av]
	require.NotNil(t, vi.hi)
	assert.True(t, vi.hi.strict)
	assert.Equal(t, int64(3), vi.hi.value.Int64())
	assert.False(t, p.inBounds(av, num.NewRat(3, 1)))
	assert.True(t, p.inBounds(av, num.NewRat(29, 10)))
}

func TestCmFlipsSatisfiedLe(t *testing.T) {
	// the controller asks for x <= 10 to become false
	// not a unit clause, so x <= 10 does not become a bound on x
	_, p, problem := buildProblem(t, 7, "int x\nx <= 10 | x >= 20\n")
	xv := p.varOf(t, problem, "x")
	i := p.atom(0)
	require.NotNil(t, i)
	require.True(t, i.isTrue())
	newValue, ok := p.cm(i, xv)
	require.True(t, ok)
	assert.True(t, newValue.Cmp(num.NewRat(10, 1)) > 0)
}

func TestRepairEqWithinOneCall(t *testing.T) {
	// x = y with both in [0, 5], starting from x = 2, y = 4
	s, p, problem := buildProblem(t, 3,
		"int x y\nx = y\nx >= 0\nx <= 5\ny >= 0\ny <= 5\n")
	xv := p.varOf(t, problem, "x")
	yv := p.varOf(t, problem, "y")
	require.True(t, p.update(xv, num.NewRat(2, 1)))
	require.True(t, p.update(yv, num.NewRat(4, 1)))

	i := p.atom(0)
	require.NotNil(t, i)
	require.False(t, i.isTrue())
	lit := sat.MkLit(0, false)
	if !s.IsTrue(lit) {
		s.Flip(0)
	}
	p.dttReward(lit)
	require.True(t, p.repairEq(lit, i))
	assert.Equal(t, 0, p.value(xv).Cmp(p.value(yv)))
	assert.True(t, i.isTrue())
}

func TestSolveEqPairs(t *testing.T) {
	// 2x + 3y = 7 cannot be solved by a single critical move
	_, p, problem := buildProblem(t, 5, "int x y\n2*x + 3*y = 7\n")
	xv := p.varOf(t, problem, "x")
	yv := p.varOf(t, problem, "y")

	i := p.atom(0)
	require.NotNil(t, i)
	_, okX := p.cm(i, xv)
	_, okY := p.cm(i, yv)
	assert.False(t, okX)
	assert.False(t, okY)

	i.varToFlip = xv
	require.True(t, p.solveEqPairs(i))
	x := p.value(xv)
	y := p.value(yv)
	lhs := x.Mul(num.NewRat(2, 1)).Add(y.Mul(num.NewRat(3, 1)))
	assert.Equal(t, int64(7), lhs.Int64())
	assert.True(t, i.isTrue())
}

func TestPropagateLiteralRepairs(t *testing.T) {
	s, p, problem := buildProblem(t, 11, "int x\nx >= 3\n")
	xv := p.varOf(t, problem, "x")
	lit := sat.MkLit(0, false)
	if !s.IsTrue(lit) {
		s.Flip(0)
	}
	p.PropagateLiteral(lit)
	assert.True(t, p.value(xv).Cmp(num.NewRat(3, 1)) >= 0)
	assert.True(t, p.atom(0).isTrue())
}

func TestRepairSquare(t *testing.T) {
	_, p, problem := buildProblem(t, 2, "int x\nx*x = 16\n")
	xv := p.varOf(t, problem, "x")
	require.Len(t, p.muls, 1)
	md := &p.muls[0]
	require.True(t, p.update(md.v, num.NewRat(16, 1)))
	require.True(t, p.repairSquare(md))
	assert.Equal(t, int64(4), p.value(xv).Abs().Int64())
	assert.Equal(t, int64(16), p.value(md.v).Int64())
}

func TestRepairModAdjustsArgument(t *testing.T) {
	_, p, problem := buildProblem(t, 4, "int x\nx mod 5 = 2\n")
	xv := p.varOf(t, problem, "x")
	require.Len(t, p.ops, 1)
	od := &p.ops[0]
	require.True(t, p.update(od.v, num.NewRat(2, 1)))
	require.True(t, p.repairMod(od))
	got := p.value(xv).Mod(num.NewRat(5, 1))
	assert.Equal(t, int64(2), got.Int64())
}

func TestOpsByZero(t *testing.T) {
	_, p, problem := buildProblem(t, 1,
		"int x y\nx mod y = 0\nx div y = 0\nx rem y = 0\n")
	require.Len(t, p.ops, 3)
	for _, od := range p.ops {
		assert.True(t, p.value(od.v).IsZero())
	}
	modTerm := problem.Clauses[0][0].Atom.Arg(0)
	val, ok := p.GetValue(modTerm).NumVal()
	require.True(t, ok)
	assert.Equal(t, int64(0), val.Num().Int64())
}

func TestRepairUpIdempotent(t *testing.T) {
	_, p, problem := buildProblem(t, 8, "int x y\nx*y = 6\n")
	mulTerm := problem.Clauses[0][0].Atom.Arg(0)
	xv := p.varOf(t, problem, "x")
	require.True(t, p.update(xv, num.NewRat(2, 1)))
	p.RepairUp(mulTerm)
	before := p.stats.updates
	p.RepairUp(mulTerm)
	assert.Equal(t, before, p.stats.updates)
}

func TestFactorRoundTrip(t *testing.T) {
	p := New[num.Int](nil)
	for _, n := range []int64{1, 2, 8, 97, 360, 1024, 9973, 30030} {
		fs := p.factor(num.NewInt(n))
		prod := num.NewInt(1)
		for _, f := range fs {
			prod = prod.Mul(f)
		}
		assert.Equal(t, n, prod.Int64(), "factor(%d) = %v", n, fs)
	}
}

func TestRewardSelectsPivot(t *testing.T) {
	s, p, problem := buildProblem(t, 9, "int x y\nx + y <= 0\n")
	xv := p.varOf(t, problem, "x")
	require.True(t, p.update(xv, num.NewRat(5, 1)))
	i := p.atom(0)
	require.False(t, i.isTrue())
	require.Equal(t, nullIdx, i.varToFlip)
	lit := sat.MkLit(0, false)
	if !s.IsTrue(lit) {
		s.Flip(0)
	}
	p.Reward(lit)
	assert.NotEqual(t, nullIdx, i.varToFlip)
}

func TestSetGetValue(t *testing.T) {
	_, p, problem := buildProblem(t, 1, "int x\nx <= 100\n")
	x := problem.Vars["x"]
	p.SetValue(x, ast.NewIntNum(42))
	val, ok := p.GetValue(x).NumVal()
	require.True(t, ok)
	assert.Equal(t, int64(42), val.Num().Int64())
}

func TestMkModel(t *testing.T) {
	_, p, problem := buildProblem(t, 1, "int x y\nx + y <= 0\n")
	xv := p.varOf(t, problem, "x")
	require.True(t, p.update(xv, num.NewRat(-2, 1)))
	m := ast.NewModel()
	p.MkModel(m)
	require.NotNil(t, m.Value(problem.Vars["x"]))
	require.NotNil(t, m.Value(problem.Vars["y"]))
	v, ok := m.Value(problem.Vars["x"]).NumVal()
	require.True(t, ok)
	assert.Equal(t, int64(-2), v.Num().Int64())
}

func TestArgsValueInvariant(t *testing.T) {
	_, p, problem := buildProblem(t, 6, "int x y\n2*x + 3*y <= 12\nx >= 0\ny >= 0\n")
	xv := p.varOf(t, problem, "x")
	yv := p.varOf(t, problem, "y")
	for _, move := range []struct {
		v int
		n int64
	}{{xv, 3}, {yv, 2}, {xv, 0}, {yv, 7}} {
		p.update(move.v, num.NewRat(move.n, 1))
		for bv := 0; bv < 3; bv++ {
			if i := p.atom(sat.Var(bv)); i != nil {
				p.invariantIneq(i)
			}
		}
	}
}
