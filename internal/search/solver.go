// Package search drives the stochastic local search. It owns the Boolean
// side: the clause database, literal truth values, use lists and clause
// weights. Theory plugins register atoms and repair them when the search
// flips literals.
package search

import (
	"fmt"
	"io"
	"math"
	"math/rand"

	log "github.com/sirupsen/logrus"

	"gosls/internal/ast"
	"gosls/internal/sat"
)

// Config bounds and seeds a run.
type Config struct {
	Seed         int64
	MaxSteps     int
	MaxNoImprove int
	WalkProb     float64
}

// DefaultConfig mirrors the usual local search budgets.
func DefaultConfig() Config {
	return Config{
		Seed:         0,
		MaxSteps:     200000,
		MaxNoImprove: 500,
		WalkProb:     0.05,
	}
}

type Status int

const (
	Unknown Status = iota
	Sat
)

func (s Status) String() string {
	if s == Sat {
		return "SAT"
	}
	return "UNKNOWN"
}

// Result of a run. Model is the plugins' assignment when the run stopped and
// only meaningful for Sat.
type Result struct {
	Status Status
	Model  *ast.Model
	Steps  int
}

// Solver implements sat.Controller.
type Solver struct {
	cfg      Config
	rng      *rand.Rand
	strategy Strategy

	atoms   []*ast.Term
	atom2bv map[*ast.Term]sat.Var
	truth   []bool
	clauses []*sat.Clause
	useList [][]int
	units   []sat.Lit
	unitSet map[sat.Lit]bool
	plugins []sat.Plugin

	numFalse int
	bumps    int

	parents map[*ast.Term][]*ast.Term
	down    *termQueue
	up      *termQueue

	initialized bool
}

// termQueue is a LIFO of terms with membership dedup.
type termQueue struct {
	items []*ast.Term
	seen  map[*ast.Term]bool
}

func newTermQueue() *termQueue {
	return &termQueue{seen: make(map[*ast.Term]bool)}
}

func (q *termQueue) push(e *ast.Term) {
	if !q.seen[e] {
		q.seen[e] = true
		q.items = append(q.items, e)
	}
}

func (q *termQueue) pop() (*ast.Term, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	e := q.items[len(q.items)-1]
	q.items = q.items[:len(q.items)-1]
	delete(q.seen, e)
	return e, true
}

func NewSolver(cfg Config) *Solver {
	return &Solver{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		strategy: NewWeightedPick(),
		atom2bv:  make(map[*ast.Term]sat.Var),
		unitSet:  make(map[sat.Lit]bool),
		parents:  make(map[*ast.Term][]*ast.Term),
		down:     newTermQueue(),
		up:       newTermQueue(),
	}
}

// SetStrategy replaces the false-clause selection strategy.
func (s *Solver) SetStrategy(st Strategy) {
	s.strategy = st
}

// Register attaches a theory plugin.
func (s *Solver) Register(p sat.Plugin) {
	s.plugins = append(s.plugins, p)
}

// BoolVar returns the Boolean variable owning the atom e, creating it on
// first use. The same *ast.Term always maps to the same variable.
func (s *Solver) BoolVar(e *ast.Term) sat.Var {
	if v, ok := s.atom2bv[e]; ok {
		return v
	}
	v := sat.Var(len(s.atoms))
	s.atoms = append(s.atoms, e)
	s.truth = append(s.truth, false)
	s.useList = append(s.useList, nil, nil)
	if e != nil {
		s.atom2bv[e] = v
	}
	return v
}

// AddClause appends a clause over existing literals.
func (s *Solver) AddClause(lits ...sat.Lit) {
	idx := len(s.clauses)
	c := &sat.Clause{Lits: lits, Weight: 1}
	s.clauses = append(s.clauses, c)
	for _, l := range lits {
		s.useList[l] = append(s.useList[l], idx)
	}
	if len(lits) == 1 {
		s.units = append(s.units, lits[0])
		s.unitSet[lits[0]] = true
	}
}

// Controller interface

func (s *Solver) NumBoolVars() int {
	return len(s.atoms)
}

func (s *Solver) Atom(v sat.Var) *ast.Term {
	return s.atoms[v]
}

func (s *Solver) AtomToBoolVar(e *ast.Term) sat.Var {
	if v, ok := s.atom2bv[e]; ok {
		return v
	}
	return sat.NullVar
}

func (s *Solver) IsTrue(l sat.Lit) bool {
	return s.truth[l.Var()] != l.Sign()
}

func (s *Solver) IsUnit(l sat.Lit) bool {
	return s.unitSet[l]
}

// Flip toggles v and keeps the clause counters in step.
func (s *Solver) Flip(v sat.Var) {
	s.truth[v] = !s.truth[v]
	inc := sat.MkLit(v, !s.truth[v])
	dec := inc.Neg()
	for _, idx := range s.useList[inc] {
		c := s.clauses[idx]
		if c.NumTrues == 0 {
			s.numFalse--
		}
		c.NumTrues++
	}
	for _, idx := range s.useList[dec] {
		c := s.clauses[idx]
		c.NumTrues--
		if c.NumTrues == 0 {
			s.numFalse++
		}
	}
}

func (s *Solver) UnitLiterals() []sat.Lit {
	return s.units
}

func (s *Solver) NumClauses() int {
	return len(s.clauses)
}

func (s *Solver) Clause(idx int) *sat.Clause {
	return s.clauses[idx]
}

func (s *Solver) UseList(l sat.Lit) []int {
	return s.useList[l]
}

func (s *Solver) Weight(idx int) int {
	return s.clauses[idx].Weight
}

func (s *Solver) Rand(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.Intn(n)
}

func (s *Solver) RandFloat() float64 {
	return s.rng.Float64()
}

// NewValue schedules a changed term for a top-down repair and its parents
// for re-evaluation.
func (s *Solver) NewValue(e *ast.Term) {
	log.Tracef("new value %s", e)
	s.down.push(e)
	for _, parent := range s.parents[e] {
		s.up.push(parent)
	}
}

// repairDefs drains the repair queues: first adjust inputs of terms whose
// output changed, then re-evaluate parents of changed terms. Each pass may
// schedule more work; the drain is bounded to keep a pathological cascade
// from spinning.
func (s *Solver) repairDefs() {
	const maxIters = 10000
	for iter := 0; iter < maxIters; iter++ {
		if e, ok := s.down.pop(); ok {
			for _, p := range s.plugins {
				if !p.RepairDown(e) {
					p.RepairUp(e)
				}
			}
			continue
		}
		if e, ok := s.up.pop(); ok {
			for _, p := range s.plugins {
				p.RepairUp(e)
			}
			continue
		}
		return
	}
	log.Warn("repair queue drain budget exhausted")
}

func (s *Solver) addParents(e *ast.Term) {
	for _, arg := range e.Args() {
		known := false
		for _, p := range s.parents[arg] {
			if p == e {
				known = true
				break
			}
		}
		if !known {
			s.parents[arg] = append(s.parents[arg], e)
		}
		s.addParents(arg)
	}
}

// Init registers the atoms with the plugins and sets up the initial
// assignment. Solve calls it on demand; tests may call it directly.
func (s *Solver) Init() {
	if s.initialized {
		return
	}
	s.initialized = true
	for _, e := range s.atoms {
		if e == nil {
			continue
		}
		s.addParents(e)
		for _, p := range s.plugins {
			p.RegisterTerm(e)
		}
	}
	for v := range s.truth {
		s.truth[v] = s.rng.Intn(2) == 0
	}
	s.recount()
	for _, l := range s.units {
		if !s.IsTrue(l) {
			s.Flip(l.Var())
		}
	}
	for _, p := range s.plugins {
		p.Initialize()
	}
	for _, p := range s.plugins {
		p.OnRestart()
	}
}

func (s *Solver) recount() {
	s.numFalse = 0
	for _, c := range s.clauses {
		c.NumTrues = 0
		for _, l := range c.Lits {
			if s.IsTrue(l) {
				c.NumTrues++
			}
		}
		if c.NumTrues == 0 {
			s.numFalse++
		}
	}
}

// Solve runs the local search until the assignment is satisfying or the
// step budget runs out.
func (s *Solver) Solve() Result {
	s.Init()
	best := math.MaxInt
	noImprove := 0
	for step := 1; step <= s.cfg.MaxSteps; step++ {
		if s.numFalse == 0 {
			if s.pluginsSat() {
				log.Infof("sat after %d steps", step)
				return Result{Status: Sat, Model: s.model(), Steps: step}
			}
			break
		}
		idx := s.strategy.PickFalseClause(s)
		if idx < 0 {
			break
		}
		lit := s.pickLiteral(s.clauses[idx])
		s.makeTrue(lit)
		s.repairDefs()
		if s.numFalse < best {
			best = s.numFalse
			noImprove = 0
			s.saveBest()
		} else {
			noImprove++
		}
		if noImprove >= s.cfg.MaxNoImprove {
			s.onStuck()
			noImprove = 0
		}
	}
	if s.numFalse == 0 && s.pluginsSat() {
		return Result{Status: Sat, Model: s.model(), Steps: s.cfg.MaxSteps}
	}
	log.Infof("gave up with %d false clauses", s.numFalse)
	return Result{Status: Unknown, Model: s.model(), Steps: s.cfg.MaxSteps}
}

func (s *Solver) pluginsSat() bool {
	for _, p := range s.plugins {
		if !p.IsSat() {
			return false
		}
	}
	return true
}

// pickLiteral chooses the literal of a false clause to make true: a random
// walk with small probability, otherwise the best plugin reward. Reward
// also selects the pivot variable the repair will move.
func (s *Solver) pickLiteral(c *sat.Clause) sat.Lit {
	if len(c.Lits) == 1 || s.rng.Float64() < s.cfg.WalkProb {
		return c.Lits[s.rng.Intn(len(c.Lits))]
	}
	bestLit := c.Lits[0]
	bestReward := math.Inf(-1)
	n := 0
	for _, l := range c.Lits {
		r := 0.0
		for _, p := range s.plugins {
			r += p.Reward(l)
		}
		if r > bestReward {
			bestLit, bestReward, n = l, r, 1
		} else if r == bestReward {
			n++
			if s.rng.Intn(n) == 0 {
				bestLit = l
			}
		}
	}
	return bestLit
}

func (s *Solver) makeTrue(lit sat.Lit) {
	if !s.IsTrue(lit) {
		s.Flip(lit.Var())
	}
	for _, p := range s.plugins {
		p.PropagateLiteral(lit)
	}
	// a repair may have given up entirely; fall back to realigning the
	// Boolean assignment with the atom
	for _, p := range s.plugins {
		p.RepairLiteral(lit)
	}
}

func (s *Solver) saveBest() {
	for _, p := range s.plugins {
		p.SaveBest()
	}
}

// onStuck bumps the weight of false clauses; every few bumps the weights
// are smoothed back and the plugins switch their reward mode.
func (s *Solver) onStuck() {
	for _, c := range s.clauses {
		if !c.IsTrue() {
			c.Weight++
		}
	}
	s.bumps++
	if s.bumps%16 == 0 {
		for _, c := range s.clauses {
			c.Weight = c.Weight/2 + 1
		}
		for _, p := range s.plugins {
			p.OnRescale()
		}
	}
	for _, p := range s.plugins {
		p.OnRestart()
	}
}

func (s *Solver) model() *ast.Model {
	m := ast.NewModel()
	for _, p := range s.plugins {
		p.MkModel(m)
	}
	return m
}

// Display dumps the clause database and the plugin state.
func (s *Solver) Display(w io.Writer) {
	for idx, c := range s.clauses {
		st := "F"
		if c.IsTrue() {
			st = "T"
		}
		fmt.Fprintf(w, "c%d [w=%d %s]: %s\n", idx, c.Weight, st, c)
	}
	for _, p := range s.plugins {
		p.Display(w)
	}
}
