package sat

import (
	"io"

	"gosls/internal/ast"
)

// Controller is the search loop as seen by a theory plugin: literal truth
// values, clause and use-list access, clause weights, the flip request, and
// the engine-wide random source.
type Controller interface {
	NumBoolVars() int
	// Atom returns the expression attached to a Boolean variable, or nil.
	Atom(v Var) *ast.Term
	// AtomToBoolVar returns the Boolean variable owning e, or NullVar.
	AtomToBoolVar(e *ast.Term) Var
	IsTrue(l Lit) bool
	// IsUnit reports whether l occurs as a unit clause.
	IsUnit(l Lit) bool
	// Flip toggles the truth value of v and updates clause counters.
	Flip(v Var)
	UnitLiterals() []Lit
	NumClauses() int
	Clause(idx int) *Clause
	// UseList returns the indices of clauses containing l.
	UseList(l Lit) []int
	Weight(idx int) int
	// Rand returns a uniform value in [0, n).
	Rand(n int) int
	RandFloat() float64
	// NewValue notifies the controller that the value of e changed.
	NewValue(e *ast.Term)
}

// Plugin is a theory repair engine driven by the controller. All calls are
// synchronous and run to completion.
type Plugin interface {
	RegisterTerm(e *ast.Term)
	Initialize()
	PropagateLiteral(l Lit)
	Propagate() bool
	RepairUp(e *ast.Term)
	RepairDown(e *ast.Term) bool
	RepairLiteral(l Lit)
	// Reward scores flipping l and selects the pivot variable to move.
	Reward(l Lit) float64
	IsSat() bool
	OnRescale()
	OnRestart()
	SaveBest()
	SetValue(e, v *ast.Term)
	GetValue(e *ast.Term) *ast.Term
	MkModel(m *ast.Model)
	Display(w io.Writer)
}
