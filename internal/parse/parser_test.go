package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProblem(t *testing.T) {
	text := `
# a small mixed problem
int x y
real r

2*x + 3*y = 7
x + y <= 0 | x > 2
! x = y | x >= 5
x mod 5 = 2
x*x = 16
abs(x - y) <= 3
r / 2 < r
to_real(x) <= r
`
	p, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "r"}, p.Names)
	require.Len(t, p.Clauses, 8)

	assert.Len(t, p.Clauses[0], 1)
	assert.Equal(t, "2*x + 3*y = 7", p.Clauses[0][0].Atom.String())

	require.Len(t, p.Clauses[1], 2)
	assert.Equal(t, "x + y <= 0", p.Clauses[1][0].Atom.String())
	assert.Equal(t, "x > 2", p.Clauses[1][1].Atom.String())

	require.Len(t, p.Clauses[2], 2)
	assert.True(t, p.Clauses[2][0].Neg)
	assert.False(t, p.Clauses[2][1].Neg)

	assert.Equal(t, "(x mod 5) = 2", p.Clauses[3][0].Atom.String())
	assert.Equal(t, "x*x = 16", p.Clauses[4][0].Atom.String())
	assert.Equal(t, "abs(x - y) <= 3", p.Clauses[5][0].Atom.String())
}

func TestParseSharedVars(t *testing.T) {
	text := "int x\nx >= 0\nx <= 9\n"
	p, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	// both atoms reference the same variable node
	assert.Same(t, p.Clauses[0][0].Atom.Arg(0), p.Clauses[1][0].Atom.Arg(0))
}

func TestParseErrors(t *testing.T) {
	var testCases = []struct {
		name string
		text string
	}{
		{"undeclared", "x >= 0\n"},
		{"redeclared", "int x\nint x\n"},
		{"no comparison", "int x\nx + 1\n"},
		{"bad char", "int x\nx ?= 1\n"},
		{"trailing", "int x\nx = 1 y\n"},
		{"unclosed paren", "int x\n(x + 1 = 2\n"},
		{"bad number", "int x\nx = 1.2.3\n"},
	}
	for _, tc := range testCases {
		_, err := Parse(strings.NewReader(tc.text))
		assert.Error(t, err, tc.name)
	}
}

func TestParseNegativeNumbers(t *testing.T) {
	p, err := Parse(strings.NewReader("int x\nx >= -3\n-x <= 3\n"))
	require.NoError(t, err)
	assert.Equal(t, "x >= (- 3)", p.Clauses[0][0].Atom.String())
	assert.Equal(t, "(- x) <= 3", p.Clauses[1][0].Atom.String())
}
