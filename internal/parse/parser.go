// Package parse reads constraint problems from a small text format:
//
//	# comments run to end of line
//	int x y
//	real r
//	2*x + 3*y = 7
//	x + y <= 0 | x > 2
//	! x = y | x >= 5
//	x*x = 16
//	x mod 5 = 2
//
// Each non-declaration line is a clause of |-separated literals; a literal
// is an optionally negated comparison between arithmetic expressions.
package parse

import (
	"bufio"
	"io"
	"math/big"
	"strings"

	"github.com/pkg/errors"

	"gosls/internal/ast"
)

// Literal is an atom with a polarity.
type Literal struct {
	Neg  bool
	Atom *ast.Term
}

// Problem is a conjunction of clauses over declared variables.
type Problem struct {
	Names   []string
	Vars    map[string]*ast.Term
	Clauses [][]Literal
}

// Parse reads a whole problem.
func Parse(r io.Reader) (*Problem, error) {
	p := &Problem{Vars: make(map[string]*ast.Term)}
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := p.parseLine(line); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineno)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read problem")
	}
	return p, nil
}

func (p *Problem) parseLine(line string) error {
	toks, err := tokenize(line)
	if err != nil {
		return err
	}
	if len(toks) == 0 {
		return nil
	}
	switch toks[0].text {
	case "int":
		return p.declare(toks[1:], ast.SortInt)
	case "real":
		return p.declare(toks[1:], ast.SortReal)
	}
	lp := &lineParser{problem: p, toks: toks}
	clause, err := lp.clause()
	if err != nil {
		return err
	}
	p.Clauses = append(p.Clauses, clause)
	return nil
}

func (p *Problem) declare(toks []token, sort ast.Sort) error {
	if len(toks) == 0 {
		return errors.New("expected variable names after sort keyword")
	}
	for _, t := range toks {
		if t.kind != tokIdent {
			return errors.Errorf("bad variable name %q", t.text)
		}
		if _, ok := p.Vars[t.text]; ok {
			return errors.Errorf("variable %q already declared", t.text)
		}
		p.Vars[t.text] = ast.NewVar(t.text, sort)
		p.Names = append(p.Names, t.text)
	}
	return nil
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokOp
)

type token struct {
	kind tokenKind
	text string
}

func isIdentRune(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func tokenize(line string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c >= '0' && c <= '9':
			j := i
			for j < len(line) && (line[j] >= '0' && line[j] <= '9' || line[j] == '.') {
				j++
			}
			toks = append(toks, token{kind: tokNumber, text: line[i:j]})
			i = j
		case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			j := i
			for j < len(line) && isIdentRune(line[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: line[i:j]})
			i = j
		case c == '<' || c == '>':
			if i+1 < len(line) && line[i+1] == '=' {
				toks = append(toks, token{kind: tokOp, text: line[i : i+2]})
				i += 2
			} else {
				toks = append(toks, token{kind: tokOp, text: string(c)})
				i++
			}
		case strings.IndexByte("+-*/^()|!=", c) >= 0:
			toks = append(toks, token{kind: tokOp, text: string(c)})
			i++
		default:
			return nil, errors.Errorf("unexpected character %q", c)
		}
	}
	return toks, nil
}

type lineParser struct {
	problem *Problem
	toks    []token
	pos     int
}

func (lp *lineParser) peek() (token, bool) {
	if lp.pos < len(lp.toks) {
		return lp.toks[lp.pos], true
	}
	return token{}, false
}

func (lp *lineParser) next() (token, bool) {
	t, ok := lp.peek()
	if ok {
		lp.pos++
	}
	return t, ok
}

func (lp *lineParser) acceptOp(text string) bool {
	if t, ok := lp.peek(); ok && t.kind == tokOp && t.text == text {
		lp.pos++
		return true
	}
	return false
}

func (lp *lineParser) clause() ([]Literal, error) {
	var lits []Literal
	for {
		lit, err := lp.literal()
		if err != nil {
			return nil, err
		}
		lits = append(lits, lit)
		if !lp.acceptOp("|") {
			break
		}
	}
	if t, ok := lp.peek(); ok {
		return nil, errors.Errorf("trailing input at %q", t.text)
	}
	return lits, nil
}

func (lp *lineParser) literal() (Literal, error) {
	neg := lp.acceptOp("!")
	atom, err := lp.comparison()
	if err != nil {
		return Literal{}, err
	}
	return Literal{Neg: neg, Atom: atom}, nil
}

func (lp *lineParser) comparison() (*ast.Term, error) {
	lhs, err := lp.expr()
	if err != nil {
		return nil, err
	}
	op, ok := lp.next()
	if !ok || op.kind != tokOp {
		return nil, errors.New("expected comparison operator")
	}
	rhs, err := lp.expr()
	if err != nil {
		return nil, err
	}
	switch op.text {
	case "<=":
		return ast.Le(lhs, rhs), nil
	case "<":
		return ast.Lt(lhs, rhs), nil
	case ">=":
		return ast.Ge(lhs, rhs), nil
	case ">":
		return ast.Gt(lhs, rhs), nil
	case "=":
		return ast.Eq(lhs, rhs), nil
	default:
		return nil, errors.Errorf("bad comparison operator %q", op.text)
	}
}

func (lp *lineParser) expr() (*ast.Term, error) {
	t, err := lp.term()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case lp.acceptOp("+"):
			u, err := lp.term()
			if err != nil {
				return nil, err
			}
			t = ast.Add(t, u)
		case lp.acceptOp("-"):
			u, err := lp.term()
			if err != nil {
				return nil, err
			}
			t = ast.Sub(t, u)
		default:
			return t, nil
		}
	}
}

func (lp *lineParser) term() (*ast.Term, error) {
	t, err := lp.unary()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := lp.peek()
		if !ok {
			return t, nil
		}
		switch {
		case tok.kind == tokOp && tok.text == "*":
			lp.pos++
			u, err := lp.unary()
			if err != nil {
				return nil, err
			}
			t = ast.Mul(t, u)
		case tok.kind == tokOp && tok.text == "/":
			lp.pos++
			u, err := lp.unary()
			if err != nil {
				return nil, err
			}
			t = ast.Div(t, u)
		case tok.kind == tokIdent && tok.text == "mod":
			lp.pos++
			u, err := lp.unary()
			if err != nil {
				return nil, err
			}
			t = ast.Mod(t, u)
		case tok.kind == tokIdent && tok.text == "div":
			lp.pos++
			u, err := lp.unary()
			if err != nil {
				return nil, err
			}
			t = ast.IDiv(t, u)
		case tok.kind == tokIdent && tok.text == "rem":
			lp.pos++
			u, err := lp.unary()
			if err != nil {
				return nil, err
			}
			t = ast.Rem(t, u)
		default:
			return t, nil
		}
	}
}

func (lp *lineParser) unary() (*ast.Term, error) {
	if lp.acceptOp("-") {
		t, err := lp.unary()
		if err != nil {
			return nil, err
		}
		return ast.Neg(t), nil
	}
	t, err := lp.primary()
	if err != nil {
		return nil, err
	}
	if lp.acceptOp("^") {
		u, err := lp.primary()
		if err != nil {
			return nil, err
		}
		return ast.Power(t, u), nil
	}
	return t, nil
}

func (lp *lineParser) primary() (*ast.Term, error) {
	tok, ok := lp.next()
	if !ok {
		return nil, errors.New("unexpected end of line")
	}
	switch {
	case tok.kind == tokNumber:
		r, ok := new(big.Rat).SetString(tok.text)
		if !ok {
			return nil, errors.Errorf("bad number %q", tok.text)
		}
		sort := ast.SortReal
		if r.IsInt() {
			sort = ast.SortInt
		}
		return ast.NewNum(r, sort), nil
	case tok.kind == tokIdent && (tok.text == "abs" || tok.text == "to_int" || tok.text == "to_real"):
		if !lp.acceptOp("(") {
			return nil, errors.Errorf("expected ( after %q", tok.text)
		}
		arg, err := lp.expr()
		if err != nil {
			return nil, err
		}
		if !lp.acceptOp(")") {
			return nil, errors.New("expected )")
		}
		switch tok.text {
		case "abs":
			return ast.Abs(arg), nil
		case "to_int":
			return ast.ToInt(arg), nil
		default:
			return ast.ToReal(arg), nil
		}
	case tok.kind == tokIdent:
		v, ok := lp.problem.Vars[tok.text]
		if !ok {
			return nil, errors.Errorf("undeclared variable %q", tok.text)
		}
		return v, nil
	case tok.kind == tokOp && tok.text == "(":
		t, err := lp.expr()
		if err != nil {
			return nil, err
		}
		if !lp.acceptOp(")") {
			return nil, errors.New("expected )")
		}
		return t, nil
	default:
		return nil, errors.Errorf("unexpected token %q", tok.text)
	}
}
