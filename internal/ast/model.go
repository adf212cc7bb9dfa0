package ast

import (
	"fmt"
	"sort"
	"strings"
)

// Model maps variables to numeral terms.
type Model struct {
	values map[*Term]*Term
}

func NewModel() *Model {
	return &Model{values: make(map[*Term]*Term)}
}

// Set records the value of a variable. Later calls win.
func (m *Model) Set(v, value *Term) {
	m.values[v] = value
}

// Value returns the recorded value of v, or nil.
func (m *Model) Value(v *Term) *Term {
	return m.values[v]
}

func (m *Model) Len() int {
	return len(m.values)
}

func (m *Model) String() string {
	lines := make([]string, 0, len(m.values))
	for v, val := range m.values {
		lines = append(lines, fmt.Sprintf("%s := %s", v, val))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
