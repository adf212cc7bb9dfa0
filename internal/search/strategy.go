package search

// Strategy selects the next false clause to work on. Implementations must
// return -1 when no clause is false.
type Strategy interface {
	PickFalseClause(s *Solver) int
}

type randomPick struct{}

// NewRandomPick selects uniformly among the false clauses.
func NewRandomPick() Strategy {
	return randomPick{}
}

func (randomPick) PickFalseClause(s *Solver) int {
	picked := -1
	n := 0
	for idx, c := range s.clauses {
		if c.IsTrue() {
			continue
		}
		n++
		if s.rng.Intn(n) == 0 {
			picked = idx
		}
	}
	return picked
}

type weightedPick struct{}

// NewWeightedPick selects a false clause with probability proportional to
// its weight.
func NewWeightedPick() Strategy {
	return weightedPick{}
}

func (weightedPick) PickFalseClause(s *Solver) int {
	total := 0
	for _, c := range s.clauses {
		if !c.IsTrue() {
			total += c.Weight
		}
	}
	if total == 0 {
		return -1
	}
	draw := s.rng.Intn(total)
	for idx, c := range s.clauses {
		if c.IsTrue() {
			continue
		}
		draw -= c.Weight
		if draw < 0 {
			return idx
		}
	}
	return -1
}
