package mutate

import "github.com/edgefuzz/edgefuzz/internal/testcase"

// Null yields exactly one unmodified clone of the seed, then exhausts.
// It seeds the baseline and guarantees the original seed input is
// executed at least once.
type Null struct {
	seed *testcase.TestCase
	done bool
}

// NewNull constructs a Null strategy over seed.
func NewNull(seed *testcase.TestCase) *Null {
	return &Null{seed: seed}
}

func (n *Null) Name() string { return "null" }

func (n *Null) GenTest() (*testcase.TestCase, bool) {
	if n.done {
		return nil, false
	}
	n.done = true
	clone := n.seed.Clone()
	clone.Mutations = "null"
	return clone, true
}

func (n *Null) Stats() (string, float64) {
	if n.done {
		return n.Name(), 100
	}
	return n.Name(), 0
}
