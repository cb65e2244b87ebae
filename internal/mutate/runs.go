package mutate

import (
	"fmt"

	"github.com/edgefuzz/edgefuzz/internal/testcase"
)

// Runs grows a run of 0xFF bytes of increasing length at each position,
// probing length-handling paths. At a position it emits runs of length
// 1, 2, … until the run would cross the end of the buffer, then advances
// to the next position and resets the run length to 1. Exhausts when the
// position reaches the end of the buffer. Always starts at byte 0
// regardless of the seed's resume markers.
type Runs struct {
	seed    *testcase.TestCase
	length  int
	pos     int
	runLen  int
	emitted int
	total   int
	done    bool
}

// NewRuns constructs a Runs strategy over seed.
func NewRuns(seed *testcase.TestCase) *Runs {
	length := len(seed.Data)
	r := &Runs{seed: seed, length: length, runLen: 1, total: length * (length + 1) / 2}
	if length == 0 {
		r.done = true
	}
	return r
}

func (r *Runs) Name() string { return "runs" }

func (r *Runs) GenTest() (*testcase.TestCase, bool) {
	if r.done {
		return nil, false
	}

	if r.pos+r.runLen > r.length {
		r.pos++
		r.runLen = 1
		if r.pos >= r.length {
			r.done = true
			return nil, false
		}
	}

	clone := r.seed.Clone()
	for i := 0; i < r.runLen; i++ {
		clone.Data[r.pos+i] = 0xFF
	}
	clone.Mutations = fmt.Sprintf("runs@%d+%d", r.pos, r.runLen)

	r.runLen++
	r.emitted++

	return clone, true
}

func (r *Runs) Stats() (string, float64) {
	if r.done {
		return r.Name(), 100
	}
	return r.Name(), 100 * float64(r.emitted) / float64(r.total)
}
