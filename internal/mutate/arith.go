package mutate

import (
	"fmt"

	"github.com/edgefuzz/edgefuzz/internal/testcase"
)

// arithOffsets are the five byte deltas Arith applies at each position, in
// order.
var arithOffsets = [5]int{-2, -1, 0, 1, 2}

// Arith emits, for each byte position, five clones with that byte offset
// by -2, -1, 0, +1, +2 (mod 256), before advancing to the next position.
// Always starts at byte 0 regardless of the seed's resume markers.
type Arith struct {
	seed      *testcase.TestCase
	length    int
	bytePos   int
	offsetIdx int
	done      bool
}

// NewArith constructs an Arith strategy over seed.
func NewArith(seed *testcase.TestCase) *Arith {
	a := &Arith{seed: seed, length: len(seed.Data)}
	if a.length == 0 {
		a.done = true
	}
	return a
}

func (a *Arith) Name() string { return "arith" }

func (a *Arith) GenTest() (*testcase.TestCase, bool) {
	if a.done {
		return nil, false
	}

	offset := arithOffsets[a.offsetIdx]
	clone := a.seed.Clone()
	clone.Data[a.bytePos] = byte(int(clone.Data[a.bytePos]) + offset)
	clone.Mutations = fmt.Sprintf("arith@%d%+d", a.bytePos, offset)

	a.offsetIdx++
	if a.offsetIdx == len(arithOffsets) {
		a.offsetIdx = 0
		a.bytePos++
	}

	if a.bytePos >= a.length {
		a.done = true
	}

	return clone, true
}

func (a *Arith) Stats() (string, float64) {
	if a.done {
		return a.Name(), 100
	}
	total := a.length * len(arithOffsets)
	done := a.bytePos*len(arithOffsets) + a.offsetIdx
	return a.Name(), 100 * float64(done) / float64(total)
}
