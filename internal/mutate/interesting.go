package mutate

import (
	"fmt"

	"github.com/edgefuzz/edgefuzz/internal/testcase"
)

// interestingPattern is the fixed little-endian pattern for the maximum
// positive signed 32-bit integer, written at each scanned position.
var interestingPattern = [4]byte{0xFF, 0xFF, 0xFF, 0x7F}

// Interesting overwrites bytes i..i+4 with interestingPattern at each
// position i in [0, len-4), advancing by one byte per emission. Exhausts
// immediately when len < 4. Always starts at byte 0 regardless of the
// seed's resume markers.
type Interesting struct {
	seed    *testcase.TestCase
	length  int
	bytePos int
	done    bool
}

// NewInteresting constructs an Interesting strategy over seed.
func NewInteresting(seed *testcase.TestCase) *Interesting {
	in := &Interesting{seed: seed, length: len(seed.Data)}
	if in.length <= 4 {
		in.done = true
	}
	return in
}

func (in *Interesting) Name() string { return "interesting" }

func (in *Interesting) GenTest() (*testcase.TestCase, bool) {
	if in.done {
		return nil, false
	}

	clone := in.seed.Clone()
	copy(clone.Data[in.bytePos:in.bytePos+4], interestingPattern[:])
	clone.Mutations = fmt.Sprintf("interesting@%d", in.bytePos)

	in.bytePos++
	if in.bytePos >= in.length-4 {
		in.done = true
	}

	return clone, true
}

func (in *Interesting) Stats() (string, float64) {
	if in.done {
		return in.Name(), 100
	}
	total := in.length - 4
	return in.Name(), 100 * float64(in.bytePos) / float64(total)
}
