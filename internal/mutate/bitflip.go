package mutate

import (
	"fmt"

	"github.com/edgefuzz/edgefuzz/internal/testcase"
)

// BitFlip walks every (byte, bit) position of the seed in row-major order,
// flipping exactly one bit per emitted case. It is the only strategy that
// consults a seed's resume markers, starting from (StartBytePos,
// StartBitPos) instead of (0, 0) when they are set.
type BitFlip struct {
	seed    *testcase.TestCase
	length  int
	bytePos int
	bitPos  int
	done    bool
	total   int
}

// NewBitFlip constructs a BitFlip strategy over seed, resuming from the
// seed's StartBytePos/StartBitPos markers.
func NewBitFlip(seed *testcase.TestCase) *BitFlip {
	length := len(seed.Data)
	b := &BitFlip{
		seed:    seed,
		length:  length,
		bytePos: seed.StartBytePos,
		bitPos:  seed.StartBitPos,
		total:   length * 8,
	}
	if length == 0 || b.bytePos >= length {
		b.done = true
	}
	return b
}

func (b *BitFlip) Name() string { return "bitflip" }

func (b *BitFlip) GenTest() (*testcase.TestCase, bool) {
	if b.done {
		return nil, false
	}

	clone := b.seed.Clone()
	clone.Data[b.bytePos] ^= 1 << uint(b.bitPos)
	clone.Mutations = fmt.Sprintf("bitflip@%d.%d", b.bytePos, b.bitPos)

	b.bitPos++
	if b.bitPos == 8 {
		b.bitPos = 0
		b.bytePos++
	}

	clone.StartBytePos = b.bytePos
	clone.StartBitPos = b.bitPos

	if b.bytePos >= b.length {
		b.done = true
	}

	return clone, true
}

func (b *BitFlip) Stats() (string, float64) {
	if b.done {
		return b.Name(), 100
	}
	done := b.bytePos*8 + b.bitPos
	return b.Name(), 100 * float64(done) / float64(b.total)
}
