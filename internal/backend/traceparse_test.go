package backend

import (
	"testing"

	"github.com/edgefuzz/edgefuzz/internal/coverage"
	"github.com/stretchr/testify/assert"
)

func TestEdgeHash(t *testing.T) {
	t.Run("reproduces the documented three-record trace", func(t *testing.T) {
		m := make([]byte, coverage.MapSize)
		var prev uint32

		prev = edgeHash(m, 0x1000, prev)
		assert.Equal(t, uint32(0x80), prev)

		prev = edgeHash(m, 0x2000, prev)
		prev = edgeHash(m, 0x1000, prev)

		nonzero := 0
		for _, v := range m {
			if v != 0 {
				nonzero++
			}
		}
		assert.Equal(t, 3, nonzero)
	})

	t.Run("saturates at 255", func(t *testing.T) {
		m := make([]byte, coverage.MapSize)
		var prev uint32
		for i := 0; i < 260; i++ {
			prev = edgeHash(m, 0x4000, 0)
			_ = prev
		}
		found := false
		for _, v := range m {
			if v == 255 {
				found = true
			}
		}
		assert.True(t, found)
	})
}

func TestSuperblockLine(t *testing.T) {
	t.Run("matches SB lines case-insensitively", func(t *testing.T) {
		assert.True(t, superblockLine.MatchString("SB 1000"))
		assert.True(t, superblockLine.MatchString("sb deadbeef"))
	})

	t.Run("ignores unrelated lines", func(t *testing.T) {
		assert.False(t, superblockLine.MatchString("some other tool output"))
		assert.False(t, superblockLine.MatchString("SBX 1000"))
	})
}
