package mutate

import (
	"testing"

	"github.com/edgefuzz/edgefuzz/internal/testcase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNull(t *testing.T) {
	seed := testcase.New("seed", []byte("hello"))

	t.Run("yields one unmodified clone then exhausts", func(t *testing.T) {
		n := NewNull(seed)
		_, pct := n.Stats()
		assert.Equal(t, float64(0), pct)

		tc, ok := n.GenTest()
		require.True(t, ok)
		assert.Equal(t, seed.Data, tc.Data)

		_, ok = n.GenTest()
		assert.False(t, ok)

		name, pct := n.Stats()
		assert.Equal(t, "null", name)
		assert.Equal(t, float64(100), pct)

		// Once exhausted, stays exhausted.
		_, ok = n.GenTest()
		assert.False(t, ok)
	})
}
