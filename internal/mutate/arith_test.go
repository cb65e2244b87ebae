package mutate

import (
	"testing"

	"github.com/edgefuzz/edgefuzz/internal/testcase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArith(t *testing.T) {
	t.Run("empty seed exhausts immediately", func(t *testing.T) {
		seed := testcase.New("seed", []byte{})
		a := NewArith(seed)
		_, ok := a.GenTest()
		assert.False(t, ok)
	})

	t.Run("emits five offsets per byte position", func(t *testing.T) {
		seed := testcase.New("seed", []byte{10, 20})
		a := NewArith(seed)

		wantFirstByte := []byte{8, 9, 10, 11, 12}
		for _, want := range wantFirstByte {
			tc, ok := a.GenTest()
			require.True(t, ok)
			assert.Equal(t, want, tc.Data[0])
			assert.Equal(t, byte(20), tc.Data[1])
		}

		wantSecondByte := []byte{18, 19, 20, 21, 22}
		for _, want := range wantSecondByte {
			tc, ok := a.GenTest()
			require.True(t, ok)
			assert.Equal(t, want, tc.Data[1])
			assert.Equal(t, byte(10), tc.Data[0])
		}

		_, ok := a.GenTest()
		assert.False(t, ok)
	})

	t.Run("offsets wrap modulo 256", func(t *testing.T) {
		seed := testcase.New("seed", []byte{0, 255})
		a := NewArith(seed)
		tc, ok := a.GenTest()
		require.True(t, ok)
		assert.Equal(t, byte(254), tc.Data[0]) // 0 - 2 mod 256
	})

	t.Run("always starts at byte 0 regardless of resume markers", func(t *testing.T) {
		seed := &testcase.TestCase{Name: "seed", Data: []byte{5, 6}, StartBytePos: 1, StartBitPos: 4}
		a := NewArith(seed)
		tc, ok := a.GenTest()
		require.True(t, ok)
		assert.Equal(t, byte(3), tc.Data[0])
	})
}
