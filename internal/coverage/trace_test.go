package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zeroMap() []byte {
	return make([]byte, MapSize)
}

func TestTrace_CompareTo(t *testing.T) {
	t.Run("all zeros is not interesting against itself", func(t *testing.T) {
		baseline := NewTrace(zeroMap(), false, 0, 0, 0)
		other := NewTrace(zeroMap(), false, 0, 0, 0)
		assert.False(t, other.CompareTo(baseline))
	})

	t.Run("new edge at a zero cell is interesting", func(t *testing.T) {
		baseline := NewTrace(zeroMap(), false, 0, 0, 0)
		m := zeroMap()
		m[10] = 1
		other := NewTrace(m, false, 0, 0, 0)
		assert.True(t, other.CompareTo(baseline))
	})

	t.Run("bucket increase at an existing edge is interesting", func(t *testing.T) {
		base := zeroMap()
		base[10] = 1 // bucket 0
		baseline := NewTrace(base, false, 0, 0, 0)

		m := zeroMap()
		m[10] = 2 // bucket 1
		other := NewTrace(m, false, 0, 0, 0)
		assert.True(t, other.CompareTo(baseline))
	})

	t.Run("ties are not interesting", func(t *testing.T) {
		base := zeroMap()
		base[10] = 4
		baseline := NewTrace(base, false, 0, 0, 0)

		m := zeroMap()
		m[10] = 4
		other := NewTrace(m, false, 0, 0, 0)
		assert.False(t, other.CompareTo(baseline))
	})

	t.Run("decreases are not interesting", func(t *testing.T) {
		base := zeroMap()
		base[10] = 200 // bucket 7
		baseline := NewTrace(base, false, 0, 0, 0)

		m := zeroMap()
		m[10] = 1 // bucket 0
		other := NewTrace(m, false, 0, 0, 0)
		assert.False(t, other.CompareTo(baseline))
	})

	t.Run("non-zero trace is interesting against an all-zero baseline", func(t *testing.T) {
		baseline := NewTrace(zeroMap(), false, 0, 0, 0)
		m := zeroMap()
		m[0] = 1
		other := NewTrace(m, false, 0, 0, 0)
		assert.True(t, other.CompareTo(baseline))
	})
}

func TestTrace_NumberOfPaths(t *testing.T) {
	m := zeroMap()
	m[1] = 1
	m[50] = 9
	m[MapSize-1] = 255
	trace := NewTrace(m, false, 0, 0, 0)
	assert.Equal(t, 3, trace.NumberOfPaths())
}

func TestTrace_CombineInto(t *testing.T) {
	t.Run("pointwise max", func(t *testing.T) {
		base := zeroMap()
		base[5] = 3
		baseline := NewTrace(base, false, 0, 0, 0)

		m := zeroMap()
		m[5] = 9
		m[6] = 1
		trace := NewTrace(m, false, 0, 0, 0)

		trace.CombineInto(baseline)
		assert.Equal(t, byte(9), baseline.snapshot[5])
		assert.Equal(t, byte(1), baseline.snapshot[6])
	})

	t.Run("identity when merged with itself", func(t *testing.T) {
		m := zeroMap()
		m[7] = 42
		before := append([]byte(nil), m...)
		trace := NewTrace(m, false, 0, 0, 0)
		trace.CombineInto(trace)
		assert.Equal(t, before, trace.snapshot)
	})

	t.Run("commutative", func(t *testing.T) {
		aData := zeroMap()
		aData[1] = 5
		bData := zeroMap()
		bData[2] = 7

		base1 := zeroMap()
		baseline1 := NewTrace(base1, false, 0, 0, 0)
		a := NewTrace(append([]byte(nil), aData...), false, 0, 0, 0)
		b := NewTrace(append([]byte(nil), bData...), false, 0, 0, 0)
		a.CombineInto(baseline1)
		b.CombineInto(baseline1)

		base2 := zeroMap()
		baseline2 := NewTrace(base2, false, 0, 0, 0)
		a2 := NewTrace(append([]byte(nil), aData...), false, 0, 0, 0)
		b2 := NewTrace(append([]byte(nil), bData...), false, 0, 0, 0)
		b2.CombineInto(baseline2)
		a2.CombineInto(baseline2)

		assert.Equal(t, baseline1.snapshot, baseline2.snapshot)
	})

	t.Run("disjoint edge sets sum path counts", func(t *testing.T) {
		base := zeroMap()
		baseline := NewTrace(base, false, 0, 0, 0)

		m1 := zeroMap()
		m1[1] = 1
		m1[2] = 1
		t1 := NewTrace(m1, false, 0, 0, 0)

		m2 := zeroMap()
		m2[100] = 1
		t2 := NewTrace(m2, false, 0, 0, 0)

		t1.CombineInto(baseline)
		t2.CombineInto(baseline)

		assert.Equal(t, t1.NumberOfPaths()+t2.NumberOfPaths(), baseline.NumberOfPaths())
	})
}

func TestTrace_Checksum(t *testing.T) {
	m1 := zeroMap()
	m1[3] = 7
	m2 := zeroMap()
	m2[3] = 7
	m3 := zeroMap()
	m3[3] = 8

	t1 := NewTrace(m1, false, 0, 0, 0)
	t2 := NewTrace(m2, false, 0, 0, 0)
	t3 := NewTrace(m3, false, 0, 0, 0)

	require.Equal(t, t1.Checksum(), t2.Checksum())
	assert.NotEqual(t, t1.Checksum(), t3.Checksum())
}
