package testcase

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCase_Clone(t *testing.T) {
	t.Run("deep copies data", func(t *testing.T) {
		seed := New("seed", []byte("hello"))
		clone := seed.Clone()
		clone.Data[0] = 'H'

		assert.Equal(t, "hello", string(seed.Data))
		assert.Equal(t, "Hello", string(clone.Data))
	})

	t.Run("carries resume markers and mutation log", func(t *testing.T) {
		seed := &TestCase{
			Name:         "seed",
			Data:         []byte("abc"),
			Mutations:    "bitflip@2.5",
			StartBytePos: 2,
			StartBitPos:  5,
		}
		clone := seed.Clone()
		assert.Equal(t, seed.Mutations, clone.Mutations)
		assert.Equal(t, seed.StartBytePos, clone.StartBytePos)
		assert.Equal(t, seed.StartBitPos, clone.StartBitPos)
	})
}

func TestTestCase_WriteAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "case_1")

	original := New("case_1", []byte("payload bytes"))
	require.NoError(t, original.WriteTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "case_1", loaded.Name)
	assert.Equal(t, original.Data, loaded.Data)
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
