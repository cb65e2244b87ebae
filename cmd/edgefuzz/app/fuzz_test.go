package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeeds_SortsByNameAndSkipsDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zebra"), []byte("z"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "apple"), []byte("a"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	seeds, err := loadSeeds(dir)
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	assert.Equal(t, "apple", seeds[0].Name)
	assert.Equal(t, "zebra", seeds[1].Name)
}

func TestLoadSeeds_MissingDirectory(t *testing.T) {
	_, err := loadSeeds(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
