//go:build integration

package backend

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgefuzz/edgefuzz/internal/coverage"
)

// TestForkServer_PrematureExit verifies that a runner exiting before the
// handshake bytes arrive is surfaced as a fatal configuration error, not
// a hang or a silent success.
func TestForkServer_PrematureExit(t *testing.T) {
	dir := t.TempDir()

	shm, err := coverage.NewSharedMap()
	require.NoError(t, err)
	defer shm.Close()

	fs := NewForkServer(ForkServerConfig{
		// /bin/false exits immediately without ever touching fd 199.
		Runner:  "/bin/false",
		Target:  filepath.Join(dir, "unused_target"),
		WorkDir: dir,
		Timeout: 2 * time.Second,
	}, shm)

	err = fs.Initialize()
	assert.Error(t, err)

	_ = fs.Cleanup()
}
