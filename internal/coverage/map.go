// Package coverage implements the shared-memory trace bitmap, its bucketed
// comparison semantics, and the execution Trace snapshot the fuzzing engine
// mutates against.
package coverage

import (
	"fmt"
	"strconv"

	"golang.org/x/sys/unix"
)

// MapSize is the fixed byte length of the coverage bitmap. Every edge
// identifier the instrumented runtime writes is hashed into one of these
// cells; the cell is a saturating hit counter for that edge.
const MapSize = 65536

// ShmEnvVar is the environment variable the instrumented runner reads to
// find the shared-memory segment backing the coverage map.
const ShmEnvVar = "__AFL_SHM_ID"

// SharedMap is a System V shared-memory segment of exactly MapSize bytes,
// addressable by this process and by exactly one live child at a time. The
// segment is created at backend initialization and must be detached and
// destroyed on cleanup even on abnormal exit.
type SharedMap struct {
	id   int
	data []byte
}

// NewSharedMap allocates a fresh MapSize-byte shared-memory segment.
func NewSharedMap() (*SharedMap, error) {
	id, err := unix.SysvShmGet(unix.IPC_PRIVATE, MapSize, unix.IPC_CREAT|0600)
	if err != nil {
		return nil, fmt.Errorf("shmget: %w", err)
	}

	data, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		_, _ = unix.SysvShmCtl(id, unix.IPC_RMID, nil)
		return nil, fmt.Errorf("shmat: %w", err)
	}

	return &SharedMap{id: id, data: data}, nil
}

// ID returns the segment's identifier, encoded as the decimal string the
// instrumented runner expects in __AFL_SHM_ID.
func (m *SharedMap) ID() string {
	return strconv.Itoa(m.id)
}

// Env returns the "__AFL_SHM_ID=<id>" environment entry for the child.
func (m *SharedMap) Env() string {
	return ShmEnvVar + "=" + m.ID()
}

// Zero clears every byte of the map. The engine zeroes the map before each
// spawn; the child writes it during execution.
func (m *SharedMap) Zero() {
	for i := range m.data {
		m.data[i] = 0
	}
}

// Bytes exposes the live map. Callers that need a stable snapshot (to build
// a Trace) must copy it — the live map is overwritten on the next spawn.
func (m *SharedMap) Bytes() []byte {
	return m.data
}

// Snapshot returns an owned copy of the current map contents, safe to keep
// across the next Zero/spawn cycle.
func (m *SharedMap) Snapshot() []byte {
	cp := make([]byte, len(m.data))
	copy(cp, m.data)
	return cp
}

// Close detaches and destroys the segment. Idempotent: safe to call on a
// partially-initialized or already-closed map.
func (m *SharedMap) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.SysvShmDetach(m.data)
	m.data = nil
	if _, ctlErr := unix.SysvShmCtl(m.id, unix.IPC_RMID, nil); ctlErr != nil && err == nil {
		err = ctlErr
	}
	return err
}
