// Package blobstore is the I/O backend capability shared by the
// coordinator's input files, the workers' intermediate/output blobs, and the
// sequential oracle. It exposes a small read/write interface with a
// disk-backed implementation for real runs and an in-memory implementation
// for tests.
package blobstore

import (
	"os"
	"sync"

	"github.com/pkg/errors"
)

// Blobs is a named-blob store: read-by-name, write-by-name, overwrite on write.
type Blobs interface {
	// Read returns the full contents of the blob named name.
	// It fails if the blob does not exist.
	Read(name string) ([]byte, error)
	// Write stores data under name, overwriting any prior contents.
	Write(name string, data []byte) error
}

// Disk is a Blobs backend rooted at a directory on the local filesystem.
type Disk struct {
	dir string
}

// NewDisk returns a Disk backend rooted at dir. dir must already exist.
func NewDisk(dir string) *Disk {
	return &Disk{dir: dir}
}

func (d *Disk) path(name string) string {
	return d.dir + string(os.PathSeparator) + name
}

// Read implements Blobs.
func (d *Disk) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(d.path(name))
	if err != nil {
		return nil, errors.Wrapf(err, "read blob %q", name)
	}
	return data, nil
}

// Write implements Blobs.
func (d *Disk) Write(name string, data []byte) error {
	tmp := d.path(name) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write blob %q", name)
	}
	if err := os.Rename(tmp, d.path(name)); err != nil {
		return errors.Wrapf(err, "rename blob %q into place", name)
	}
	return nil
}

// Memory is an in-memory Blobs backend used by tests. All access is
// serialized under one mutex, matching the single-writer guarantee the
// spec requires of any shared backend.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Read implements Blobs.
func (m *Memory) Read(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.data[name]
	if !ok {
		return nil, errors.Errorf("read blob %q: does not exist", name)
	}
	// return a copy so callers cannot mutate stored state through the slice
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write implements Blobs.
func (m *Memory) Write(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	m.data[name] = cp
	return nil
}

// Exists reports whether a blob named name has been written.
func (m *Memory) Exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.data[name]
	return ok
}

// Snapshot returns a copy of every blob currently stored, keyed by name.
func (m *Memory) Snapshot() map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		cp := make([]byte, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}
