package blobstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReadWrite(t *testing.T) {
	m := NewMemory()

	_, err := m.Read("missing")
	assert.Error(t, err)
	assert.False(t, m.Exists("missing"))

	require.NoError(t, m.Write("k", []byte("v1")))
	assert.True(t, m.Exists("k"))

	data, err := m.Read("k")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	require.NoError(t, m.Write("k", []byte("v2")))
	data, err = m.Read("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestMemorySnapshotIsolated(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Write("a", []byte("1")))

	snap := m.Snapshot()
	snap["a"][0] = 'X'

	data, err := m.Read("a")
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))
}

func TestMemoryReadReturnsCopy(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Write("a", []byte("1")))

	data, err := m.Read("a")
	require.NoError(t, err)
	data[0] = 'X'

	data2, err := m.Read("a")
	require.NoError(t, err)
	assert.Equal(t, "1", string(data2))
}

func TestDiskReadWrite(t *testing.T) {
	dir := t.TempDir()
	d := NewDisk(dir)

	_, err := d.Read("missing")
	assert.Error(t, err)

	require.NoError(t, d.Write("out", []byte("hello")))
	data, err := d.Read("out")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	// overwrite
	require.NoError(t, d.Write("out", []byte("world")))
	data, err = d.Read("out")
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))

	// no leftover temp file
	_, err = os.Stat(filepath.Join(dir, "out.tmp"))
	assert.True(t, os.IsNotExist(err))
}
