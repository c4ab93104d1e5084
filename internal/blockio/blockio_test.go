package blockio

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestMemory_ReadSectors(t *testing.T) {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i)
	}
	m := NewMemory(data)

	got, err := m.ReadSectors(2, 3)
	require.NoError(t, err)
	require.Equal(t, data[1024:1024+1536], got)
}

func TestMemory_ReadSectors_OutOfRange(t *testing.T) {
	m := NewMemory(make([]byte, 512))
	_, err := m.ReadSectors(5, 1)
	require.Error(t, err)
}

func TestMemory_ReadSectors_ZeroCount(t *testing.T) {
	m := NewMemory(make([]byte, 512))
	_, err := m.ReadSectors(0, 0)
	require.Error(t, err)
}

func TestFile_ReadSectors(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := make([]byte, 8192)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, afero.WriteFile(fs, "/pool.img", data, 0o644))

	bio, err := Open(fs, "/pool.img")
	require.NoError(t, err)
	defer bio.Close()

	got, err := bio.ReadSectors(4, 2)
	require.NoError(t, err)
	require.Equal(t, data[2048:2048+1024], got)
}

func TestFile_ReadSectors_ShortRead(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/pool.img", make([]byte, 512), 0o644))

	bio, err := Open(fs, "/pool.img")
	require.NoError(t, err)
	defer bio.Close()

	_, err = bio.ReadSectors(0, 4)
	require.Error(t, err)
}
