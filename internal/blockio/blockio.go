// Package blockio provides sector-granular reads from a pool's backing
// byte source (spec §4.1). The reader never writes through this
// interface; it exists purely to decouple decoding from where the bytes
// actually live (a real device file, a loopback image, or an in-memory
// buffer built for tests).
package blockio

import (
	"errors"
	"fmt"
	"io"

	"github.com/gozfs/zfs/internal/utils"
	"github.com/spf13/afero"
)

// ErrIO is the sentinel for backing-source read failures (spec §6, §7):
// a short read, an out-of-range request, or the underlying file/device
// erroring out. Callers match it with errors.Is.
var ErrIO = errors.New("backing source read failed")

// BlockIO is the contract consumed by internal/vdev: read a run of
// sectors starting at sector_start, returning exactly sector_count*512
// bytes. Implementations must be seekable; concurrent calls need not be
// supported (spec §5 — the reader is single-threaded and blocking).
type BlockIO interface {
	ReadSectors(startSector, sectorCount uint64) ([]byte, error)
}

// File opens a BlockIO backed by a real file or device path through
// afero, so the same code path serves plain files, the OS filesystem, or
// an in-memory afero.Fs in tests without branching on backend type.
type File struct {
	fs   afero.Fs
	path string
	f    afero.File
}

// Open returns a File-backed BlockIO over path using fs. Passing
// afero.NewOsFs() targets a real device/image file; an afero.NewMemMapFs()
// is useful for assembling synthetic pool images without touching disk.
func Open(fs afero.Fs, path string) (*File, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, utils.WrapError("blockio: open "+path, fmt.Errorf("%w: %v", ErrIO, err))
	}
	return &File{fs: fs, path: path, f: f}, nil
}

// ReadSectors implements BlockIO.
func (b *File) ReadSectors(startSector, sectorCount uint64) ([]byte, error) {
	if err := utils.ValidateSectorCount(sectorCount, "blockio read"); err != nil {
		return nil, utils.WrapError("blockio: "+b.path, fmt.Errorf("%w: %v", ErrIO, err))
	}
	byteLen, err := utils.SectorsToBytes(sectorCount)
	if err != nil {
		return nil, utils.WrapError("blockio: "+b.path, fmt.Errorf("%w: %v", ErrIO, err))
	}
	byteOff, err := utils.SectorsToBytes(startSector)
	if err != nil {
		return nil, utils.WrapError("blockio: "+b.path, fmt.Errorf("%w: %v", ErrIO, err))
	}

	buf := utils.GetBuffer(int(byteLen))
	n, err := b.f.ReadAt(buf, int64(byteOff))
	if err != nil && err != io.EOF {
		return nil, utils.WrapError(fmt.Sprintf("blockio: read %d sectors at sector %d", sectorCount, startSector), fmt.Errorf("%w: %v", ErrIO, err))
	}
	if uint64(n) != byteLen {
		return nil, utils.WrapError(fmt.Sprintf("blockio: read %d sectors at sector %d", sectorCount, startSector),
			fmt.Errorf("%w: short read: got %d bytes, wanted %d", ErrIO, n, byteLen))
	}
	return buf, nil
}

// Close releases the underlying file handle.
func (b *File) Close() error {
	return b.f.Close()
}

// Memory is an in-memory BlockIO over a fixed byte buffer, used to
// construct synthetic pool images for tests without a filesystem.
type Memory struct {
	data []byte
}

// NewMemory wraps data as a BlockIO. data is not copied; callers that
// mutate it after construction will see those changes reflected in reads.
func NewMemory(data []byte) *Memory {
	return &Memory{data: data}
}

// ReadSectors implements BlockIO.
func (m *Memory) ReadSectors(startSector, sectorCount uint64) ([]byte, error) {
	if err := utils.ValidateSectorCount(sectorCount, "blockio read"); err != nil {
		return nil, utils.WrapError("blockio: memory", fmt.Errorf("%w: %v", ErrIO, err))
	}
	byteLen, err := utils.SectorsToBytes(sectorCount)
	if err != nil {
		return nil, utils.WrapError("blockio: memory", fmt.Errorf("%w: %v", ErrIO, err))
	}
	byteOff, err := utils.SectorsToBytes(startSector)
	if err != nil {
		return nil, utils.WrapError("blockio: memory", fmt.Errorf("%w: %v", ErrIO, err))
	}

	end := byteOff + byteLen
	if end > uint64(len(m.data)) {
		return nil, utils.WrapError("blockio: memory",
			fmt.Errorf("%w: read [%d:%d) exceeds backing buffer of %d bytes", ErrIO, byteOff, end, len(m.data)))
	}
	out := utils.GetBuffer(int(byteLen))
	copy(out, m.data[byteOff:end])
	return out, nil
}
