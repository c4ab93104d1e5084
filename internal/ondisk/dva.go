// Package ondisk decodes the little-endian packed on-disk structures of a
// ZFS pool: DVAs, block pointers, uberblocks, dnodes, object sets, micro-ZAP
// blocks, and the DSL directory/dataset bonus buffers. Every decode reads an
// exact byte span at a documented offset and fails with a descriptive error
// if the input is too short; nothing here performs I/O of its own.
package ondisk

import (
	"encoding/binary"
	"fmt"

	"github.com/gozfs/zfs/internal/utils"
)

// DVASize is the packed size of a Device Virtual Address.
const DVASize = 16

// GangMagic identifies a gang block; gang blocks are unsupported but the
// value is retained so callers can name the condition precisely.
const GangMagic = 0x117a0cb17ada1002

// DVA is a Device Virtual Address: a (vdev, offset) pair identifying a
// physical block. See spec §3.
type DVA struct {
	Vdev   uint64
	Offset uint64
}

// DecodeDVA decodes a DVA from its 16-byte packed image in the given byte
// order.
func DecodeDVA(data []byte, order binary.ByteOrder) (DVA, error) {
	if len(data) < DVASize {
		return DVA{}, fmt.Errorf("%w: DVA needs %d bytes, got %d", ErrMalformed, DVASize, len(data))
	}
	return DVA{
		Vdev:   order.Uint64(data[0:8]),
		Offset: order.Uint64(data[8:16]),
	}, nil
}

// Gang reports whether the high bit of Offset marks this DVA as a gang
// block. Gang blocks are out of scope (spec §1 Non-goals).
func (d DVA) Gang() bool {
	return d.Offset&0x8000000000000000 != 0
}

// byteOffset is the low 63 bits of Offset: a sector offset measured from
// the end of the label/boot region.
func (d DVA) byteOffset() uint64 {
	return d.Offset & 0x7FFF_FFFF_FFFF_FFFF
}

// Sector returns the absolute physical sector of this DVA, biased by the
// 4 MiB label/boot reservation (0x2000 sectors; spec §3, §4.4).
func (d DVA) Sector() uint64 {
	return d.byteOffset() + utils.LabelReservedSectors
}

// ASize returns the allocated size of the block, in sectors: the low 24
// bits of Vdev encode (asize-1).
func (d DVA) ASize() uint64 {
	return (d.Vdev & 0xFFFFFF) + 1
}

// VdevID returns the vdev this DVA addresses. The reader only ever
// consults vdev 0 (single top-level vdev; spec §1 Non-goals exclude
// multi-vdev and RAID-Z/mirror pools), but the field is kept for
// diagnostics.
func (d DVA) VdevID() uint64 {
	return d.Vdev >> 24
}
