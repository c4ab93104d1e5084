package objset

import (
	"encoding/binary"
	"testing"

	"github.com/gozfs/zfs/internal/blockio"
	"github.com/gozfs/zfs/internal/ondisk"
	"github.com/stretchr/testify/require"
)

func packFlagsSize(level, objType, checksum, compress, psizeMinus1, lsizeMinus1 uint64) uint64 {
	return (level&0x7F)<<56 |
		(objType&0xFF)<<48 |
		(checksum&0xFF)<<40 |
		(compress&0xFF)<<32 |
		(psizeMinus1&0xFFFF)<<16 |
		(lsizeMinus1 & 0xFFFF)
}

func encodeBlockPtrAt(buf []byte, off int, dvaOffset, flagsSize, birthTxg uint64) {
	binary.LittleEndian.PutUint64(buf[off:off+8], (flagsSize>>16)&0xFFFF) // vdev: asize-1 = psize-1, so asize == psize
	binary.LittleEndian.PutUint64(buf[off+8:off+16], dvaOffset)
	binary.LittleEndian.PutUint64(buf[off+48:off+56], flagsSize)
	binary.LittleEndian.PutUint64(buf[off+80:off+88], birthTxg)
}

func encodeDNodeAt(buf []byte, off int, objectType uint8, dataBlkSzSec uint16, blkptr0 []byte) {
	buf[off+0] = objectType
	buf[off+2] = 1 // nlevels
	buf[off+3] = 1 // nblkptr
	binary.LittleEndian.PutUint16(buf[off+8:off+10], dataBlkSzSec)
	if blkptr0 != nil {
		copy(buf[off+64:off+64+ondisk.BlockPtrSize], blkptr0)
	}
}

const labelBias = 8192 // utils.LabelReservedSectors

func TestResolveObject_Shallow(t *testing.T) {
	img := make([]byte, (labelBias+16)*512)

	leafSector := labelBias + 10
	leaf := make([]byte, 2*512)
	encodeDNodeAt(leaf, 0, 0x20, 1, nil)
	encodeDNodeAt(leaf, 512, 0x21, 1, nil)
	copy(img[leafSector*512:], leaf)

	bp0 := make([]byte, ondisk.BlockPtrSize)
	flagsSize := packFlagsSize(0, 0x15, 0, ondisk.CompressOff, 1, 1) // psize-1=1, lsize-1=1 -> 2 sectors
	encodeBlockPtrAt(bp0, 0, uint64(leafSector-labelBias), flagsSize, 1)

	metaBuf := make([]byte, ondisk.DNodePhysSize)
	encodeDNodeAt(metaBuf, 0, ondisk.ObjectTypeMasterNode, 2, bp0)
	meta, err := ondisk.DecodeDNodePhys(metaBuf, binary.LittleEndian)
	require.NoError(t, err)

	io := blockio.NewMemory(img)

	dn0, err := ResolveObject(io, meta, 0, binary.LittleEndian)
	require.NoError(t, err)
	require.Equal(t, uint8(0x20), dn0.ObjectType)

	dn1, err := ResolveObject(io, meta, 1, binary.LittleEndian)
	require.NoError(t, err)
	require.Equal(t, uint8(0x21), dn1.ObjectType)

	_, err = ResolveObject(io, meta, 2, binary.LittleEndian)
	require.ErrorIs(t, err, ondisk.ErrObjectMissing)
}

func TestResolveObject_OneLevelIndirect(t *testing.T) {
	img := make([]byte, (labelBias+16)*512)

	indirectSector := labelBias
	leaf0Sector := labelBias + 1
	leaf1Sector := labelBias + 2

	leaf0 := make([]byte, 512)
	encodeDNodeAt(leaf0, 0, 0x30, 1, nil)
	copy(img[leaf0Sector*512:], leaf0)

	leaf1 := make([]byte, 512)
	encodeDNodeAt(leaf1, 0, 0x31, 1, nil)
	copy(img[leaf1Sector*512:], leaf1)

	indirect := make([]byte, 512)
	leafFlags := packFlagsSize(0, 0x13, 0, ondisk.CompressOff, 0, 0)
	encodeBlockPtrAt(indirect, 0, uint64(leaf0Sector-labelBias), leafFlags, 5)
	encodeBlockPtrAt(indirect, ondisk.BlockPtrSize, uint64(leaf1Sector-labelBias), leafFlags, 6)
	copy(img[indirectSector*512:], indirect)

	bp0 := make([]byte, ondisk.BlockPtrSize)
	indirectFlags := packFlagsSize(1, 0x15, 0, ondisk.CompressOff, 0, 0)
	encodeBlockPtrAt(bp0, 0, uint64(indirectSector-labelBias), indirectFlags, 1)

	metaBuf := make([]byte, ondisk.DNodePhysSize)
	encodeDNodeAt(metaBuf, 0, ondisk.ObjectTypeMasterNode, 1, bp0)
	meta, err := ondisk.DecodeDNodePhys(metaBuf, binary.LittleEndian)
	require.NoError(t, err)

	io := blockio.NewMemory(img)

	dn0, err := ResolveObject(io, meta, 0, binary.LittleEndian)
	require.NoError(t, err)
	require.Equal(t, uint8(0x30), dn0.ObjectType)

	dn1, err := ResolveObject(io, meta, 1, binary.LittleEndian)
	require.NoError(t, err)
	require.Equal(t, uint8(0x31), dn1.ObjectType)

	// Index 2 is a zero/hole blkptr slot within the same indirect block.
	_, err = ResolveObject(io, meta, 2, binary.LittleEndian)
	require.ErrorIs(t, err, ondisk.ErrObjectMissing)

	// Index 5 exceeds the indirect block's fan-out entirely.
	_, err = ResolveObject(io, meta, 5, binary.LittleEndian)
	require.ErrorIs(t, err, ondisk.ErrObjectMissing)
}
