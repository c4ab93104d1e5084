package vdev

import (
	"encoding/binary"
	"testing"

	"github.com/gozfs/zfs/internal/blockio"
	"github.com/gozfs/zfs/internal/lzjb"
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

func encodeBlockPtr(dva ondisk.DVA, flagsSize uint64) []byte {
	buf := make([]byte, ondisk.BlockPtrSize)
	binary.LittleEndian.PutUint64(buf[0:8], dva.Vdev)
	binary.LittleEndian.PutUint64(buf[8:16], dva.Offset)
	binary.LittleEndian.PutUint64(buf[48:56], flagsSize)
	return buf
}

func newImage(sectors int) []byte {
	return make([]byte, sectors*512)
}

func TestMaterialise_Uncompressed(t *testing.T) {
	img := newImage(8192 + 4)
	payload := []byte("hello, zfs reader")
	block := make([]byte, 2*512)
	copy(block, payload)
	copy(img[8192*512:], block)

	flagsSize := packFlagsSize(0, 0x13, 0, ondisk.CompressOff, 1, 1)
	dva := ondisk.DVA{Vdev: 1, Offset: 0} // asize-1=1 -> 2 sectors
	bpData := encodeBlockPtr(dva, flagsSize)
	bp, err := ondisk.DecodeBlockPtr(bpData, binary.LittleEndian)
	require.NoError(t, err)

	io := blockio.NewMemory(img)
	got, err := Materialise(io, bp)
	require.NoError(t, err)
	require.Equal(t, block, got)
}

func TestMaterialise_LZJB(t *testing.T) {
	plain := make([]byte, 1024)
	copy(plain, "Welcome\n")
	compressed := lzjb.Compress(plain)

	psizeSectors := (len(compressed) + 511) / 512
	if psizeSectors == 0 {
		psizeSectors = 1
	}
	img := newImage(8192 + psizeSectors)
	copy(img[8192*512:], compressed)

	flagsSize := packFlagsSize(0, 0x13, 0, ondisk.CompressLZJB, uint64(psizeSectors-1), 1)
	dva := ondisk.DVA{Vdev: uint64(psizeSectors - 1), Offset: 0}
	bpData := encodeBlockPtr(dva, flagsSize)
	bp, err := ondisk.DecodeBlockPtr(bpData, binary.LittleEndian)
	require.NoError(t, err)

	io := blockio.NewMemory(img)
	got, err := Materialise(io, bp)
	require.NoError(t, err)
	require.Equal(t, plain, got)
}

func TestMaterialise_UnsupportedCompression(t *testing.T) {
	img := newImage(8192 + 1)
	flagsSize := packFlagsSize(0, 0x13, 0, 99, 0, 0)
	dva := ondisk.DVA{Vdev: 0, Offset: 0}
	bp, err := ondisk.DecodeBlockPtr(encodeBlockPtr(dva, flagsSize), binary.LittleEndian)
	require.NoError(t, err)

	_, err = Materialise(blockio.NewMemory(img), bp)
	require.ErrorIs(t, err, ondisk.ErrUnsupported)
}

func TestMaterialise_Hole(t *testing.T) {
	bp, err := ondisk.DecodeBlockPtr(make([]byte, ondisk.BlockPtrSize), binary.LittleEndian)
	require.NoError(t, err)
	require.True(t, bp.IsHole())

	_, err = Materialise(blockio.NewMemory(newImage(8192)), bp)
	require.ErrorIs(t, err, ondisk.ErrMalformed)
}

// TestMaterialise_AsizeLargerThanPsize exercises an allocation rounded up
// beyond the block pointer's compressed record length (DVA.ASize() >
// BlockPtr.PSize()): the read must span the full allocation, and only the
// leading psize sectors feed decompression.
func TestMaterialise_AsizeLargerThanPsize(t *testing.T) {
	img := newImage(8192 + 4)
	payload := []byte("hello, zfs reader")
	block := make([]byte, 512)
	copy(block, payload)
	copy(img[8192*512:], block)
	// Pad with bytes a correct decode must never touch.
	copy(img[8192*512+512:], []byte("TRAILING-GARBAGE-FROM-ALLOCATION-PADDING"))

	flagsSize := packFlagsSize(0, 0x13, 0, ondisk.CompressOff, 0, 0) // psize = lsize = 1 sector
	dva := ondisk.DVA{Vdev: 3, Offset: 0}                            // asize-1=3 -> 4 sectors allocated
	bpData := encodeBlockPtr(dva, flagsSize)
	bp, err := ondisk.DecodeBlockPtr(bpData, binary.LittleEndian)
	require.NoError(t, err)

	io := blockio.NewMemory(img)
	got, err := Materialise(io, bp)
	require.NoError(t, err)
	require.Equal(t, block, got)
}

// TestMaterialise_AsizeSmallerThanPsize rejects a DVA whose allocation is
// too small to hold the block pointer's own declared compressed length.
func TestMaterialise_AsizeSmallerThanPsize(t *testing.T) {
	img := newImage(8192 + 4)
	flagsSize := packFlagsSize(0, 0x13, 0, ondisk.CompressOff, 1, 1) // psize = 2 sectors
	dva := ondisk.DVA{Vdev: 0, Offset: 0}                            // asize-1=0 -> 1 sector allocated
	bpData := encodeBlockPtr(dva, flagsSize)
	bp, err := ondisk.DecodeBlockPtr(bpData, binary.LittleEndian)
	require.NoError(t, err)

	_, err = Materialise(blockio.NewMemory(img), bp)
	require.ErrorIs(t, err, ondisk.ErrMalformed)
}
