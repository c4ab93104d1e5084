// Package vdev resolves DVAs and BlockPtrs to decompressed logical blocks
// (spec §4.4). It is the only layer that understands compression tags and
// sector bias; everything above it works exclusively in decoded logical
// bytes.
package vdev

import (
	"fmt"

	"github.com/gozfs/zfs/internal/blockio"
	"github.com/gozfs/zfs/internal/lzjb"
	"github.com/gozfs/zfs/internal/ondisk"
	"github.com/gozfs/zfs/internal/utils"
)

// Materialise reads the first DVA of bp from io, decompresses it per the
// block pointer's compression tag, and returns a buffer of exactly
// lsize*512 bytes. Only dvas[0] is consulted; mirrored/gang DVAs and
// multi-vdev fanout are out of scope (spec §1 Non-goals).
func Materialise(io blockio.BlockIO, bp ondisk.BlockPtr) ([]byte, error) {
	if bp.IsHole() {
		return nil, fmt.Errorf("%w: cannot materialise a hole block pointer", ondisk.ErrMalformed)
	}

	dva := bp.DVAs[0]
	if dva.Gang() {
		return nil, fmt.Errorf("%w: gang block", ondisk.ErrUnsupported)
	}
	asize := dva.ASize()
	psize := bp.PSize()
	lsize := bp.LSize()
	if asize < psize {
		return nil, fmt.Errorf("%w: dva asize(%d) smaller than block pointer psize(%d)", ondisk.ErrMalformed, asize, psize)
	}

	// The allocation (asize, from the DVA) can run longer than the
	// compressed record itself (psize, from the block pointer) — ZFS
	// rounds allocations up to the vdev's allocation granularity. Read the
	// full allocation, per spec §4.4 and the original reader's read_dva,
	// then take only the leading psize sectors as the compressed payload.
	raw, err := io.ReadSectors(dva.Sector(), asize)
	if err != nil {
		return nil, utils.WrapError("vdev: materialise", err)
	}
	pbytes, err := utils.SectorsToBytes(psize)
	if err != nil {
		return nil, utils.WrapError("vdev: materialise", err)
	}
	payload := raw[:pbytes]

	switch bp.Compression() {
	case ondisk.CompressOff:
		if psize != lsize {
			return nil, fmt.Errorf("%w: compression off but psize(%d) != lsize(%d)", ondisk.ErrMalformed, psize, lsize)
		}
		if asize == psize {
			return raw, nil
		}
		out := make([]byte, pbytes)
		copy(out, payload)
		utils.ReleaseBuffer(raw) // allocation padding beyond psize is discarded
		return out, nil

	case ondisk.CompressLZJB, ondisk.CompressLZJBAlt:
		lbytes, err := utils.SectorsToBytes(lsize)
		if err != nil {
			return nil, utils.WrapError("vdev: materialise", err)
		}
		out := make([]byte, lbytes)
		err = lzjb.Decompress(payload, out)
		utils.ReleaseBuffer(raw) // compressed bytes are discarded once decoded
		if err != nil {
			return nil, utils.WrapError("vdev: lzjb decompress", err)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: compression algorithm %d", ondisk.ErrUnsupported, bp.Compression())
	}
}
