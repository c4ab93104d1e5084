package objset

import (
	"encoding/binary"
	"fmt"

	"github.com/gozfs/zfs/internal/blockio"
	"github.com/gozfs/zfs/internal/ondisk"
	"github.com/gozfs/zfs/internal/vdev"
)

// Load materialises bp and decodes it as an ObjectSetPhys: the meta-dnode
// describing the array of dnodes composing this object set, plus the ZIL
// header (unparsed; replay is out of scope) and os_type.
func Load(io blockio.BlockIO, bp ondisk.BlockPtr, order binary.ByteOrder) (ondisk.ObjectSetPhys, error) {
	block, err := vdev.Materialise(io, bp)
	if err != nil {
		return ondisk.ObjectSetPhys{}, fmt.Errorf("objset: materialise: %w", err)
	}
	os, err := ondisk.DecodeObjectSetPhys(block, order)
	if err != nil {
		return ondisk.ObjectSetPhys{}, fmt.Errorf("objset: decode: %w", err)
	}
	return os, nil
}

// ResolveObject fetches object number objNum's DNodePhys within the object
// set described by metaDNode (spec §4.6). It walks the indirect-block tree
// rooted at metaDNode's first block pointer, descending while level() > 0,
// and returns the leaf DNodePhys at stride 512 within the final block.
//
// Per spec §9's design note, the fan-out and per-child span are derived
// bottom-up from the materialised block sizes rather than a hardcoded
// depth: a leaf block holds metaDNode.DataBlkSzSec dnodes (one sector
// each), and an indirect block's fan-out is its materialised length
// divided by BlockPtrSize. This handles both deep trees and the common
// shallow case where the top pointer is already level 0.
func ResolveObject(io blockio.BlockIO, metaDNode ondisk.DNodePhys, objNum uint64, order binary.ByteOrder) (ondisk.DNodePhys, error) {
	dnodesPerLeaf := uint64(metaDNode.DataBlkSzSec)
	if dnodesPerLeaf == 0 {
		dnodesPerLeaf = 1
	}

	bp, err := metaDNode.BlockPtr(0, order)
	if err != nil {
		return ondisk.DNodePhys{}, fmt.Errorf("objset: meta-dnode blkptr[0]: %w", err)
	}

	n := objNum
	for {
		level := bp.Level()
		if level == 0 {
			break
		}

		block, err := vdev.Materialise(io, bp)
		if err != nil {
			return ondisk.DNodePhys{}, fmt.Errorf("objset: materialise indirect level %d: %w", level, err)
		}
		fanout := uint64(len(block)) / ondisk.BlockPtrSize
		if fanout == 0 {
			return ondisk.DNodePhys{}, fmt.Errorf("%w: indirect block too small for any BlockPtr", ondisk.ErrMalformed)
		}

		perChild := dnodesPerLeaf
		for i := uint64(1); i < level; i++ {
			perChild *= fanout
		}

		childIdx := n / perChild
		if childIdx >= fanout {
			return ondisk.DNodePhys{}, fmt.Errorf("%w: object %d child index %d exceeds fan-out %d", ondisk.ErrObjectMissing, objNum, childIdx, fanout)
		}
		n %= perChild

		childData := block[childIdx*ondisk.BlockPtrSize : (childIdx+1)*ondisk.BlockPtrSize]
		child, err := ondisk.DecodeBlockPtr(childData, order)
		if err != nil {
			return ondisk.DNodePhys{}, fmt.Errorf("objset: decode child blkptr: %w", err)
		}
		if child.IsHole() {
			return ondisk.DNodePhys{}, fmt.Errorf("%w: object %d falls in a hole block", ondisk.ErrObjectMissing, objNum)
		}
		bp = child
	}

	leaf, err := vdev.Materialise(io, bp)
	if err != nil {
		return ondisk.DNodePhys{}, fmt.Errorf("objset: materialise leaf: %w", err)
	}

	idx := n
	count := uint64(len(leaf)) / ondisk.DNodePhysSize
	if idx >= count {
		return ondisk.DNodePhys{}, fmt.Errorf("%w: object %d index %d exceeds leaf block of %d dnodes", ondisk.ErrObjectMissing, objNum, idx, count)
	}

	dn, err := ondisk.DecodeDNodePhys(leaf[idx*ondisk.DNodePhysSize:(idx+1)*ondisk.DNodePhysSize], order)
	if err != nil {
		return ondisk.DNodePhys{}, fmt.Errorf("objset: decode dnode %d: %w", objNum, err)
	}
	return dn, nil
}
