// Package zfs is a read-only ZFS-on-disk reader: it opens a raw pool
// image — a seekable byte source, mounted nowhere, with no live kernel
// driver and no transactional state — and decodes enough of the on-disk
// metadata tree to list directories and read file contents from the
// pool's first (root) dataset (spec §1).
//
// The package is layered on internal/ondisk (packed-structure decoding),
// internal/lzjb (decompression), internal/blockio and internal/vdev
// (sector I/O and block materialisation), and internal/objset (the
// uberblock scanner and dnode resolver). Open walks the DSL chain once;
// Ls and ReadFile then resolve paths against the cached filesystem object
// set.
package zfs

import (
	"encoding/binary"
	"fmt"

	"github.com/gozfs/zfs/internal/blockio"
	"github.com/gozfs/zfs/internal/nvlist"
	"github.com/gozfs/zfs/internal/objset"
	"github.com/gozfs/zfs/internal/ondisk"
	"github.com/gozfs/zfs/internal/vdev"
)

// labelNvpairSector and labelNvpairSectorCount bound the 112 KiB XDR
// nvlist region of label L0, sandwiched between the 16 KiB blank/boot
// preamble and the uberblock ring at sector 256 (spec §3 VdevLabel).
const (
	labelNvpairSector      = 32
	labelNvpairSectorCount = 224
)

// mosObjectDirectory is the MOS object holding the object directory ZAP
// (spec §4.8).
const mosObjectDirectory = 1

// fsMasterNodeObject is the conventional object number of a filesystem
// object set's master node (spec §3 invariants, §4.8).
const fsMasterNodeObject = 1

// rootDatasetZAPKey is the object directory entry naming the pool's root
// dataset. Real pools key this "root_dataset"; the original reader this
// package is descended from simply took the object directory's first ZAP
// entry without checking its name. This reader tries the named key first
// and falls back to the first listed entry, so it still opens pools whose
// object directory ZAP was built without that convention.
const rootDatasetZAPKey = "root_dataset"

// rootZAPKey is the master node ZAP entry naming the root directory
// object (spec §3, §4.8).
const rootZAPKey = "ROOT"

// Reader is an opened pool: the active uberblock plus enough of the DSL
// chain to resolve paths within the root dataset's filesystem.
type Reader struct {
	io     blockio.BlockIO
	order  binary.ByteOrder
	uber   ondisk.Uberblock
	fsSet  ondisk.ObjectSetPhys
	rootID uint64
}

// Open scans the uberblock ring, walks the MOS -> root dataset -> head
// dataset -> filesystem object set chain, and resolves the root directory
// object number, caching everything Ls and ReadFile need.
func Open(io blockio.BlockIO) (*Reader, error) {
	uber, err := objset.ScanUberblocks(io)
	if err != nil {
		return nil, fmt.Errorf("zfs: open: %w", err)
	}
	order := uber.Order

	mos, err := objset.Load(io, uber.RootBP, order)
	if err != nil {
		return nil, fmt.Errorf("zfs: open: load MOS: %w", err)
	}

	objDirDnode, err := objset.ResolveObject(io, mos.MetaDNode, mosObjectDirectory, order)
	if err != nil {
		return nil, fmt.Errorf("zfs: open: MOS object directory: %w", err)
	}
	objDirChunks, err := readMicroZap(io, objDirDnode, order)
	if err != nil {
		return nil, fmt.Errorf("zfs: open: decode object directory: %w", err)
	}

	rootDatasetObj, ok := ondisk.Lookup(objDirChunks, rootDatasetZAPKey)
	if !ok {
		names := ondisk.Names(objDirChunks)
		if len(names) == 0 {
			return nil, fmt.Errorf("%w: MOS object directory has no entries", ErrMalformed)
		}
		rootDatasetObj, _ = ondisk.Lookup(objDirChunks, names[0])
	}

	rootDsDnode, err := objset.ResolveObject(io, mos.MetaDNode, rootDatasetObj, order)
	if err != nil {
		return nil, fmt.Errorf("zfs: open: root dataset dnode: %w", err)
	}
	dslDir, err := ondisk.DecodeDslDirPhys(rootDsDnode.Bonus(), order)
	if err != nil {
		return nil, fmt.Errorf("zfs: open: decode DSL dir: %w", err)
	}

	headDsDnode, err := objset.ResolveObject(io, mos.MetaDNode, dslDir.HeadDatasetObj, order)
	if err != nil {
		return nil, fmt.Errorf("zfs: open: head dataset dnode: %w", err)
	}
	dslDataset, err := ondisk.DecodeDslDatasetPhys(headDsDnode.Bonus(), order)
	if err != nil {
		return nil, fmt.Errorf("zfs: open: decode DSL dataset: %w", err)
	}

	fsSet, err := objset.Load(io, dslDataset.BP, order)
	if err != nil {
		return nil, fmt.Errorf("zfs: open: load filesystem object set: %w", err)
	}

	masterNode, err := objset.ResolveObject(io, fsSet.MetaDNode, fsMasterNodeObject, order)
	if err != nil {
		return nil, fmt.Errorf("zfs: open: master node dnode: %w", err)
	}
	masterChunks, err := readMicroZap(io, masterNode, order)
	if err != nil {
		return nil, fmt.Errorf("zfs: open: decode master node ZAP: %w", err)
	}
	rootID, ok := ondisk.Lookup(masterChunks, rootZAPKey)
	if !ok {
		return nil, fmt.Errorf("%w: master node ZAP has no %q entry", ErrMalformed, rootZAPKey)
	}

	return &Reader{
		io:     io,
		order:  order,
		uber:   uber,
		fsSet:  fsSet,
		rootID: rootID,
	}, nil
}

// Uberblock exposes the active uberblock for diagnostics (spec §6).
func (r *Reader) Uberblock() ondisk.Uberblock {
	return r.uber
}

// Label decodes label L0's nvpair blob (the pool name, GUID, and vdev
// tree, among other fields) for diagnostic use. It is best-effort: a
// corrupt nvlist body yields whatever pairs were decodable before the
// damage, while a region that is not XDR-encoded or too short for the
// header returns an error. Open never reads the label, since nothing else
// in this reader depends on it (spec §9).
func (r *Reader) Label() ([]nvlist.Pair, error) {
	raw, err := r.io.ReadSectors(labelNvpairSector, labelNvpairSectorCount)
	if err != nil {
		return nil, fmt.Errorf("zfs: read label nvpair region: %w", err)
	}
	pairs, err := nvlist.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("zfs: decode label nvpair region: %w", err)
	}
	return pairs, nil
}

// readMicroZap materialises a dnode's first block pointer and decodes it
// as a micro-ZAP.
func readMicroZap(io blockio.BlockIO, dn ondisk.DNodePhys, order binary.ByteOrder) ([]ondisk.MZapChunk, error) {
	bp, err := dn.BlockPtr(0, order)
	if err != nil {
		return nil, err
	}
	block, err := vdev.Materialise(io, bp)
	if err != nil {
		return nil, err
	}
	return ondisk.DecodeMicroZap(block, order), nil
}
