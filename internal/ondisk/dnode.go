package ondisk

import (
	"encoding/binary"
	"fmt"
)

// DNodePhysSize is the packed size of a DNodePhys record.
const DNodePhysSize = 512

// dnodeHeaderSize is the fixed-layout prefix before the blkptr/bonus tail.
const dnodeHeaderSize = 64

// ZPL object types the reader recognises (spec §4.9). Other object types
// (directories with fat-ZAP contents, symlinks, ACLs, ...) are out of
// scope.
const (
	ObjectTypePlainFileContents = 0x13
	ObjectTypeDirectoryContents = 0x14
	ObjectTypeMasterNode        = 0x15
)

// DNodePhys describes a single object within an object set (spec §3).
type DNodePhys struct {
	ObjectType    uint8
	IndBlkShift   uint8 // ln2(indirect block size)
	NLevels       uint8 // 1 = blkptr -> data blocks directly
	NBlkPtr       uint8 // length of the BlockPtr array in the tail
	BonusType     uint8
	Checksum      uint8
	Compress      uint8
	Flags         uint8
	DataBlkSzSec  uint16
	BonusLen      uint16
	MaxBlkID      uint64
	Used          uint64

	tail []byte // nblkptr*128 bytes of BlockPtrs followed by bonus_len bytes of bonus data
}

// DecodeDNodePhys decodes a DNodePhys from its 512-byte packed image.
func DecodeDNodePhys(data []byte, order binary.ByteOrder) (DNodePhys, error) {
	if len(data) < DNodePhysSize {
		return DNodePhys{}, fmt.Errorf("%w: dnode needs %d bytes, got %d", ErrMalformed, DNodePhysSize, len(data))
	}

	dn := DNodePhys{
		ObjectType:   data[0],
		IndBlkShift:  data[1],
		NLevels:      data[2],
		NBlkPtr:      data[3],
		BonusType:    data[4],
		Checksum:     data[5],
		Compress:     data[6],
		Flags:        data[7],
		DataBlkSzSec: order.Uint16(data[8:10]),
		BonusLen:     order.Uint16(data[10:12]),
		MaxBlkID:     order.Uint64(data[16:24]),
		Used:         order.Uint64(data[24:32]),
	}
	if dn.NBlkPtr > 3 {
		return DNodePhys{}, fmt.Errorf("%w: dnode nblkptr %d exceeds maximum of 3", ErrMalformed, dn.NBlkPtr)
	}

	tail := make([]byte, DNodePhysSize-dnodeHeaderSize)
	copy(tail, data[dnodeHeaderSize:DNodePhysSize])
	dn.tail = tail

	return dn, nil
}

// BlockPtr returns the i'th block pointer in the dnode's tail, bounds-checked
// against NBlkPtr (spec invariant: nblkptr <= 3 bounds indexing).
func (dn DNodePhys) BlockPtr(i int, order binary.ByteOrder) (BlockPtr, error) {
	if i < 0 || i >= int(dn.NBlkPtr) {
		return BlockPtr{}, fmt.Errorf("%w: blkptr index %d out of range [0,%d)", ErrMalformed, i, dn.NBlkPtr)
	}
	off := i * BlockPtrSize
	return DecodeBlockPtr(dn.tail[off:off+BlockPtrSize], order)
}

// Bonus returns the bonus buffer following the block pointer array.
func (dn DNodePhys) Bonus() []byte {
	off := int(dn.NBlkPtr) * BlockPtrSize
	end := off + int(dn.BonusLen)
	if end > len(dn.tail) {
		end = len(dn.tail)
	}
	if off > len(dn.tail) {
		return nil
	}
	return dn.tail[off:end]
}
