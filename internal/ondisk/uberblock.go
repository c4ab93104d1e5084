package ondisk

import (
	"encoding/binary"
	"fmt"
)

// UberblockSize is the packed size of an Uberblock: five 8-byte fields
// followed by a 128-byte BlockPtr (spec §3).
const UberblockSize = 5*8 + BlockPtrSize

// UberblockMagic is the canonical magic value, regardless of which byte
// order produced it on disk.
const UberblockMagic = 0x00bab10c

// Uberblock is the versioned pool root descriptor; the newest by Txg is
// authoritative (spec §3, §4.5).
type Uberblock struct {
	Magic     uint64
	Version   uint64
	Txg       uint64
	GuidSum   uint64
	Timestamp uint64
	RootBP    BlockPtr
	// Order is the byte order this uberblock decoded under. Once fixed by
	// the first valid uberblock, the rest of the pool inherits it
	// (spec §4.2).
	Order binary.ByteOrder
}

// DecodeUberblock decodes an Uberblock from its packed image, detecting
// endianness from the magic field. It returns ErrMalformed if data is too
// short and ErrNoValidUberblock if neither byte order produces the
// canonical magic.
func DecodeUberblock(data []byte) (Uberblock, error) {
	if len(data) < UberblockSize {
		return Uberblock{}, fmt.Errorf("%w: uberblock needs %d bytes, got %d", ErrMalformed, UberblockSize, len(data))
	}

	magicLE := binary.LittleEndian.Uint64(data[0:8])
	magicBE := binary.BigEndian.Uint64(data[0:8])

	var order binary.ByteOrder
	switch UberblockMagic {
	case magicLE:
		order = binary.LittleEndian
	case magicBE:
		order = binary.BigEndian
	default:
		return Uberblock{}, ErrNoValidUberblock
	}

	rootbp, err := DecodeBlockPtr(data[40:40+BlockPtrSize], order)
	if err != nil {
		return Uberblock{}, fmt.Errorf("uberblock rootbp: %w", err)
	}

	return Uberblock{
		Magic:     UberblockMagic,
		Version:   order.Uint64(data[8:16]),
		Txg:       order.Uint64(data[16:24]),
		GuidSum:   order.Uint64(data[24:32]),
		Timestamp: order.Uint64(data[32:40]),
		RootBP:    rootbp,
		Order:     order,
	}, nil
}
