package ondisk

import (
	"encoding/binary"
	"fmt"
)

// zilHeaderSize is claim_txg(8) + replay_seq(8) + log BlockPtr(128); the
// reader never replays the ZIL (spec §1 Non-goals) so these bytes are
// skipped rather than decoded.
const zilHeaderSize = 8 + 8 + BlockPtrSize

// ObjectSetPhysSize is the packed size of an ObjectSetPhys record.
const ObjectSetPhysSize = DNodePhysSize + zilHeaderSize + 8

// ObjectSetPhys is a meta dnode (describing the dnode array of this object
// set) followed by a ZIL header and an os_type tag (spec §3).
type ObjectSetPhys struct {
	MetaDNode DNodePhys
	OSType    uint64
}

// DecodeObjectSetPhys decodes an ObjectSetPhys from its packed image.
func DecodeObjectSetPhys(data []byte, order binary.ByteOrder) (ObjectSetPhys, error) {
	if len(data) < ObjectSetPhysSize {
		return ObjectSetPhys{}, fmt.Errorf("%w: object set needs %d bytes, got %d", ErrMalformed, ObjectSetPhysSize, len(data))
	}

	meta, err := DecodeDNodePhys(data[:DNodePhysSize], order)
	if err != nil {
		return ObjectSetPhys{}, fmt.Errorf("object set meta dnode: %w", err)
	}

	osType := order.Uint64(data[DNodePhysSize+zilHeaderSize : DNodePhysSize+zilHeaderSize+8])

	return ObjectSetPhys{
		MetaDNode: meta,
		OSType:    osType,
	}, nil
}
