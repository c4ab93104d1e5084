// Package objset implements the uberblock scanner and the DNode/ObjectSet
// resolver (spec §4.5, §4.6): locating the authoritative uberblock in a
// label's ring, and walking an object set's indirect-block tree to fetch
// the dnode for an arbitrary object number.
package objset

import (
	"fmt"

	"github.com/gozfs/zfs/internal/blockio"
	"github.com/gozfs/zfs/internal/ondisk"
	"github.com/gozfs/zfs/internal/utils"
)

// uberblockRingSector is the sector offset of the 128-slot uberblock ring
// within a vdev label: 128 KiB of blank + boot-header preamble (spec §4.5).
const uberblockRingSector = 256

// uberblockSlotSectors is the size of one uberblock slot (1 KiB = 2 sectors).
const uberblockSlotSectors = 2

// uberblockSlotCount is the number of slots in the ring.
const uberblockSlotCount = 128

// ScanUberblocks reads the 128-slot uberblock ring and returns the
// authoritative uberblock: the accepted slot (valid magic) with the
// highest txg. Ties favor the later slot index. Fails with
// ErrNoValidUberblock if no slot decodes.
func ScanUberblocks(io blockio.BlockIO) (ondisk.Uberblock, error) {
	ring, err := io.ReadSectors(uberblockRingSector, uberblockSlotCount*uberblockSlotSectors)
	if err != nil {
		return ondisk.Uberblock{}, utils.WrapError("objset: read uberblock ring", err)
	}

	var best ondisk.Uberblock
	found := false
	slotBytes := uberblockSlotSectors * 512

	for slot := 0; slot < uberblockSlotCount; slot++ {
		start := slot * slotBytes
		ub, err := ondisk.DecodeUberblock(ring[start : start+slotBytes])
		if err != nil {
			continue // per spec §7: per-slot decode failures are expected and filtered
		}
		if !found || ub.Txg >= best.Txg {
			best = ub
			found = true
		}
	}

	if !found {
		return ondisk.Uberblock{}, fmt.Errorf("%w: scanned %d slots", ondisk.ErrNoValidUberblock, uberblockSlotCount)
	}
	return best, nil
}
