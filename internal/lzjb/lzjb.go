// Package lzjb implements ZFS's LZJB compressor/decompressor (spec §4.3):
// a sliding-window LZ77 variant with an 8-bit copymap governing the next
// eight tokens, and back-references packed into a 16-bit big-endian value
// (high 6 bits matchlen-3, low 10 bits back-distance).
//
// Decompress is the production path, used by internal/vdev to materialise
// compressed blocks. Compress exists only to build synthetic test fixtures
// (the reader never writes pool images) and to exercise the round-trip
// property from spec §8.
package lzjb

import (
	"fmt"

	"github.com/gozfs/zfs/internal/ondisk"
)

const (
	matchBits  = 6
	matchMin   = 3
	matchMax   = (1 << matchBits) + matchMin - 1 // 66
	offsetMask = (1 << (16 - matchBits)) - 1      // 1023
	lempelSize = 1024
)

// Decompress expands src into dst, which must be sized to exactly the
// record's lsize. It stops as soon as dst is full, ignoring any bytes left
// in src (such as allocation padding). If src is exhausted before dst is
// full, it fails with ErrCorruptCompression.
func Decompress(src, dst []byte) error {
	si := 0
	di := 0
	copymask := 1 << 7
	copymap := byte(0)

	for di < len(dst) {
		copymask <<= 1
		if copymask == (1 << 8) {
			copymask = 1
			if si >= len(src) {
				return fmt.Errorf("%w: lzjb stream exhausted before output filled", ondisk.ErrCorruptCompression)
			}
			copymap = src[si]
			si++
		}
		if int(copymap)&copymask != 0 {
			if si+1 >= len(src) {
				return fmt.Errorf("%w: truncated back-reference token", ondisk.ErrCorruptCompression)
			}
			b0, b1 := src[si], src[si+1]
			si += 2
			mlen := int(b0>>(8-matchBits)) + matchMin
			offset := ((int(b0) << 8) | int(b1)) & offsetMask
			cpy := di - offset
			if cpy < 0 {
				return fmt.Errorf("%w: back-reference predates output start", ondisk.ErrCorruptCompression)
			}
			for mlen > 0 && di < len(dst) {
				dst[di] = dst[cpy]
				di++
				cpy++
				mlen--
			}
		} else {
			if si >= len(src) {
				return fmt.Errorf("%w: literal stream exhausted before output filled", ondisk.ErrCorruptCompression)
			}
			dst[di] = src[si]
			di++
			si++
		}
	}
	return nil
}

// Compress is a straightforward reference-style LZJB encoder used by tests
// to build synthetic compressed blocks. It favors correctness over the
// exact hash function ZFS uses; any encoder whose output Decompress can
// reverse satisfies the round-trip property this package is tested against.
func Compress(src []byte) []byte {
	n := len(src)
	dst := make([]byte, 0, n+n/2+8)
	lempel := make([]int, lempelSize)
	for i := range lempel {
		lempel[i] = -1
	}

	copymask := 1 << 7
	copymapIdx := -1
	i := 0
	for i < n {
		copymask <<= 1
		if copymask == (1 << 8) {
			copymask = 1
			copymapIdx = len(dst)
			dst = append(dst, 0)
		}

		mlen := 0
		cand := -1
		if i <= n-matchMin {
			hash := (int(src[i]) << 16) + (int(src[i+1]) << 8) + int(src[i+2])
			hash += hash >> 9
			hash += hash >> 5
			h := hash & (lempelSize - 1)
			cand = lempel[h]
			lempel[h] = i

			if cand >= 0 {
				offset := i - cand
				if offset >= 1 && offset <= offsetMask {
					max := matchMax
					if n-i < max {
						max = n - i
					}
					for mlen < max && src[cand+mlen] == src[i+mlen] {
						mlen++
					}
				}
			}
		}

		if mlen >= matchMin {
			offset := i - cand
			dst[copymapIdx] |= byte(copymask)
			b0 := byte((mlen-matchMin)<<(8-matchBits)) | byte(offset>>8)
			b1 := byte(offset & 0xFF)
			dst = append(dst, b0, b1)
			i += mlen
		} else {
			dst = append(dst, src[i])
			i++
		}
	}
	return dst
}
