// Package testutil assembles synthetic ZFS pool images in memory so the
// zfs package's end-to-end tests (spec §8) have fixtures to open without
// a real pool image on disk. It understands just enough of the on-disk
// layout to hand-place an uberblock, a MOS, a DSL chain, and a filesystem
// object set with a small directory tree — deliberately duplicating (not
// importing) internal/ondisk's byte layouts, since a fixture builder
// should not trust the same code it is testing.
package testutil

import (
	"encoding/binary"
	"io"

	"github.com/gozfs/zfs/internal/lzjb"
	"github.com/orcaman/writerseeker"
)

const (
	sectorSize        = 512
	labelBias         = 0x2000 // reserved label/boot sectors before DVA-addressed data
	nvpairSector      = 32     // label nvpair region offset within the label
	ringSector        = 256    // uberblock ring offset within the label
	blockPtrLen       = 128
	dnodeLen          = 512
)

// builder accumulates a pool image into a writerseeker.WriterSeeker,
// allocating DVA-addressed space sequentially past the label reservation.
type builder struct {
	ws   *writerseeker.WriterSeeker
	next uint64 // next free sector, relative to the end of the label reservation
}

func newBuilder() *builder {
	return &builder{ws: &writerseeker.WriterSeeker{}}
}

// alloc reserves n sectors of DVA-addressed space and returns their
// starting offset relative to the label reservation (i.e. a DVA.Offset
// value, not an absolute device sector).
func (b *builder) alloc(n uint64) uint64 {
	off := b.next
	b.next += n
	return off
}

func (b *builder) writeAbsolute(sector uint64, data []byte) {
	if _, err := b.ws.Seek(int64(sector*sectorSize), io.SeekStart); err != nil {
		panic(err) // testutil: in-memory writer, never fails
	}
	if _, err := b.ws.Write(data); err != nil {
		panic(err)
	}
}

// writeDVA writes data at the DVA-relative offset produced by alloc.
func (b *builder) writeDVA(relOffset uint64, data []byte) {
	b.writeAbsolute(labelBias+relOffset, data)
}

func (b *builder) bytes() []byte {
	out, err := io.ReadAll(b.ws.BytesReader())
	if err != nil {
		panic(err) // testutil: reading an in-memory bytes.Reader never fails
	}
	return out
}

func encodeDVA(vdevAsizeMinus1 uint64, offset uint64) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], vdevAsizeMinus1)
	binary.LittleEndian.PutUint64(buf[8:16], offset)
	return buf
}

func packFlagsSize(level, objType, checksum, compress, psizeMinus1, lsizeMinus1 uint64) uint64 {
	return (level&0x7F)<<56 |
		(objType&0xFF)<<48 |
		(checksum&0xFF)<<40 |
		(compress&0xFF)<<32 |
		(psizeMinus1&0xFFFF)<<16 |
		(lsizeMinus1 & 0xFFFF)
}

// blockPtr encodes a BlockPtr whose first DVA addresses relOffset (a
// DVA-relative sector), with the given compression tag and sector sizes.
func blockPtr(relOffset, sectors, compress uint64) []byte {
	buf := make([]byte, blockPtrLen)
	copy(buf[0:16], encodeDVA(sectors-1, relOffset))
	flagsSize := packFlagsSize(0, 0, 0, compress, sectors-1, sectors-1)
	binary.LittleEndian.PutUint64(buf[48:56], flagsSize)
	return buf
}

// blockPtrCompressed encodes a BlockPtr whose payload is psize sectors of
// compressed data expanding to lsize sectors.
func blockPtrCompressed(relOffset, psize, lsize, compress uint64) []byte {
	buf := make([]byte, blockPtrLen)
	copy(buf[0:16], encodeDVA(psize-1, relOffset))
	flagsSize := packFlagsSize(0, 0, 0, compress, psize-1, lsize-1)
	binary.LittleEndian.PutUint64(buf[48:56], flagsSize)
	return buf
}

func setDNodeHeader(buf []byte, objectType uint8, nblkptr uint8, bonusLen uint16, dataBlkSzSec uint16) {
	buf[0] = objectType
	buf[2] = 1 // nlevels
	buf[3] = nblkptr
	binary.LittleEndian.PutUint16(buf[8:10], dataBlkSzSec)
	binary.LittleEndian.PutUint16(buf[10:12], bonusLen)
}

// dnode encodes one 512-byte DNodePhys with up to 3 leading block pointers
// and a bonus buffer filling the remainder of the tail.
func dnode(objectType uint8, dataBlkSzSec uint16, blkptrs [][]byte, bonus []byte) []byte {
	buf := make([]byte, dnodeLen)
	setDNodeHeader(buf, objectType, uint8(len(blkptrs)), uint16(len(bonus)), dataBlkSzSec)
	off := 64
	for _, bp := range blkptrs {
		copy(buf[off:off+blockPtrLen], bp)
		off += blockPtrLen
	}
	copy(buf[off:], bonus)
	return buf
}

// microZapBlock encodes a single-sector-aligned micro-ZAP block: a
// 64-byte zero header followed by one 64-byte chunk per entry, in the
// given order.
func microZapBlock(sectors uint64, names []string, values []uint64) []byte {
	buf := make([]byte, sectors*sectorSize)
	off := 64
	for i, name := range names {
		binary.LittleEndian.PutUint64(buf[off:off+8], values[i])
		copy(buf[off+14:off+14+50], name)
		off += 64
	}
	return buf
}

// dslDirBonus encodes a DslDirPhys bonus buffer (head_dataset_obj at
// offset 8).
func dslDirBonus(headDatasetObj uint64) []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint64(buf[8:16], headDatasetObj)
	return buf
}

// dslDatasetBonus encodes a DslDatasetPhys bonus buffer (the embedded
// BlockPtr at offset 128).
func dslDatasetBonus(bp []byte) []byte {
	buf := make([]byte, 128+blockPtrLen)
	copy(buf[128:], bp)
	return buf
}

func padToNUL(s string) []byte {
	return append([]byte(s), 0)
}

func xdrPad(n int) int {
	if n%4 == 0 {
		return n
	}
	return n + (4 - n%4)
}

func xdrString(s string) []byte {
	buf := make([]byte, 4+xdrPad(len(s)))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(s)))
	copy(buf[4:], s)
	return buf
}

// nvPair encodes one XDR nvlist pair record: encode_size, decode_size,
// name, data type, element count, value.
func nvPair(name string, dataType uint32, value []byte) []byte {
	body := make([]byte, 4, 32)
	binary.BigEndian.PutUint32(body[0:4], uint32(len(name)))
	body = append(body, make([]byte, xdrPad(len(name)))...)
	copy(body[4:], name)

	typeAndCount := make([]byte, 8)
	binary.BigEndian.PutUint32(typeAndCount[0:4], dataType)
	binary.BigEndian.PutUint32(typeAndCount[4:8], 1)
	body = append(body, typeAndCount...)
	body = append(body, value...)

	total := 8 + len(body)
	out := make([]byte, 8)
	binary.BigEndian.PutUint32(out[0:4], uint32(total))
	binary.BigEndian.PutUint32(out[4:8], uint32(total))
	return append(out, body...)
}

// nvList wraps pairs in the XDR nvlist header (encoding/endian byte pair,
// version+nvflag prologue, zero terminator) the label nvpair region uses.
func nvList(pairs ...[]byte) []byte {
	buf := []byte{1, 0, 0, 0}
	buf = append(buf, make([]byte, 8)...)
	for _, p := range pairs {
		buf = append(buf, p...)
	}
	return append(buf, 0, 0, 0, 0)
}

// Fixture is the outcome of BuildSimplePool: the finished image and the
// content planted at known paths, so tests can assert against it without
// re-deriving the fixture's layout.
type Fixture struct {
	Image []byte
	// MotdContent is the decompressed, NUL-truncated content of /etc/motd.
	MotdContent []byte
	// HostsContent is the content of /etc/hosts.
	HostsContent []byte
	// PoolName is the "name" string pair planted in the label nvlist.
	PoolName string
}

// BuildSimplePool assembles a minimal little-endian pool image with a
// single uberblock, a MOS, and a root dataset filesystem containing
// directories {bin, etc, home} where etc holds {hosts, motd}. motd is
// LZJB-compressed to exercise spec §8 scenario 6; hosts is stored
// uncompressed.
func BuildSimplePool() (*Fixture, error) {
	b := newBuilder()

	hostsContent := []byte("127.0.0.1 localhost\n")
	motdContent := []byte("Welcome\n")

	hostsBlock := make([]byte, sectorSize)
	copy(hostsBlock, padToNUL(string(hostsContent)))
	hostsOff := b.alloc(1)
	b.writeDVA(hostsOff, hostsBlock)
	hostsBP := blockPtr(hostsOff, 1, 2 /* off */)

	motdPlain := make([]byte, 2*sectorSize)
	copy(motdPlain, padToNUL(string(motdContent)))
	motdCompressed := lzjb.Compress(motdPlain)
	motdPSectors := uint64((len(motdCompressed) + sectorSize - 1) / sectorSize)
	if motdPSectors == 0 {
		motdPSectors = 1
	}
	motdBuf := make([]byte, motdPSectors*sectorSize)
	copy(motdBuf, motdCompressed)
	motdOff := b.alloc(motdPSectors)
	b.writeDVA(motdOff, motdBuf)
	motdBP := blockPtrCompressed(motdOff, motdPSectors, 2, 1 /* lzjb */)

	// Directory ZAP blocks.
	rootZapOff := b.alloc(1)
	b.writeDVA(rootZapOff, microZapBlock(1, []string{"bin", "etc", "home"}, []uint64{3, 4, 5}))
	rootZapBP := blockPtr(rootZapOff, 1, 2)

	binZapOff := b.alloc(1)
	b.writeDVA(binZapOff, microZapBlock(1, nil, nil))
	binZapBP := blockPtr(binZapOff, 1, 2)

	etcZapOff := b.alloc(1)
	b.writeDVA(etcZapOff, microZapBlock(1, []string{"hosts", "motd"}, []uint64{6, 7}))
	etcZapBP := blockPtr(etcZapOff, 1, 2)

	homeZapOff := b.alloc(1)
	b.writeDVA(homeZapOff, microZapBlock(1, nil, nil))
	homeZapBP := blockPtr(homeZapOff, 1, 2)

	// Filesystem object set dnode array: obj0 unused, 1=master node,
	// 2=root dir, 3=bin, 4=etc, 5=home, 6=hosts file, 7=motd file.
	const fsDnodeCount = 8
	fsLeaf := make([]byte, fsDnodeCount*dnodeLen)
	masterNodeZapOff := b.alloc(1)
	b.writeDVA(masterNodeZapOff, microZapBlock(1, []string{"ROOT"}, []uint64{2}))
	masterNodeZapBP := blockPtr(masterNodeZapOff, 1, 2)

	copy(fsLeaf[1*dnodeLen:], dnode(0x15, 0, [][]byte{masterNodeZapBP}, nil)) // master node
	copy(fsLeaf[2*dnodeLen:], dnode(0x14, 0, [][]byte{rootZapBP}, nil))       // root dir
	copy(fsLeaf[3*dnodeLen:], dnode(0x14, 0, [][]byte{binZapBP}, nil))       // bin
	copy(fsLeaf[4*dnodeLen:], dnode(0x14, 0, [][]byte{etcZapBP}, nil))       // etc
	copy(fsLeaf[5*dnodeLen:], dnode(0x14, 0, [][]byte{homeZapBP}, nil))      // home
	copy(fsLeaf[6*dnodeLen:], dnode(0x13, 0, [][]byte{hostsBP}, nil))       // hosts
	copy(fsLeaf[7*dnodeLen:], dnode(0x13, 0, [][]byte{motdBP}, nil))        // motd

	fsLeafOff := b.alloc(fsDnodeCount)
	b.writeDVA(fsLeafOff, fsLeaf)
	fsMetaBP := blockPtr(fsLeafOff, fsDnodeCount, 2)

	fsObjSet := make([]byte, 512+144+8)
	copy(fsObjSet, dnode(0, fsDnodeCount, [][]byte{fsMetaBP}, nil))
	fsObjSetSectors := uint64((len(fsObjSet) + sectorSize - 1) / sectorSize)
	fsObjSetOff := b.alloc(fsObjSetSectors)
	b.writeDVA(fsObjSetOff, fsObjSet)
	fsObjSetBP := blockPtr(fsObjSetOff, fsObjSetSectors, 2)

	// MOS dnode array: obj0 unused, 1=object directory zap, 2=root dataset,
	// 3=head dataset.
	const mosDnodeCount = 4
	mosLeaf := make([]byte, mosDnodeCount*dnodeLen)

	objDirZapOff := b.alloc(1)
	b.writeDVA(objDirZapOff, microZapBlock(1, []string{"root_dataset"}, []uint64{2}))
	objDirZapBP := blockPtr(objDirZapOff, 1, 2)

	copy(mosLeaf[1*dnodeLen:], dnode(0x15, 0, [][]byte{objDirZapBP}, nil))
	copy(mosLeaf[2*dnodeLen:], dnode(0x10, 0, nil, dslDirBonus(3)))
	copy(mosLeaf[3*dnodeLen:], dnode(0x11, 0, nil, dslDatasetBonus(fsObjSetBP)))

	mosLeafOff := b.alloc(mosDnodeCount)
	b.writeDVA(mosLeafOff, mosLeaf)
	mosMetaBP := blockPtr(mosLeafOff, mosDnodeCount, 2)

	mosObjSet := make([]byte, 512+144+8)
	copy(mosObjSet, dnode(0, mosDnodeCount, [][]byte{mosMetaBP}, nil))
	mosObjSetOff := b.alloc(uint64((len(mosObjSet) + sectorSize - 1) / sectorSize))
	b.writeDVA(mosObjSetOff, mosObjSet)
	mosObjSetSectors := uint64((len(mosObjSet) + sectorSize - 1) / sectorSize)
	mosObjSetBP := blockPtr(mosObjSetOff, mosObjSetSectors, 2)

	// Label nvpair region: a minimal nvlist naming the pool, exercised by
	// Reader.Label (spec §9).
	const poolName = "testpool"
	guidVal := make([]byte, 8)
	binary.BigEndian.PutUint64(guidVal, 0xfeed)
	nvBlob := nvList(
		nvPair("name", 9 /* typeString */, xdrString(poolName)),
		nvPair("guid", 8 /* typeUint64 */, guidVal),
	)
	b.writeAbsolute(nvpairSector, nvBlob)

	// Uberblock ring: a single valid slot at index 0, txg 1.
	uber := make([]byte, sectorSize) // one slot is 2 sectors; the second sector stays zero padding
	uber = append(uber, make([]byte, sectorSize)...)
	binary.LittleEndian.PutUint64(uber[0:8], 0x00bab10c)
	binary.LittleEndian.PutUint64(uber[8:16], 5000) // version
	binary.LittleEndian.PutUint64(uber[16:24], 1)   // txg
	binary.LittleEndian.PutUint64(uber[24:32], 0xfeed)
	binary.LittleEndian.PutUint64(uber[32:40], 1700000000)
	copy(uber[40:40+blockPtrLen], mosObjSetBP)
	b.writeAbsolute(ringSector, uber)

	return &Fixture{
		Image:        b.bytes(),
		MotdContent:  motdContent,
		HostsContent: hostsContent,
		PoolName:     poolName,
	}, nil
}
