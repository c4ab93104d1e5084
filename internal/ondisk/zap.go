package ondisk

import (
	"bytes"
	"encoding/binary"
)

// microZapHeaderSize is the 64-byte block header preceding the chunk
// array. The reader does not validate it beyond skipping it at a fixed
// position (spec §3, §4.7).
const microZapHeaderSize = 64

// MZapChunkSize is the packed size of one micro-ZAP chunk.
const MZapChunkSize = 64

// mzapNameSize is the size of the NUL-terminated name field within a chunk.
const mzapNameSize = 50

// MZapChunk is one name->value entry of a micro-ZAP directory (spec §3).
type MZapChunk struct {
	Value uint64
	CD    uint32
	Name  string
}

// DecodeMicroZap parses a micro-ZAP block into its ordered chunk sequence,
// stopping at the block's end or at the first chunk with an empty name
// (spec §4.7: an empty name terminates enumeration).
func DecodeMicroZap(block []byte, order binary.ByteOrder) []MZapChunk {
	var chunks []MZapChunk

	if len(block) <= microZapHeaderSize {
		return chunks
	}
	body := block[microZapHeaderSize:]

	for off := 0; off+MZapChunkSize <= len(body); off += MZapChunkSize {
		entry := body[off : off+MZapChunkSize]
		value := order.Uint64(entry[0:8])
		cd := order.Uint32(entry[8:12])
		nameBytes := entry[14 : 14+mzapNameSize]

		nul := bytes.IndexByte(nameBytes, 0)
		var name string
		if nul < 0 {
			name = string(nameBytes)
		} else {
			name = string(nameBytes[:nul])
		}

		if name == "" {
			break
		}
		chunks = append(chunks, MZapChunk{Value: value, CD: cd, Name: name})
	}

	return chunks
}

// Lookup returns the value for name and whether it was found.
func Lookup(chunks []MZapChunk, name string) (uint64, bool) {
	for _, c := range chunks {
		if c.Name == name {
			return c.Value, true
		}
	}
	return 0, false
}

// Names returns the ordered list of chunk names.
func Names(chunks []MZapChunk) []string {
	names := make([]string, len(chunks))
	for i, c := range chunks {
		names[i] = c.Name
	}
	return names
}
