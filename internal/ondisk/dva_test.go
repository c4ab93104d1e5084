package ondisk

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeDVA(vdev, offset uint64) []byte {
	buf := make([]byte, DVASize)
	binary.LittleEndian.PutUint64(buf[0:8], vdev)
	binary.LittleEndian.PutUint64(buf[8:16], offset)
	return buf
}

func TestDecodeDVA(t *testing.T) {
	tests := []struct {
		name       string
		vdev       uint64
		offset     uint64
		wantASize  uint64
		wantSector uint64
		wantGang   bool
	}{
		{
			name:       "zero offset sits at the label reservation boundary",
			vdev:       0,
			offset:     0,
			wantASize:  1,
			wantSector: 0x2000,
			wantGang:   false,
		},
		{
			name:       "asize packs as value-1 in the low 24 bits",
			vdev:       7,
			offset:     100,
			wantASize:  8,
			wantSector: 100 + 0x2000,
			wantGang:   false,
		},
		{
			name:       "gang bit set",
			vdev:       0,
			offset:     0x8000000000000000 | 500,
			wantASize:  1,
			wantSector: 500 + 0x2000,
			wantGang:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dva, err := DecodeDVA(encodeDVA(tt.vdev, tt.offset), binary.LittleEndian)
			require.NoError(t, err)
			require.Equal(t, tt.wantASize, dva.ASize())
			require.Equal(t, tt.wantSector, dva.Sector())
			require.Equal(t, tt.wantGang, dva.Gang())
			require.GreaterOrEqual(t, dva.Sector(), uint64(0x2000))
			require.GreaterOrEqual(t, dva.ASize(), uint64(1))
		})
	}
}

func TestDecodeDVA_TooShort(t *testing.T) {
	_, err := DecodeDVA(make([]byte, 10), binary.LittleEndian)
	require.ErrorIs(t, err, ErrMalformed)
}
