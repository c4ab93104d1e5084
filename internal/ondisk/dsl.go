package ondisk

import (
	"encoding/binary"
	"fmt"
)

// dslDirHeadDatasetOffset is the byte offset of dd_head_dataset_obj within
// a DSL directory's bonus buffer (spec §3, §4.8: only this field and the
// dataset's bp are required).
const dslDirHeadDatasetOffset = 8

// DslDirPhys is the DSL directory bonus buffer. Only the fields the reader
// needs to walk root dataset -> head dataset are decoded.
type DslDirPhys struct {
	HeadDatasetObj uint64
}

// DecodeDslDirPhys decodes a DslDirPhys from a dnode's bonus buffer.
func DecodeDslDirPhys(bonus []byte, order binary.ByteOrder) (DslDirPhys, error) {
	if len(bonus) < dslDirHeadDatasetOffset+8 {
		return DslDirPhys{}, fmt.Errorf("%w: DSL dir bonus too short for head_dataset_obj", ErrMalformed)
	}
	return DslDirPhys{
		HeadDatasetObj: order.Uint64(bonus[dslDirHeadDatasetOffset : dslDirHeadDatasetOffset+8]),
	}, nil
}

// dslDatasetBPOffset is the byte offset of ds_bp within a DSL dataset's
// bonus buffer: 16 leading uint64 fields (dir obj, snapshot chain,
// accounting, guids, flags) precede the embedded BlockPtr.
const dslDatasetBPOffset = 16 * 8

// DslDatasetPhys is the DSL dataset bonus buffer. Only the BlockPtr to the
// dataset's filesystem object set is decoded.
type DslDatasetPhys struct {
	BP BlockPtr
}

// DecodeDslDatasetPhys decodes a DslDatasetPhys from a dnode's bonus buffer.
func DecodeDslDatasetPhys(bonus []byte, order binary.ByteOrder) (DslDatasetPhys, error) {
	if len(bonus) < dslDatasetBPOffset+BlockPtrSize {
		return DslDatasetPhys{}, fmt.Errorf("%w: DSL dataset bonus too short for bp", ErrMalformed)
	}
	bp, err := DecodeBlockPtr(bonus[dslDatasetBPOffset:dslDatasetBPOffset+BlockPtrSize], order)
	if err != nil {
		return DslDatasetPhys{}, fmt.Errorf("DSL dataset bp: %w", err)
	}
	return DslDatasetPhys{BP: bp}, nil
}
