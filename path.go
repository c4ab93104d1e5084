package zfs

import (
	"fmt"
	"strings"

	"github.com/gozfs/zfs/internal/objset"
	"github.com/gozfs/zfs/internal/ondisk"
	"github.com/gozfs/zfs/internal/vdev"
)

// splitPath normalises a path per spec §4.9: trim leading/trailing '/',
// split on '/'; an empty result means "the root directory".
func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// descend walks segments from the root directory dnode, resolving each
// through its parent's directory ZAP. It reports the failing segment in
// ErrNotFound, per spec §7's propagation policy.
func (r *Reader) descend(segments []string) (ondisk.DNodePhys, error) {
	cur, err := objset.ResolveObject(r.io, r.fsSet.MetaDNode, r.rootID, r.order)
	if err != nil {
		return ondisk.DNodePhys{}, fmt.Errorf("zfs: resolve root directory: %w", err)
	}

	for _, seg := range segments {
		chunks, err := readMicroZap(r.io, cur, r.order)
		if err != nil {
			return ondisk.DNodePhys{}, fmt.Errorf("zfs: read directory ZAP: %w", err)
		}
		childObj, ok := ondisk.Lookup(chunks, seg)
		if !ok {
			return ondisk.DNodePhys{}, fmt.Errorf("%w: %q", ErrNotFound, seg)
		}
		cur, err = objset.ResolveObject(r.io, r.fsSet.MetaDNode, childObj, r.order)
		if err != nil {
			return ondisk.DNodePhys{}, fmt.Errorf("zfs: resolve %q: %w", seg, err)
		}
	}
	return cur, nil
}

// Ls lists a directory's entries in micro-ZAP order. An empty path lists
// the root directory.
func (r *Reader) Ls(path string) ([]string, error) {
	dn, err := r.descend(splitPath(path))
	if err != nil {
		return nil, err
	}
	if dn.ObjectType != ondisk.ObjectTypeDirectoryContents && dn.ObjectType != ondisk.ObjectTypeMasterNode {
		return nil, fmt.Errorf("%w: path %q", ErrNotADirectory, path)
	}
	chunks, err := readMicroZap(r.io, dn, r.order)
	if err != nil {
		return nil, fmt.Errorf("zfs: ls %q: %w", path, err)
	}
	return ondisk.Names(chunks), nil
}

// ReadFile returns a regular file's contents (spec §4.9): the
// decompressed first direct block, truncated at the first NUL byte.
// Files requiring more than one direct block are out of scope (spec §9).
func (r *Reader) ReadFile(path string) ([]byte, error) {
	dn, err := r.descend(splitPath(path))
	if err != nil {
		return nil, err
	}
	if dn.ObjectType != ondisk.ObjectTypePlainFileContents {
		return nil, fmt.Errorf("%w: path %q", ErrNotAFile, path)
	}

	bp, err := dn.BlockPtr(0, r.order)
	if err != nil {
		return nil, fmt.Errorf("zfs: read_file %q: %w", path, err)
	}
	block, err := vdev.Materialise(r.io, bp)
	if err != nil {
		return nil, fmt.Errorf("zfs: read_file %q: %w", path, err)
	}

	if i := indexNUL(block); i >= 0 {
		return block[:i], nil
	}
	return block, nil
}

func indexNUL(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}
