package zfs

import (
	"errors"

	"github.com/gozfs/zfs/internal/blockio"
	"github.com/gozfs/zfs/internal/ondisk"
)

// Error kinds exposed to callers (spec §7). The internal packages raise
// the ondisk/blockio sentinels directly; this package only adds the
// kinds specific to path resolution and re-exports the rest so a caller
// need import nothing but this package to match with errors.Is.
var (
	// ErrNotFound is returned when a path segment has no entry in its
	// parent directory's ZAP.
	ErrNotFound = errors.New("path not found")
	// ErrNotAFile is returned when read_file's terminal dnode is not a
	// regular file.
	ErrNotAFile = errors.New("not a regular file")
	// ErrNotADirectory is returned when ls's terminal dnode is not a
	// directory.
	ErrNotADirectory = errors.New("not a directory")

	// ErrIO is a backing-source read failure.
	ErrIO = blockio.ErrIO
	// ErrNoValidUberblock means no uberblock ring slot decoded with a
	// recognised magic.
	ErrNoValidUberblock = ondisk.ErrNoValidUberblock
	// ErrMalformed means a record was shorter than its declared layout, or
	// carried an internally inconsistent field.
	ErrMalformed = ondisk.ErrMalformed
	// ErrUnsupported means the pool exercises an on-disk feature this
	// reader deliberately does not implement (spec §1 Non-goals): non-LZJB
	// compression and gang blocks. Fat ZAP directories are not detected:
	// the ZAP block header is not inspected, so such a block is decoded as
	// a micro-ZAP.
	ErrUnsupported = ondisk.ErrUnsupported
	// ErrCorruptCompression means an LZJB back-reference predated the
	// output start.
	ErrCorruptCompression = ondisk.ErrCorruptCompression
	// ErrObjectMissing means a dnode resolution walked off the end of an
	// object set's indirect-block tree.
	ErrObjectMissing = ondisk.ErrObjectMissing
)
