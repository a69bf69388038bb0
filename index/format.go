package index

import "errors"

const (
	// MagicNumber identifies zipdex index files (ASCII: "ZDX1").
	MagicNumber = 0x5A445831
	// Version is the current file format version (v1.0.0).
	Version = 0x00010000

	// headerSize is magic (4) + version (4) + entry count (8).
	headerSize = 16
	// footerSize is the CRC32 trailer.
	footerSize = 4
)

var (
	ErrInvalidMagic     = errors.New("index: invalid magic number")
	ErrInvalidVersion   = errors.New("index: unsupported version")
	ErrTruncated        = errors.New("index: truncated file")
	ErrChecksumMismatch = errors.New("index: checksum mismatch")
	ErrOutOfOrder       = errors.New("index: entries not in ordinal key order")
)
