// Package index implements the binary search index over the data blob.
//
// On disk an index is a 16-byte header (magic, version, entry count),
// `count` entries and a CRC32-IEEE trailer computed over header and entries.
// Each entry is a uvarint length-prefixed key followed by the record's byte
// offset (uint64 LE) and length (uint32 LE) in the data blob.
//
// The checksum makes partially written files from an aborted build unusable:
// they fail to decode instead of silently serving wrong extents.
package index

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"iter"
	"sort"

	"github.com/zipdex/zipdex/model"
)

// crc32Table is the IEEE polynomial table used for the file trailer.
// CRC32 detects accidental corruption; it is not tamper protection.
var crc32Table = crc32.MakeTable(crc32.IEEE)

// Index is an immutable, fully in-memory ordered sequence of index entries.
//
// Entries are sorted by key using byte-wise ordinal comparison, which is
// what makes Search correct. An Index is read-only after construction and
// safe for concurrent use.
type Index struct {
	entries []model.IndexEntry
}

// New builds an Index from entries already sorted by key in byte-wise
// ordinal order with no duplicate keys. Unsorted input is rejected.
func New(entries []model.IndexEntry) (*Index, error) {
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Key >= entries[i].Key {
			return nil, ErrOutOfOrder
		}
	}
	return &Index{entries: entries}, nil
}

// Len returns the number of entries in the index.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Search performs a binary search for the exact canonical key.
// Absent keys, including keys sorting before the first or after the last
// entry, report false; no prefix matching is attempted.
func (idx *Index) Search(key string) (model.IndexEntry, bool) {
	// Go string comparison is byte-wise ordinal, matching the sort order
	// written by the preprocessor.
	i := sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].Key >= key
	})
	if i < len(idx.entries) && idx.entries[i].Key == key {
		return idx.entries[i], true
	}
	return model.IndexEntry{}, false
}

// Scan returns an iterator over all entries in key order.
func (idx *Index) Scan() iter.Seq[model.IndexEntry] {
	return func(yield func(model.IndexEntry) bool) {
		for _, e := range idx.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Write serializes entries to w in the on-disk format. Entries must already
// be sorted by key with no duplicates; Write refuses out-of-order input
// rather than producing an artifact binary search cannot serve.
func Write(w io.Writer, entries []model.IndexEntry) error {
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Key >= entries[i].Key {
			return ErrOutOfOrder
		}
	}

	buf := make([]byte, 0, headerSize+len(entries)*24)
	buf = binary.LittleEndian.AppendUint32(buf, MagicNumber)
	buf = binary.LittleEndian.AppendUint32(buf, Version)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(entries)))

	for _, e := range entries {
		buf = binary.AppendUvarint(buf, uint64(len(e.Key)))
		buf = append(buf, e.Key...)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(e.Offset))
		buf = binary.LittleEndian.AppendUint32(buf, e.Length)
	}

	buf = binary.LittleEndian.AppendUint32(buf, crc32.Checksum(buf, crc32Table))

	_, err := w.Write(buf)
	return err
}

// Read consumes the whole stream and decodes it as an index file.
func Read(r io.Reader) (*Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode parses and validates a complete index file image.
func Decode(data []byte) (*Index, error) {
	if len(data) < headerSize+footerSize {
		return nil, ErrTruncated
	}

	body, trailer := data[:len(data)-footerSize], data[len(data)-footerSize:]
	if binary.LittleEndian.Uint32(trailer) != crc32.Checksum(body, crc32Table) {
		return nil, ErrChecksumMismatch
	}

	if binary.LittleEndian.Uint32(body) != MagicNumber {
		return nil, ErrInvalidMagic
	}
	if binary.LittleEndian.Uint32(body[4:]) != Version {
		return nil, ErrInvalidVersion
	}
	count := binary.LittleEndian.Uint64(body[8:])
	body = body[headerSize:]

	entries := make([]model.IndexEntry, 0, count)
	for range count {
		kLen, n := binary.Uvarint(body)
		if n <= 0 {
			return nil, ErrTruncated
		}
		body = body[n:]
		if kLen > uint64(len(body)) || uint64(len(body))-kLen < 12 {
			return nil, ErrTruncated
		}
		key := string(body[:kLen])
		body = body[kLen:]

		offset := binary.LittleEndian.Uint64(body)
		length := binary.LittleEndian.Uint32(body[8:])
		body = body[12:]

		entries = append(entries, model.IndexEntry{
			Key:    key,
			Offset: int64(offset),
			Length: length,
		})
	}
	if len(body) != 0 {
		return nil, ErrTruncated
	}

	return New(entries)
}
