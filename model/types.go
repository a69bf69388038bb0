package model

import "fmt"

// PostalLocation is one resolved postal-code record.
//
// Instances are produced by the preprocessor from a single source row and are
// immutable afterwards: the engine only ever reads them back out of the data
// blob. PostalCode always holds the canonical form for CountryCode.
type PostalLocation struct {
	PostalCode  string
	CountryCode string
	PlaceName   string
	AdminCode1  string // state / province
	AdminCode2  string // county / district
	Latitude    float64
	Longitude   float64
}

// String returns a short human-readable representation of the location.
func (l PostalLocation) String() string {
	return fmt.Sprintf("%s %s (%s) %.4f,%.4f", l.CountryCode, l.PostalCode, l.PlaceName, l.Latitude, l.Longitude)
}

// IndexEntry locates one serialized PostalLocation inside the data blob.
//
// Entries are kept sorted by Key using byte-wise ordinal comparison; that
// ordering is the precondition for the engine's binary search. The index is
// the sole authority on record extents: the blob itself carries no
// delimiters.
type IndexEntry struct {
	Key    string
	Offset int64
	Length uint32
}
