package zipdex

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/umahmood/haversine"

	"github.com/zipdex/zipdex/blobstore"
	"github.com/zipdex/zipdex/codec"
	"github.com/zipdex/zipdex/index"
	"github.com/zipdex/zipdex/model"
	"github.com/zipdex/zipdex/postal"
)

// IndexBlobName returns the blob name of a country's index artifact.
func IndexBlobName(country postal.Country) string {
	return string(country) + ".idx"
}

// DataBlobName returns the blob name of a country's data artifact.
func DataBlobName(country postal.Country) string {
	return string(country) + ".dat"
}

// partition is one country's artifact pair: the index held fully in memory
// and a random-access handle to the data blob.
type partition struct {
	country postal.Country
	index   *index.Index
	blob    blobstore.Blob
}

// Engine is the read-only lookup engine over one or more country partitions.
//
// All state is immutable after Open, so an Engine is safe for concurrent
// use. Close releases the data blob handles exactly once.
type Engine struct {
	partitions []partition
	codec      codec.Codec
	logger     *Logger
}

// CodeCountry pairs a raw postal code with its declared country for the
// country-qualified batch lookup.
type CodeCountry struct {
	Code    string
	Country postal.Country
}

// Open constructs an Engine from the artifact pairs in store.
//
// For every configured country (default: all supported) both artifacts must
// exist and the index must decode cleanly; otherwise Open fails — an engine
// missing an artifact cannot serve any request for it. The data blobs stay
// open until Close.
func Open(store blobstore.BlobStore, opts ...Option) (*Engine, error) {
	o := options{
		codec:     codec.Default,
		logger:    NoopLogger(),
		countries: postal.Supported(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.countries) == 0 {
		return nil, ErrNoCountries
	}

	e := &Engine{
		codec:  o.codec,
		logger: o.logger,
	}

	for _, country := range o.countries {
		p, err := openPartition(store, country)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.partitions = append(e.partitions, p)
	}

	var names []string
	for _, p := range e.partitions {
		names = append(names, string(p.country))
	}
	e.logger.LogOpen(names, e.Len())
	return e, nil
}

func openPartition(store blobstore.BlobStore, country postal.Country) (partition, error) {
	canonical, ok := postal.ParseCountry(string(country))
	if !ok {
		return partition{}, fmt.Errorf("zipdex: unsupported country %q", country)
	}
	country = canonical

	idxBlob, err := store.Open(IndexBlobName(country))
	if err != nil {
		return partition{}, fmt.Errorf("zipdex: opening %s index: %w", country, err)
	}
	idx, err := decodeIndex(idxBlob)
	closeErr := idxBlob.Close()
	if err != nil {
		return partition{}, fmt.Errorf("zipdex: reading %s index: %w", country, err)
	}
	if closeErr != nil {
		return partition{}, fmt.Errorf("zipdex: closing %s index: %w", country, closeErr)
	}

	dataBlob, err := store.Open(DataBlobName(country))
	if err != nil {
		return partition{}, fmt.Errorf("zipdex: opening %s data blob: %w", country, err)
	}

	return partition{country: country, index: idx, blob: dataBlob}, nil
}

// decodeIndex reads the whole index blob and decodes it. Mappable blobs are
// decoded in place without copying.
func decodeIndex(blob blobstore.Blob) (*index.Index, error) {
	if m, ok := blob.(blobstore.Mappable); ok {
		data, err := m.Bytes()
		if err == nil {
			return index.Decode(data)
		}
	}
	data, err := io.ReadAll(io.NewSectionReader(blob, 0, blob.Size()))
	if err != nil {
		return nil, err
	}
	return index.Decode(data)
}

// Close releases every partition's data blob. It is idempotent; lookups on
// a closed engine simply report absence.
func (e *Engine) Close() error {
	var firstErr error
	for _, p := range e.partitions {
		if err := p.blob.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.partitions = nil
	return firstErr
}

// Len returns the total number of indexed postal codes.
func (e *Engine) Len() int {
	total := 0
	for _, p := range e.partitions {
		total += p.index.Len()
	}
	return total
}

// Countries returns the countries this engine serves, in partition order.
func (e *Engine) Countries() []postal.Country {
	countries := make([]postal.Country, 0, len(e.partitions))
	for _, p := range e.partitions {
		countries = append(countries, p.country)
	}
	return countries
}

// Lookup resolves a postal code, auto-detecting the country from its shape.
// Invalid input, unknown codes and undecodable records all report false.
func (e *Engine) Lookup(code string) (model.PostalLocation, bool) {
	canonical, country, ok := postal.NormalizeAny(code)
	if !ok {
		return model.PostalLocation{}, false
	}
	return e.search(canonical, country)
}

// LookupCountry resolves a postal code for a declared country, skipping
// auto-detection. The country token is matched case-insensitively.
func (e *Engine) LookupCountry(code string, country postal.Country) (model.PostalLocation, bool) {
	canonical, ok := postal.Normalize(code, country)
	if !ok {
		return model.PostalLocation{}, false
	}
	return e.search(canonical, country)
}

// LookupBatch resolves each code independently. The result is keyed by the
// caller's original input string — not the canonical form — so results can
// be correlated back; absent results map to nil.
func (e *Engine) LookupBatch(codes []string) map[string]*model.PostalLocation {
	results := make(map[string]*model.PostalLocation, len(codes))
	for _, code := range codes {
		if loc, ok := e.Lookup(code); ok {
			results[code] = &loc
		} else {
			results[code] = nil
		}
	}
	return results
}

// LookupBatchCountry is the country-qualified batch variant, keyed by the
// original code string of each pair.
func (e *Engine) LookupBatchCountry(pairs []CodeCountry) map[string]*model.PostalLocation {
	results := make(map[string]*model.PostalLocation, len(pairs))
	for _, pair := range pairs {
		if loc, ok := e.LookupCountry(pair.Code, pair.Country); ok {
			results[pair.Code] = &loc
		} else {
			results[pair.Code] = nil
		}
	}
	return results
}

// radiusCandidate carries the distance computed during the filter pass so
// the final sort does not redo the haversine math.
type radiusCandidate struct {
	loc model.PostalLocation
	km  float64
}

// FindWithinRadius returns every location within radiusKM kilometers of the
// query point, ordered ascending by great-circle distance. Ties keep scan
// order. Pass postal.Unknown to search all partitions; a concrete country
// restricts the scan (matched case-insensitively).
//
// This is a linear scan over every indexed record — correctness over speed.
func (e *Engine) FindWithinRadius(lat, lng, radiusKM float64, country postal.Country) []model.PostalLocation {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) || radiusKM < 0 {
		return nil
	}

	origin := haversine.Coord{Lat: lat, Lon: lng}
	var candidates []radiusCandidate

	for _, p := range e.partitions {
		if country != postal.Unknown && !strings.EqualFold(string(country), string(p.country)) {
			continue
		}
		for entry := range p.index.Scan() {
			loc, ok := e.readRecord(p, entry)
			if !ok {
				continue
			}
			_, km := haversine.Distance(origin, haversine.Coord{Lat: loc.Latitude, Lon: loc.Longitude})
			if km <= radiusKM {
				candidates = append(candidates, radiusCandidate{loc: loc, km: km})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].km < candidates[j].km
	})

	results := make([]model.PostalLocation, len(candidates))
	for i, c := range candidates {
		results[i] = c.loc
	}
	return results
}

// search runs the binary search on the partition for country and
// materializes the matched record.
func (e *Engine) search(canonical string, country postal.Country) (model.PostalLocation, bool) {
	for _, p := range e.partitions {
		if !strings.EqualFold(string(country), string(p.country)) {
			continue
		}
		entry, ok := p.index.Search(canonical)
		if !ok {
			return model.PostalLocation{}, false
		}
		return e.readRecord(p, entry)
	}
	return model.PostalLocation{}, false
}

// readRecord reads exactly entry.Length bytes at entry.Offset and decodes
// them. A short read or decode failure is locally unrecoverable corruption
// and is treated as "not found", never propagated.
func (e *Engine) readRecord(p partition, entry model.IndexEntry) (model.PostalLocation, bool) {
	buf := make([]byte, entry.Length)
	n, err := p.blob.ReadAt(buf, entry.Offset)
	if n != int(entry.Length) {
		e.logger.LogCorruptRecord(entry.Key, err)
		return model.PostalLocation{}, false
	}

	var loc model.PostalLocation
	if err := e.codec.Unmarshal(buf, &loc); err != nil {
		e.logger.LogCorruptRecord(entry.Key, err)
		return model.PostalLocation{}, false
	}
	return loc, true
}
