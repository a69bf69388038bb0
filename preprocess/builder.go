// Package preprocess builds the artifact pair from a raw GeoNames postal
// dump.
//
// This is the offline half of the system: it runs once, streams the
// tab-delimited source, and emits the sorted index plus data blob that the
// lookup engine serves read-only. It is never run concurrently with serving
// the artifact it is producing.
package preprocess

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/zipdex/zipdex/codec"
	"github.com/zipdex/zipdex/index"
	"github.com/zipdex/zipdex/model"
	"github.com/zipdex/zipdex/postal"
)

// GeoNames postal dump column layout (tab-delimited).
const (
	colCountry    = 0
	colPostalCode = 1
	colPlaceName  = 2
	colAdmin1     = 4
	colAdmin2     = 6
	colLatitude   = 9
	colLongitude  = 10

	// minColumns is the field count needed to address every used column.
	minColumns = 11
)

// maxLineBytes bounds a single source line. GeoNames rows are well under
// 1 KiB; anything near this limit is garbage input.
const maxLineBytes = 1 << 20

// ctxCheckInterval is how many lines pass between context checks.
const ctxCheckInterval = 10_000

// Stats summarizes one build. Malformed rows are never fatal; they only
// show up here as aggregate counts.
type Stats struct {
	Lines      int // source lines read
	Records    int // records written to the artifact pair
	Dropped    int // rows discarded (wrong country, malformed, out of range)
	Duplicates int // rows discarded because their canonical key was taken
}

type options struct {
	codec  codec.Codec
	logger *slog.Logger
}

// Option configures a Builder.
type Option func(*options)

// WithCodec sets the record codec. It must match the codec the lookup
// engine will be opened with; the default is codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithLogger sets the structured logger for aggregate build reporting.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Builder turns raw delimited source rows into an artifact pair.
type Builder struct {
	codec  codec.Codec
	logger *slog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	o := options{
		codec:  codec.Default,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Builder{codec: o.codec, logger: o.logger}
}

// record pairs a canonical key with its location before serialization.
type record struct {
	key string
	loc model.PostalLocation
}

// Build streams the source r, keeps rows for the given country, and writes
// the index and data artifacts.
//
// The source may be gzip-compressed; that is detected from the stream
// itself. Individual malformed rows are dropped silently and reported in
// Stats. I/O failures are fatal and leave the destinations in an undefined
// partial state — such output fails index validation and must be discarded.
func (b *Builder) Build(ctx context.Context, r io.Reader, country postal.Country, indexW, dataW io.Writer) (Stats, error) {
	var stats Stats

	canonical, ok := postal.ParseCountry(string(country))
	if !ok {
		return stats, fmt.Errorf("preprocess: unsupported country %q", country)
	}
	country = canonical
	if ctx == nil {
		ctx = context.Background()
	}

	src, err := sniffGzip(r)
	if err != nil {
		return stats, fmt.Errorf("preprocess: reading source: %w", err)
	}

	records, stats, err := b.scan(ctx, src, country)
	if err != nil {
		return stats, err
	}

	// The sort key is the canonical code compared byte-wise; this must
	// match the engine's binary search comparison exactly or lookups
	// silently miss entries.
	sort.Slice(records, func(i, j int) bool {
		return records[i].key < records[j].key
	})

	entries := make([]model.IndexEntry, 0, len(records))
	var offset int64
	for _, rec := range records {
		data, err := b.codec.Marshal(rec.loc)
		if err != nil {
			return stats, fmt.Errorf("preprocess: encoding %s: %w", rec.key, err)
		}
		if len(data) > math.MaxUint32 {
			return stats, fmt.Errorf("preprocess: record %s exceeds maximum length", rec.key)
		}
		if _, err := dataW.Write(data); err != nil {
			return stats, fmt.Errorf("preprocess: writing data blob: %w", err)
		}
		entries = append(entries, model.IndexEntry{
			Key:    rec.key,
			Offset: offset,
			Length: uint32(len(data)),
		})
		offset += int64(len(data))
	}

	if err := index.Write(indexW, entries); err != nil {
		return stats, fmt.Errorf("preprocess: writing index: %w", err)
	}

	stats.Records = len(entries)
	b.logger.Info("build completed",
		"country", string(country),
		"lines", stats.Lines,
		"records", stats.Records,
		"dropped", stats.Dropped,
		"duplicates", stats.Duplicates,
	)
	return stats, nil
}

// scan streams the source line by line, never holding the whole input.
func (b *Builder) scan(ctx context.Context, src io.Reader, country postal.Country) ([]record, Stats, error) {
	var (
		stats   Stats
		records []record
		seen    = make(map[string]struct{})
	)

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		stats.Lines++
		if stats.Lines%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}

		rec, ok := parseRow(scanner.Text(), country)
		if !ok {
			stats.Dropped++
			continue
		}
		if _, dup := seen[rec.key]; dup {
			stats.Duplicates++
			continue
		}
		seen[rec.key] = struct{}{}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("preprocess: reading source: %w", err)
	}
	return records, stats, nil
}

// parseRow extracts one record from a tab-delimited source row.
// Any shortfall — missing columns, wrong country, failed normalization,
// unparseable or out-of-range coordinates — drops the row.
func parseRow(line string, country postal.Country) (record, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < minColumns {
		return record{}, false
	}
	if !strings.EqualFold(fields[colCountry], string(country)) {
		return record{}, false
	}

	key, ok := postal.Normalize(fields[colPostalCode], country)
	if !ok {
		return record{}, false
	}

	lat, errLat := strconv.ParseFloat(fields[colLatitude], 64)
	lng, errLng := strconv.ParseFloat(fields[colLongitude], 64)
	if errLat != nil || errLng != nil {
		return record{}, false
	}
	if !(lat >= -90 && lat <= 90) || !(lng >= -180 && lng <= 180) {
		return record{}, false
	}

	return record{
		key: key,
		loc: model.PostalLocation{
			PostalCode:  key,
			CountryCode: string(country),
			PlaceName:   fields[colPlaceName],
			AdminCode1:  fields[colAdmin1],
			AdminCode2:  fields[colAdmin2],
			Latitude:    lat,
			Longitude:   lng,
		},
	}, true
}

// sniffGzip wraps r with a gzip reader when the stream starts with the
// gzip magic. GeoNames distributes its dumps compressed.
func sniffGzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil {
		if err == io.EOF {
			// Empty or single-byte source: valid, just has no rows.
			return br, nil
		}
		return nil, err
	}
	if magic[0] == 0x1f && magic[1] == 0x8b {
		return gzip.NewReader(br)
	}
	return br, nil
}
