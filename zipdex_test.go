package zipdex_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zipdex/zipdex"
	"github.com/zipdex/zipdex/blobstore"
	"github.com/zipdex/zipdex/model"
	"github.com/zipdex/zipdex/postal"
	"github.com/zipdex/zipdex/preprocess"
)

const sourceTSV = "" +
	"US\t10001\tNew York\tNew York\tNY\tNew York\t061\t\t\t40.7505\t-73.9971\t4\n" +
	"US\t90210\tBeverly Hills\tCalifornia\tCA\tLos Angeles\t037\t\t\t34.0901\t-118.4065\t4\n" +
	"US\t99501\tAnchorage\tAlaska\tAK\tAnchorage\t020\t\t\t61.2181\t-149.9003\t4\n" +
	"CA\tK1A 0B1\tOttawa\tOntario\tON\t\t\t\t\t45.4235\t-75.6979\t6\n" +
	"CA\tM5V 3A8\tToronto\tOntario\tON\t\t\t\t\t43.6426\t-79.3871\t6\n"

// newStore builds both country partitions from sourceTSV into a MemoryStore.
func newStore(t *testing.T) *blobstore.MemoryStore {
	t.Helper()

	store := blobstore.NewMemoryStore()
	builder := preprocess.NewBuilder()
	for _, country := range postal.Supported() {
		var indexBuf, dataBuf bytes.Buffer
		_, err := builder.Build(context.Background(), bytes.NewReader([]byte(sourceTSV)), country, &indexBuf, &dataBuf)
		require.NoError(t, err)
		store.Put(zipdex.IndexBlobName(country), indexBuf.Bytes())
		store.Put(zipdex.DataBlobName(country), dataBuf.Bytes())
	}
	return store
}

func newEngine(t *testing.T) *zipdex.Engine {
	t.Helper()
	engine, err := zipdex.Open(newStore(t))
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestLookupAutoDetect(t *testing.T) {
	engine := newEngine(t)

	assert.Equal(t, 5, engine.Len())
	assert.Equal(t, []postal.Country{postal.US, postal.CA}, engine.Countries())

	loc, ok := engine.Lookup("90210")
	require.True(t, ok)
	assert.Equal(t, model.PostalLocation{
		PostalCode:  "90210",
		CountryCode: "US",
		PlaceName:   "Beverly Hills",
		AdminCode1:  "CA",
		AdminCode2:  "037",
		Latitude:    34.0901,
		Longitude:   -118.4065,
	}, loc)

	// ZIP+4 resolves to the base ZIP record.
	loc, ok = engine.Lookup("90210-1234")
	require.True(t, ok)
	assert.Equal(t, "Beverly Hills", loc.PlaceName)

	// Canadian codes are detected and canonicalized before the search.
	loc, ok = engine.Lookup("k1a 0b1")
	require.True(t, ok)
	assert.Equal(t, "Ottawa", loc.PlaceName)
	assert.Equal(t, "K1A0B1", loc.PostalCode)

	// Absent key and invalid shapes report false without error.
	_, ok = engine.Lookup("99999")
	assert.False(t, ok)
	_, ok = engine.Lookup("invalid")
	assert.False(t, ok)
	_, ok = engine.Lookup("")
	assert.False(t, ok)
}

func TestLookupCountry(t *testing.T) {
	engine := newEngine(t)

	loc, ok := engine.LookupCountry("10001", postal.US)
	require.True(t, ok)
	assert.Equal(t, "New York", loc.PlaceName)

	// Country token is case-insensitive.
	loc, ok = engine.LookupCountry("m5v 3a8", postal.Country("ca"))
	require.True(t, ok)
	assert.Equal(t, "Toronto", loc.PlaceName)

	// A Canadian code does not normalize under US rules.
	_, ok = engine.LookupCountry("K1A 0B1", postal.US)
	assert.False(t, ok)

	_, ok = engine.LookupCountry("90210", postal.Country("DE"))
	assert.False(t, ok)
}

func TestLookupBatch(t *testing.T) {
	engine := newEngine(t)

	inputs := []string{"90210-1234", "k1a 0b1", "99999", "not a code", "90210-1234"}
	results := engine.LookupBatch(inputs)

	// One entry per distinct input, keyed by the original string.
	require.Len(t, results, 4)

	require.Contains(t, results, "90210-1234")
	require.NotNil(t, results["90210-1234"])
	assert.Equal(t, "Beverly Hills", results["90210-1234"].PlaceName)

	require.NotNil(t, results["k1a 0b1"])
	assert.Equal(t, "Ottawa", results["k1a 0b1"].PlaceName)

	require.Contains(t, results, "99999")
	assert.Nil(t, results["99999"])
	require.Contains(t, results, "not a code")
	assert.Nil(t, results["not a code"])
}

func TestLookupBatchCountry(t *testing.T) {
	engine := newEngine(t)

	results := engine.LookupBatchCountry([]zipdex.CodeCountry{
		{Code: "10001", Country: postal.US},
		{Code: "M5V3A8", Country: postal.CA},
		{Code: "10001", Country: postal.CA}, // wrong country for the shape
	})

	require.Len(t, results, 2)
	require.NotNil(t, results["M5V3A8"])
	assert.Equal(t, "Toronto", results["M5V3A8"].PlaceName)
	// The duplicate input "10001" collapses to one entry; the later
	// country-qualified miss overwrote the hit.
	assert.Nil(t, results["10001"])
}

func TestFindWithinRadius(t *testing.T) {
	engine := newEngine(t)

	// Query at the New York record's own coordinates.
	results := engine.FindWithinRadius(40.7505, -73.9971, 6000, postal.Unknown)
	require.Len(t, results, 5)

	var codes []string
	for _, loc := range results {
		codes = append(codes, loc.PostalCode)
	}
	// Ascending great-circle distance from the query point.
	assert.Equal(t, []string{"10001", "K1A0B1", "M5V3A8", "90210", "99501"}, codes)
}

func TestFindWithinRadiusFiltersByCountry(t *testing.T) {
	engine := newEngine(t)

	results := engine.FindWithinRadius(40.7505, -73.9971, 1000, postal.Country("ca"))
	require.Len(t, results, 2)
	assert.Equal(t, "K1A0B1", results[0].PostalCode)
	assert.Equal(t, "M5V3A8", results[1].PostalCode)

	results = engine.FindWithinRadius(40.7505, -73.9971, 1000, postal.US)
	require.Len(t, results, 1)
	assert.Equal(t, "10001", results[0].PostalCode)
}

func TestFindWithinRadiusBounds(t *testing.T) {
	engine := newEngine(t)

	// Nothing within 1 km of the middle of the Atlantic.
	assert.Empty(t, engine.FindWithinRadius(30, -45, 1, postal.Unknown))

	// Degenerate inputs return nothing rather than scanning.
	assert.Empty(t, engine.FindWithinRadius(40.75, -73.99, -1, postal.Unknown))

	// Every result is within the radius.
	for _, loc := range engine.FindWithinRadius(45.0, -75.0, 700, postal.Unknown) {
		assert.NotEqual(t, "99501", loc.PostalCode)
	}
}

func TestOpenMissingArtifact(t *testing.T) {
	store := blobstore.NewMemoryStore()
	var indexBuf, dataBuf bytes.Buffer
	_, err := preprocess.NewBuilder().Build(context.Background(), bytes.NewReader([]byte(sourceTSV)), postal.US, &indexBuf, &dataBuf)
	require.NoError(t, err)
	store.Put(zipdex.IndexBlobName(postal.US), indexBuf.Bytes())
	store.Put(zipdex.DataBlobName(postal.US), dataBuf.Bytes())

	// Default configuration wants CA too: construction must fail outright.
	_, err = zipdex.Open(store)
	assert.Error(t, err)

	// Restricting to the present partition succeeds.
	engine, err := zipdex.Open(store, zipdex.WithCountries(postal.US))
	require.NoError(t, err)
	defer engine.Close()

	_, ok := engine.Lookup("90210")
	assert.True(t, ok)
	// No CA partition: the code is valid but nothing serves it.
	_, ok = engine.Lookup("K1A 0B1")
	assert.False(t, ok)
}

func TestOpenRejectsCorruptIndex(t *testing.T) {
	store := newStore(t)

	blob, err := store.Open(zipdex.IndexBlobName(postal.US))
	require.NoError(t, err)
	data, err := blob.(blobstore.Mappable).Bytes()
	require.NoError(t, err)

	corrupted := append([]byte{}, data...)
	corrupted[len(corrupted)/2] ^= 0xFF
	store.Put(zipdex.IndexBlobName(postal.US), corrupted)

	_, err = zipdex.Open(store)
	assert.Error(t, err)
}

func TestOpenNoCountries(t *testing.T) {
	_, err := zipdex.Open(newStore(t), zipdex.WithCountries())
	assert.ErrorIs(t, err, zipdex.ErrNoCountries)
}

func TestCorruptRecordTreatedAsNotFound(t *testing.T) {
	store := newStore(t)

	blob, err := store.Open(zipdex.DataBlobName(postal.US))
	require.NoError(t, err)
	data, err := blob.(blobstore.Mappable).Bytes()
	require.NoError(t, err)

	// Clobber the first record (the lowest key, "10001") with garbage.
	corrupted := append([]byte{}, data...)
	for i := 0; i < 8; i++ {
		corrupted[i] = 0xFF
	}
	store.Put(zipdex.DataBlobName(postal.US), corrupted)

	engine, err := zipdex.Open(store)
	require.NoError(t, err)
	defer engine.Close()

	// The corrupt record reads as absent, not as an error.
	_, ok := engine.Lookup("10001")
	assert.False(t, ok)

	// Other records are untouched, and a batch is not aborted.
	results := engine.LookupBatch([]string{"10001", "90210"})
	assert.Nil(t, results["10001"])
	require.NotNil(t, results["90210"])
	assert.Equal(t, "Beverly Hills", results["90210"].PlaceName)
}

func TestCloseIdempotent(t *testing.T) {
	engine, err := zipdex.Open(newStore(t))
	require.NoError(t, err)

	require.NoError(t, engine.Close())
	require.NoError(t, engine.Close())

	// A closed engine serves nothing, without panicking.
	_, ok := engine.Lookup("90210")
	assert.False(t, ok)
	assert.Equal(t, 0, engine.Len())
}

func TestConcurrentLookups(t *testing.T) {
	engine := newEngine(t)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if loc, ok := engine.Lookup("90210"); assert.True(t, ok) {
					assert.Equal(t, "Beverly Hills", loc.PlaceName)
				}
				_, ok := engine.Lookup("99999")
				assert.False(t, ok)
				engine.FindWithinRadius(40.75, -73.99, 700, postal.Unknown)
			}
		}()
	}
	wg.Wait()
}

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

func TestLocalStoreEndToEnd(t *testing.T) {
	dir := t.TempDir()
	builder := preprocess.NewBuilder()
	for _, country := range postal.Supported() {
		var indexBuf, dataBuf bytes.Buffer
		_, err := builder.Build(context.Background(), bytes.NewReader([]byte(sourceTSV)), country, &indexBuf, &dataBuf)
		require.NoError(t, err)
		writeFile(t, dir, zipdex.IndexBlobName(country), indexBuf.Bytes())
		writeFile(t, dir, zipdex.DataBlobName(country), dataBuf.Bytes())
	}

	engine, err := zipdex.Open(blobstore.NewLocalStore(dir))
	require.NoError(t, err)
	defer engine.Close()

	loc, ok := engine.Lookup("M5V 3A8")
	require.True(t, ok)
	assert.Equal(t, "Toronto", loc.PlaceName)
}
