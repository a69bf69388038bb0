// Package zipdex resolves US ZIP codes and Canadian postal codes to
// geographic coordinates and place metadata.
//
// The dataset is sourced once from a GeoNames postal dump by the offline
// preprocessor (package preprocess, or the cmd/zipdex tool) and served
// read-only afterwards. Each country partition is an artifact pair: a
// sorted binary index (loaded fully into memory) and a data blob of
// serialized records (random access only, never loaded wholesale), giving
// O(log n) lookups.
//
// # Quick Start
//
//	store := blobstore.NewLocalStore("./artifacts")
//	engine, err := zipdex.Open(store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	if loc, ok := engine.Lookup("K1A 0B1"); ok {
//	    fmt.Printf("%s: %f, %f\n", loc.PlaceName, loc.Latitude, loc.Longitude)
//	}
//
// Lookups auto-detect the country from the code's shape; LookupCountry
// skips detection. Invalid input, unknown codes and locally corrupt records
// all report absence, never an error. An Engine is safe for concurrent use:
// its index is immutable and blob reads go through io.ReaderAt.
package zipdex
