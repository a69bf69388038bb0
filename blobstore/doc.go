// Package blobstore abstracts read access to the immutable artifact pair.
//
// The lookup engine consumes two blobs per country partition: the index
// (read fully at construction) and the data blob (random access only).
// Implementations must be safe for concurrent use; in particular, Blob's
// ReadAt must allow parallel calls, which is what makes the engine safe for
// multiple concurrent callers without serializing reads.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, mmap-backed
//   - MemoryStore: in-memory blobs, for embedded artifacts and tests
package blobstore
