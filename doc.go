// Package tagstore is a client protocol for storing and retrieving records
// under a tag.
//
// A record is a bag of named fields.
// Four of those fields are metadata:
// owner,
// author,
// audience,
// and antecedent.
// The rest are data.
//
// Storing a record is a three-stage pipeline.
// First the metadata is captured into an Options value
// and the data fields are canonicalized into a Specification
// (field names sorted, metadata stripped).
// Next an Identity strategy packages the Specification,
// with the help of a Security strategy,
// into an opaque blob plus the tag under which it will live.
// Finally a Backend stores the blob under that tag
// in a named partition.
// Retrieval runs the pipeline in reverse,
// checks that the blob belongs under the requested tag,
// and restores the attribution metadata
// (owner, author, and timestamp)
// onto the reconstructed record.
//
// There are two ways to compute a tag.
// ContentHash derives it from a hash of the canonical Specification,
// so it never depends on who stored the data or when.
// SignatureTag takes it from the subject claim of a signed envelope
// (see the sign subpackage),
// which binds the tag to a signature
// that cannot be forged without the signer's key.
//
// Security strategies decide what the blob looks like.
// Plain is lossless JSON with no authenticity guarantee.
// The sign subpackage provides signing and verification.
// Encrypt is a reserved slot that reports ErrNotImplemented.
//
// Backends live under the store subpackage:
// memory, files, sqlite, postgresql, redis, Google Cloud Storage, Bigtable, and gRPC,
// plus decorators for caching, compression, logging, and replication.
//
// A Collection binds one Identity, one Security, one Backend,
// and a partition name.
// It holds no other state,
// so it is safe to share among goroutines.
package tagstore
