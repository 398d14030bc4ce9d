package tagstore

import "context"

// Backend is a partitioned key/value store for packaged blobs.
//
// Retrieve must return ErrNotFound (possibly wrapped)
// when nothing is stored under the tag,
// and should mark other faults with StorageError.
// A nil error from Store is an acknowledged write.
//
// Consistency among concurrent writers is the Backend's business.
// Every Backend in this module is last-write-wins:
// storing a tag that is already present replaces its blob.
type Backend interface {
	Store(ctx context.Context, partition, tag string, blob []byte) error
	Retrieve(ctx context.Context, partition, tag string) ([]byte, error)
}

// Lister is a Backend that can enumerate the tags in a partition.
type Lister interface {
	Backend

	// List calls f for each tag in the partition in lexicographic order,
	// beginning with the first tag after start.
	//
	// The calls reflect at least the set of tags
	// present at the moment List was called.
	// It is unspecified whether concurrent changes are reflected.
	//
	// If f returns an error,
	// List exits with that error.
	List(ctx context.Context, partition, start string, f func(tag string) error) error
}
