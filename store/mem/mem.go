// Package mem implements an in-memory tagstore backend.
package mem

import (
	"context"
	"sort"
	"sync"

	"github.com/bobg/tagstore"
	"github.com/bobg/tagstore/store"
)

var _ tagstore.Lister = &Store{}

// Store is a memory-based backend.
// Blobs are copied on the way in and out,
// so callers may reuse their slices.
type Store struct {
	mu         sync.RWMutex
	partitions map[string]map[string][]byte
}

// New produces a new Store.
func New() *Store {
	return &Store{partitions: make(map[string]map[string][]byte)}
}

// Store stores blob under tag in partition,
// replacing any blob already there.
func (s *Store) Store(_ context.Context, partition, tag string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partitions[partition]
	if !ok {
		p = make(map[string][]byte)
		s.partitions[partition] = p
	}
	p[tag] = append([]byte(nil), blob...)
	return nil
}

// Retrieve gets the blob stored under tag in partition.
func (s *Store) Retrieve(_ context.Context, partition, tag string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.partitions[partition][tag]; ok {
		return append([]byte(nil), b...), nil
	}
	return nil, tagstore.ErrNotFound
}

// List produces the tags in partition, in lexicographic order.
func (s *Store) List(ctx context.Context, partition, start string, f func(string) error) error {
	s.mu.RLock()
	tags := make([]string, 0, len(s.partitions[partition]))
	for tag := range s.partitions[partition] {
		if tag > start {
			tags = append(tags, tag)
		}
	}
	s.mu.RUnlock()

	sort.Strings(tags)
	for _, tag := range tags {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f(tag); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	store.Register("mem", func(context.Context, map[string]interface{}) (tagstore.Backend, error) {
		return New(), nil
	})
}
