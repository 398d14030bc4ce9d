// Package lru implements a tagstore backend that acts as a least-recently-used cache for a nested backend.
package lru

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/bobg/tagstore"
	"github.com/bobg/tagstore/store"
)

var _ tagstore.Lister = &Store{}

// Store implements a memory-based least-recently-used cache for a backend.
// Writes pass through to the underlying backend.
// The cache is only coherent if every write to the underlying backend goes through it.
type Store struct {
	c *lru.Cache // key(partition, tag) -> []byte
	s tagstore.Backend
}

// New produces a new Store backed by s and caching up to size blobs.
func New(s tagstore.Backend, size int) (*Store, error) {
	c, err := lru.New(size)
	return &Store{s: s, c: c}, err
}

type key struct {
	partition, tag string
}

// Retrieve gets the blob stored under tag in partition.
func (s *Store) Retrieve(ctx context.Context, partition, tag string) ([]byte, error) {
	k := key{partition: partition, tag: tag}
	if got, ok := s.c.Get(k); ok {
		return append([]byte(nil), got.([]byte)...), nil
	}
	blob, err := s.s.Retrieve(ctx, partition, tag)
	if err != nil {
		return nil, err
	}
	s.c.Add(k, append([]byte(nil), blob...))
	return blob, nil
}

// Store stores blob in the nested backend and the cache.
func (s *Store) Store(ctx context.Context, partition, tag string, blob []byte) error {
	k := key{partition: partition, tag: tag}
	if err := s.s.Store(ctx, partition, tag, blob); err != nil {
		s.c.Remove(k)
		return err
	}
	s.c.Add(k, append([]byte(nil), blob...))
	return nil
}

// List delegates to the nested backend,
// which must be a tagstore.Lister.
func (s *Store) List(ctx context.Context, partition, start string, f func(string) error) error {
	l, ok := s.s.(tagstore.Lister)
	if !ok {
		return errors.Errorf("nested %T backend cannot list", s.s)
	}
	return l.List(ctx, partition, start, f)
}

func init() {
	store.Register("lru", func(ctx context.Context, conf map[string]interface{}) (tagstore.Backend, error) {
		size, ok := store.Int(conf, "size")
		if !ok {
			return nil, errors.New(`missing "size" parameter`)
		}
		nested, err := store.Nested(ctx, conf, "nested")
		if err != nil {
			return nil, err
		}
		return New(nested, size)
	})
}
