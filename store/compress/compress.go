// Package compress implements a tagstore backend that compresses and uncompresses blobs
// on their way into and out of a nested backend.
package compress

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bobg/tagstore"
	"github.com/bobg/tagstore/store"
)

var _ tagstore.Lister = &Store{}

// Store compresses blobs with a Compressor before handing them to a nested backend.
// Each stored blob begins with a byte naming its encoding.
// A blob is kept uncompressed when compression would not shrink it.
// Any Store can read what another Store wrote to the same backend,
// whatever its Compressor.
type Store struct {
	s tagstore.Backend
	c Compressor
}

// Compressor is a reversible blob transformation.
type Compressor interface {
	// ID is the header byte marking blobs compressed by this Compressor.
	// Zero is reserved for uncompressed blobs.
	ID() byte
	Compress([]byte) ([]byte, error)
	Uncompress([]byte) ([]byte, error)
}

const raw byte = 0

var compressors = map[byte]Compressor{}

func registerCompressor(c Compressor) {
	compressors[c.ID()] = c
}

// New produces a new Store.
func New(s tagstore.Backend, c Compressor) *Store {
	return &Store{s: s, c: c}
}

// Store compresses blob and stores it in the nested backend.
func (s *Store) Store(ctx context.Context, partition, tag string, blob []byte) error {
	cblob, err := s.c.Compress(blob)
	if err != nil {
		return tagstore.StorageError(err, "compressing blob %s", tag)
	}

	var out []byte
	if len(cblob) < len(blob) {
		out = append([]byte{s.c.ID()}, cblob...)
	} else {
		out = append([]byte{raw}, blob...)
	}
	return s.s.Store(ctx, partition, tag, out)
}

// Retrieve gets a blob from the nested backend and uncompresses it.
func (s *Store) Retrieve(ctx context.Context, partition, tag string) ([]byte, error) {
	blob, err := s.s.Retrieve(ctx, partition, tag)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		return nil, tagstore.StorageError(nil, "blob %s has no header", tag)
	}
	if blob[0] == raw {
		return blob[1:], nil
	}
	c, ok := compressors[blob[0]]
	if !ok {
		return nil, tagstore.StorageError(nil, "blob %s has unknown encoding %d", tag, blob[0])
	}
	out, err := c.Uncompress(blob[1:])
	if err != nil {
		return nil, tagstore.StorageError(err, "uncompressing blob %s", tag)
	}
	return out, nil
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
	store.Register("compress", func(ctx context.Context, conf map[string]interface{}) (tagstore.Backend, error) {
		nested, err := store.Nested(ctx, conf, "nested")
		if err != nil {
			return nil, err
		}
		compressor, _ := conf["compressor"].(string)
		switch compressor {
		case "", "zstd":
			return New(nested, Zstd{}), nil

		case "flate":
			level, ok := store.Int(conf, "level")
			if !ok {
				level = -1
			}
			return New(nested, Flate{Level: level}), nil

		default:
			return nil, fmt.Errorf(`unknown compressor "%s"`, compressor)
		}
	})
}
