// Package logging implements a tagstore backend that delegates everything to a nested backend,
// logging operations as they happen.
package logging

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/bobg/tagstore"
	"github.com/bobg/tagstore/store"
)

var _ tagstore.Lister = &Store{}

// Store logs each operation on a nested backend.
// Every operation gets a fresh id,
// so lines from concurrent calls can be told apart.
type Store struct {
	s      tagstore.Backend
	logger *log.Logger
}

// New produces a new Store logging to the standard logger.
func New(s tagstore.Backend) *Store {
	return &Store{s: s, logger: log.Default()}
}

// NewWithLogger produces a new Store logging to logger.
func NewWithLogger(s tagstore.Backend, logger *log.Logger) *Store {
	return &Store{s: s, logger: logger}
}

func (s *Store) Store(ctx context.Context, partition, tag string, blob []byte) error {
	id := uuid.NewString()
	err := s.s.Store(ctx, partition, tag, blob)
	if err != nil {
		s.logger.Printf("[%s] ERROR Store %s/%s: %s", id, partition, tag, err)
	} else {
		s.logger.Printf("[%s] Store %s/%s (%d bytes)", id, partition, tag, len(blob))
	}
	return err
}

func (s *Store) Retrieve(ctx context.Context, partition, tag string) ([]byte, error) {
	id := uuid.NewString()
	blob, err := s.s.Retrieve(ctx, partition, tag)
	if err != nil {
		s.logger.Printf("[%s] ERROR Retrieve %s/%s: %s", id, partition, tag, err)
	} else {
		s.logger.Printf("[%s] Retrieve %s/%s (%d bytes)", id, partition, tag, len(blob))
	}
	return blob, err
}

func (s *Store) List(ctx context.Context, partition, start string, f func(string) error) error {
	l, ok := s.s.(tagstore.Lister)
	if !ok {
		return errors.Errorf("nested %T backend cannot list", s.s)
	}
	id := uuid.NewString()
	s.logger.Printf("[%s] List %s, start=%q", id, partition, start)
	return l.List(ctx, partition, start, func(tag string) error {
		err := f(tag)
		if err != nil {
			s.logger.Printf("[%s]   ERROR in List at %s: %s", id, tag, err)
		} else {
			s.logger.Printf("[%s]   List: %s", id, tag)
		}
		return err
	})
}

func init() {
	store.Register("logging", func(ctx context.Context, conf map[string]interface{}) (tagstore.Backend, error) {
		nested, err := store.Nested(ctx, conf, "nested")
		if err != nil {
			return nil, err
		}
		return New(nested), nil
	})
}
