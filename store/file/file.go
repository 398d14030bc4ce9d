// Package file implements a tagstore backend as a file hierarchy.
//
// Partition and tag names are hex-encoded to make safe file names.
// Hex encoding preserves byte order,
// so a sorted directory listing is a sorted tag listing.
package file

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"

	"github.com/bobg/flock"
	"github.com/pkg/errors"

	"github.com/bobg/tagstore"
	"github.com/bobg/tagstore/store"
)

var _ tagstore.Lister = &Store{}

// Store is a file-based backend.
type Store struct {
	root    string
	flocker flock.Locker
}

// New produces a new Store storing data beneath root.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) partitionDir(partition string) string {
	return filepath.Join(s.root, "p"+hex.EncodeToString([]byte(partition)))
}

func (s *Store) blobpath(partition, tag string) string {
	h := "t" + hex.EncodeToString([]byte(tag))
	prefix := h
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return filepath.Join(s.partitionDir(partition), prefix, h)
}

func (s *Store) lockpath(partition string) string {
	return filepath.Join(s.partitionDir(partition), "lock")
}

// Store writes blob under tag in partition,
// replacing any blob already there.
// Writers to the same partition are serialized with a file lock;
// each write goes to a temporary file that is then renamed into place.
func (s *Store) Store(_ context.Context, partition, tag string, blob []byte) error {
	var (
		path = s.blobpath(partition, tag)
		dir  = filepath.Dir(path)
	)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return tagstore.StorageError(err, "ensuring path %s exists", dir)
	}

	lockpath := s.lockpath(partition)
	if err := s.flocker.Lock(lockpath); err != nil {
		return tagstore.StorageError(err, "locking %s", lockpath)
	}
	defer s.flocker.Unlock(lockpath)

	f, err := os.CreateTemp(dir, "tmp")
	if err != nil {
		return tagstore.StorageError(err, "creating temp file in %s", dir)
	}
	tmpname := f.Name()
	defer os.Remove(tmpname)

	_, err = f.Write(blob)
	if err != nil {
		f.Close()
		return tagstore.StorageError(err, "writing data to %s", tmpname)
	}
	if err = f.Close(); err != nil {
		return tagstore.StorageError(err, "closing %s", tmpname)
	}
	if err = os.Rename(tmpname, path); err != nil {
		return tagstore.StorageError(err, "renaming %s to %s", tmpname, path)
	}
	return nil
}

// Retrieve reads the blob stored under tag in partition.
func (s *Store) Retrieve(_ context.Context, partition, tag string) ([]byte, error) {
	path := s.blobpath(partition, tag)
	blob, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, tagstore.ErrNotFound
	}
	if err != nil {
		return nil, tagstore.StorageError(err, "reading %s", path)
	}
	return blob, nil
}

// List produces the tags in partition, in lexicographic order.
func (s *Store) List(ctx context.Context, partition, start string, f func(string) error) error {
	pdir := s.partitionDir(partition)
	prefixes, err := os.ReadDir(pdir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return tagstore.StorageError(err, "reading dir %s", pdir)
	}

	startName := "t" + hex.EncodeToString([]byte(start))
	for _, prefix := range prefixes {
		if !prefix.IsDir() || len(prefix.Name()) > 3 || prefix.Name()[0] != 't' {
			continue
		}
		if len(startName) >= 3 && prefix.Name() < startName[:3] {
			continue
		}

		dir := filepath.Join(pdir, prefix.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			return tagstore.StorageError(err, "reading dir %s", dir)
		}
		index := sort.Search(len(entries), func(n int) bool {
			return entries[n].Name() > startName
		})
		for _, entry := range entries[index:] {
			name := entry.Name()
			if entry.IsDir() || len(name) == 0 || name[0] != 't' {
				continue
			}
			tag, err := hex.DecodeString(name[1:])
			if err != nil {
				continue
			}
			if err = ctx.Err(); err != nil {
				return err
			}
			if err = f(string(tag)); err != nil {
				return err
			}
		}
	}
	return nil
}

func init() {
	store.Register("file", func(_ context.Context, conf map[string]interface{}) (tagstore.Backend, error) {
		root, ok := conf["root"].(string)
		if !ok {
			return nil, errors.New(`missing "root" parameter`)
		}
		return New(root), nil
	})
}
