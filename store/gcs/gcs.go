// Package gcs implements a tagstore backend on Google Cloud Storage.
package gcs

import (
	"context"
	"encoding/hex"
	stderrs "errors"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/bobg/tagstore"
	"github.com/bobg/tagstore/store"
)

var _ tagstore.Lister = &Store{}

// Store is a Google Cloud Storage-based backend.
// Each blob is an object named for its partition and tag.
type Store struct {
	bucket *storage.BucketHandle
}

// New produces a new Store.
func New(bucket *storage.BucketHandle) *Store {
	return &Store{bucket: bucket}
}

// Object names are hex-encoded so any partition or tag is a legal name,
// and so the bucket's lexical object order is the tags' byte order.
func partitionPrefix(partition string) string {
	return "p:" + hex.EncodeToString([]byte(partition)) + "/"
}

func objName(partition, tag string) string {
	return partitionPrefix(partition) + hex.EncodeToString([]byte(tag))
}

func tagFromObjName(partition, name string) (string, error) {
	prefix := partitionPrefix(partition)
	if !strings.HasPrefix(name, prefix) {
		return "", errors.Errorf("object %s is not in partition %s", name, partition)
	}
	b, err := hex.DecodeString(name[len(prefix):])
	return string(b), errors.Wrapf(err, "decoding object name %s", name)
}

// Store writes blob under tag in partition,
// replacing any object already there.
func (s *Store) Store(ctx context.Context, partition, tag string, blob []byte) error {
	var (
		name = objName(partition, tag)
		w    = s.bucket.Object(name).NewWriter(ctx)
	)
	if _, err := w.Write(blob); err != nil {
		w.Close()
		return tagstore.StorageError(err, "writing object %s", name)
	}
	if err := w.Close(); err != nil {
		return tagstore.StorageError(err, "finishing object %s", name)
	}
	return nil
}

// Retrieve reads the blob stored under tag in partition.
func (s *Store) Retrieve(ctx context.Context, partition, tag string) ([]byte, error) {
	name := objName(partition, tag)
	r, err := s.bucket.Object(name).NewReader(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return nil, tagstore.ErrNotFound
	}
	if err != nil {
		return nil, tagstore.StorageError(err, "reading object %s", name)
	}
	defer r.Close()

	blob, err := io.ReadAll(r)
	if err != nil {
		return nil, tagstore.StorageError(err, "reading contents of object %s", name)
	}
	return blob, nil
}

// List produces the tags in partition, in lexicographic order.
func (s *Store) List(ctx context.Context, partition, start string, f func(string) error) error {
	query := &storage.Query{Prefix: partitionPrefix(partition)}
	startName := objName(partition, start)
	if start != "" {
		query.StartOffset = startName
	}

	iter := s.bucket.Objects(ctx, query)
	for {
		attrs, err := iter.Next()
		if stderrs.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return tagstore.StorageError(err, "iterating over objects")
		}
		if attrs.Name <= startName {
			continue
		}
		tag, err := tagFromObjName(partition, attrs.Name)
		if err != nil {
			return err
		}
		if err = f(tag); err != nil {
			return err
		}
	}
}

func init() {
	store.Register("gcs", func(ctx context.Context, conf map[string]interface{}) (tagstore.Backend, error) {
		var options []option.ClientOption
		creds, ok := conf["creds"].(string)
		if !ok {
			return nil, errors.New(`missing "creds" parameter`)
		}
		bucketName, ok := conf["bucket"].(string)
		if !ok {
			return nil, errors.New(`missing "bucket" parameter`)
		}
		options = append(options, option.WithCredentialsFile(creds))
		c, err := storage.NewClient(ctx, options...)
		if err != nil {
			return nil, errors.Wrap(err, "creating cloud storage client")
		}
		return New(c.Bucket(bucketName)), nil
	})
}
