// Package redis implements a tagstore backend on Redis.
// Each partition is a Redis hash mapping tags to blobs.
package redis

import (
	"context"
	stderrs "errors"
	"sort"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/bobg/tagstore"
	"github.com/bobg/tagstore/store"
)

var _ tagstore.Lister = &Store{}

// Store is a Redis-based backend.
// It is safe for concurrent use.
type Store struct {
	rdb    *redis.Client
	prefix string
}

// New produces a new Store.
// Partition keys are namespaced with prefix.
func New(rdb *redis.Client, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

// PartitionKey is the Redis key of the hash holding partition.
func (s *Store) PartitionKey(partition string) string {
	return s.prefix + "partition:" + partition
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Store stores blob under tag in partition,
// replacing any blob already there.
func (s *Store) Store(ctx context.Context, partition, tag string, blob []byte) error {
	if err := s.rdb.HSet(ctx, s.PartitionKey(partition), tag, blob).Err(); err != nil {
		return tagstore.StorageError(err, "writing %s to redis", tag)
	}
	return nil
}

// Retrieve gets the blob stored under tag in partition.
func (s *Store) Retrieve(ctx context.Context, partition, tag string) ([]byte, error) {
	blob, err := s.rdb.HGet(ctx, s.PartitionKey(partition), tag).Bytes()
	if stderrs.Is(err, redis.Nil) {
		return nil, tagstore.ErrNotFound
	}
	if err != nil {
		return nil, tagstore.StorageError(err, "reading %s from redis", tag)
	}
	return blob, nil
}

// List produces the tags in partition, in lexicographic order.
func (s *Store) List(ctx context.Context, partition, start string, f func(string) error) error {
	tags, err := s.rdb.HKeys(ctx, s.PartitionKey(partition)).Result()
	if err != nil {
		return tagstore.StorageError(err, "listing partition %s", partition)
	}
	sort.Strings(tags)
	index := sort.SearchStrings(tags, start)
	for _, tag := range tags[index:] {
		if tag == start {
			continue
		}
		if err = f(tag); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	store.Register("redis", func(_ context.Context, conf map[string]interface{}) (tagstore.Backend, error) {
		addr, ok := conf["addr"].(string)
		if !ok {
			return nil, errors.New(`missing "addr" parameter`)
		}
		opts := &redis.Options{Addr: addr}
		if password, ok := conf["password"].(string); ok {
			opts.Password = password
		}
		if db, ok := store.Int(conf, "db"); ok {
			opts.DB = db
		}
		prefix, _ := conf["prefix"].(string)
		if prefix == "" {
			prefix = "tagstore:"
		}
		return New(redis.NewClient(opts), prefix), nil
	})
}
