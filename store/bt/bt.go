// Package bt implements a tagstore backend on Google Cloud Bigtable.
package bt

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"cloud.google.com/go/bigtable"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/bobg/tagstore"
	"github.com/bobg/tagstore/store"
)

var _ tagstore.Lister = &Store{}

// Store is a Google Cloud Bigtable-backed implementation of tagstore.Lister.
// Its table must have a column family named "blob".
type Store struct {
	t *bigtable.Table
}

const (
	blobcol = "blob"
	blobfam = "blob"
)

// New produces a new Store.
func New(t *bigtable.Table) *Store {
	return &Store{t: t}
}

// Retrieve implements tagstore.Backend.
func (s *Store) Retrieve(ctx context.Context, partition, tag string) ([]byte, error) {
	row, err := s.t.ReadRow(ctx, blobKey(partition, tag), bigtable.RowFilter(bigtable.LatestNFilter(1)))
	if err != nil {
		return nil, tagstore.StorageError(err, "reading row %s/%s", partition, tag)
	}
	items := row[blobfam]
	if len(items) == 0 {
		return nil, tagstore.ErrNotFound
	}
	return items[0].Value, nil
}

// Store implements tagstore.Backend.
// Any earlier blob under the same tag is deleted in the same mutation.
func (s *Store) Store(ctx context.Context, partition, tag string, blob []byte) error {
	mut := bigtable.NewMutation()
	mut.DeleteCellsInColumn(blobfam, blobcol)
	mut.Set(blobfam, blobcol, bigtable.Now(), blob)
	if err := s.t.Apply(ctx, blobKey(partition, tag), mut); err != nil {
		return tagstore.StorageError(err, "writing row %s/%s", partition, tag)
	}
	return nil
}

// List implements tagstore.Lister.
func (s *Store) List(ctx context.Context, partition, start string, f func(string) error) error {
	var (
		prefix   = partitionPrefix(partition)
		rows     = bigtable.PrefixRange(prefix)
		innerErr error
	)
	if start != "" {
		// Row ranges are start-inclusive, so begin just after start.
		rows = bigtable.NewRange(prefix+start+"\x00", prefix[:len(prefix)-1]+";")
	}

	rowFn := func(row bigtable.Row) bool {
		key := row.Key()
		innerErr = f(strings.TrimPrefix(key, prefix))
		return innerErr == nil
	}
	err := s.t.ReadRows(ctx, rows, rowFn, bigtable.RowFilter(bigtable.StripValueFilter()))
	if err != nil {
		return tagstore.StorageError(err, "listing partition %s", partition)
	}
	return innerErr
}

// Row keys are b:<hex partition>:<tag>.
// Hex encoding keeps colons out of the partition,
// and all tags in a partition share a prefix and sort in tag order.
func partitionPrefix(partition string) string {
	return fmt.Sprintf("b:%s:", hex.EncodeToString([]byte(partition)))
}

func blobKey(partition, tag string) string {
	return partitionPrefix(partition) + tag
}

func init() {
	store.Register("bt", func(ctx context.Context, conf map[string]interface{}) (tagstore.Backend, error) {
		project, ok := conf["project"].(string)
		if !ok {
			return nil, errors.New(`missing "project" parameter`)
		}
		instance, ok := conf["instance"].(string)
		if !ok {
			return nil, errors.New(`missing "instance" parameter`)
		}
		table, ok := conf["table"].(string)
		if !ok {
			return nil, errors.New(`missing "table" parameter`)
		}

		var options []option.ClientOption
		if creds, ok := conf["creds"].(string); ok {
			options = append(options, option.WithCredentialsFile(creds))
		}
		c, err := bigtable.NewClient(ctx, project, instance, options...)
		if err != nil {
			return nil, errors.Wrap(err, "creating bigtable client")
		}
		return New(c.Open(table)), nil
	})
}
