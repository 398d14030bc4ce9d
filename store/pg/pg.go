// Package pg implements a tagstore backend on Postgresql.
package pg

import (
	"context"
	"database/sql"
	stderrs "errors"

	"github.com/bobg/sqlutil"
	_ "github.com/lib/pq" // register the postgres type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/tagstore"
	"github.com/bobg/tagstore/store"
)

var _ tagstore.Lister = &Store{}

// Store is a Postgresql-based backend.
type Store struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `blobs` table if it does not exist.
// (If it does exist, it must have the columns, constraints, and indexing described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS blobs (
  partition TEXT NOT NULL,
  tag TEXT NOT NULL,
  data BYTEA NOT NULL,
  PRIMARY KEY (partition, tag)
);
`

// New produces a new Store using db for storage.
// It expects to create table `blobs`,
// or for that table already to exist with the correct schema.
// (See Schema.)
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, errors.Wrap(err, "creating schema")
}

// Store stores blob under tag in partition,
// replacing any blob already there.
func (s *Store) Store(ctx context.Context, partition, tag string, blob []byte) error {
	const q = `INSERT INTO blobs (partition, tag, data) VALUES ($1, $2, $3)
		ON CONFLICT (partition, tag) DO UPDATE SET data = EXCLUDED.data`

	_, err := s.db.ExecContext(ctx, q, partition, tag, blob)
	if err != nil {
		return tagstore.StorageError(err, "inserting blob %s", tag)
	}
	return nil
}

// Retrieve gets the blob stored under tag in partition.
func (s *Store) Retrieve(ctx context.Context, partition, tag string) ([]byte, error) {
	const q = `SELECT data FROM blobs WHERE partition = $1 AND tag = $2`

	var blob []byte
	err := s.db.QueryRowContext(ctx, q, partition, tag).Scan(&blob)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, tagstore.ErrNotFound
	}
	if err != nil {
		return nil, tagstore.StorageError(err, "querying blob %s", tag)
	}
	return blob, nil
}

// List produces the tags in partition, in lexicographic (bytewise) order.
func (s *Store) List(ctx context.Context, partition, start string, f func(string) error) error {
	const q = `SELECT tag FROM blobs WHERE partition = $1 AND tag > $2 COLLATE "C" ORDER BY tag COLLATE "C"`
	return sqlutil.ForQueryRows(ctx, s.db, q, partition, start, f)
}

func init() {
	store.Register("pg", func(ctx context.Context, conf map[string]interface{}) (tagstore.Backend, error) {
		conn, ok := conf["conn"].(string)
		if !ok {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("postgres", conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}
