package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/tagstore"
)

func (c maincmd) put(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		collection = fs.String("collection", "records", "collection to store the record in")
		owner      = fs.String("owner", "", "owner of the record (default: the record's own owner field)")
		author     = fs.String("author", "", "author of the record (default: owner)")
		signed     = fs.Bool("signed", false, "sign the record with the author's key")
		expires    = fs.Duration("expires", 0, "lifetime of a signed record (default: forever)")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	var r tagstore.Record
	if err = json.NewDecoder(os.Stdin).Decode(&r); err != nil {
		return errors.Wrap(err, "decoding record from stdin")
	}
	if *owner != "" {
		r[tagstore.OwnerKey] = *owner
	}
	if *author != "" {
		r[tagstore.AuthorKey] = *author
	}

	coll, err := c.collection(*collection, *signed)
	if err != nil {
		return errors.Wrapf(err, "opening collection %s", *collection)
	}

	now := time.Now()
	opts := tagstore.Options{tagstore.TimeKey: now}
	if *expires > 0 {
		opts[tagstore.ExpiresKey] = now.Add(*expires)
	}

	tag, err := coll.Store(ctx, r, opts)
	if err != nil {
		return errors.Wrap(err, "storing record")
	}

	fmt.Println(tag)
	return nil
}
