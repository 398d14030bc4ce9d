package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/pkg/errors"
)

func (c maincmd) get(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		collection = fs.String("collection", "records", "collection to get the record from")
		tag        = fs.String("tag", "", "tag of the record")
		signed     = fs.Bool("signed", false, "verify the record's signature")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *tag == "" && fs.NArg() > 0 {
		*tag = fs.Arg(0)
	}
	if *tag == "" {
		return errors.New("must supply -tag")
	}

	coll, err := c.collection(*collection, *signed)
	if err != nil {
		return errors.Wrapf(err, "opening collection %s", *collection)
	}

	r, err := coll.Retrieve(ctx, *tag, nil)
	if err != nil {
		return errors.Wrapf(err, "getting record %s", *tag)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(r), "writing record to stdout")
}
