package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bobg/tagstore"
	"github.com/bobg/tagstore/store"
)

// sync copies the records of a collection among this backend
// and the backends named by the config files in args.
func (c maincmd) sync(ctx context.Context, fs *flag.FlagSet, args []string) error {
	collection := fs.String("collection", "records", "collection to synchronize")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	var listers []tagstore.Lister
	add := func(b tagstore.Backend) error {
		l, ok := b.(tagstore.Lister)
		if !ok {
			return fmt.Errorf("%T backend cannot list", b)
		}
		listers = append(listers, l)
		return nil
	}

	if err = add(c.b); err != nil {
		return err
	}
	for _, arg := range fs.Args() {
		conf, err := readConfig(arg)
		if err != nil {
			return err
		}
		b, err := backendFromConfig(ctx, conf)
		if err != nil {
			return errors.Wrapf(err, "config file %s", arg)
		}
		if err = add(b); err != nil {
			return errors.Wrapf(err, "config file %s", arg)
		}
	}

	return store.Sync(ctx, *collection, listers)
}
