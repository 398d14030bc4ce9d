package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bobg/tagstore"
)

func (c maincmd) ls(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		collection = fs.String("collection", "records", "collection to list")
		start      = fs.String("start", "", "list tags after this one")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	l, ok := c.b.(tagstore.Lister)
	if !ok {
		return fmt.Errorf("%T backend cannot list", c.b)
	}
	return l.List(ctx, *collection, *start, func(tag string) error {
		fmt.Println(tag)
		return nil
	})
}
