package store

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/tagstore"
)

// Sync synchronizes a partition across two or more backends.
// It lists the partition in every backend.
// When a tag is found in some but not all of them,
// its blob is copied to the ones where it's missing.
//
// Tags present everywhere are left alone,
// even if their blobs differ.
func Sync(ctx context.Context, partition string, backends []tagstore.Lister) error {
	if len(backends) < 2 {
		return nil
	}

	var (
		sets = make([]map[string]bool, len(backends))
		eg   errgroup.Group
	)
	for i, b := range backends {
		i, b := i, b
		eg.Go(func() error {
			set := make(map[string]bool)
			err := b.List(ctx, partition, "", func(tag string) error {
				set[tag] = true
				return nil
			})
			sets[i] = set
			return errors.Wrapf(err, "listing backend %d", i)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	all := make(map[string]int) // tag -> index of a backend that has it
	for i, set := range sets {
		for tag := range set {
			if _, ok := all[tag]; !ok {
				all[tag] = i
			}
		}
	}
	tags := make([]string, 0, len(all))
	for tag := range all {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	for _, tag := range tags {
		var blob []byte
		for i, b := range backends {
			if sets[i][tag] {
				continue
			}
			if blob == nil {
				var err error
				blob, err = backends[all[tag]].Retrieve(ctx, partition, tag)
				if err != nil {
					return errors.Wrapf(err, "getting blob for %s", tag)
				}
			}
			if err := b.Store(ctx, partition, tag, blob); err != nil {
				return errors.Wrapf(err, "storing blob for %s", tag)
			}
		}
	}
	return nil
}
