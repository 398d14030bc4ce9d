// Package testutil holds checks shared by the tests of tagstore backends.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/tagstore"
)

// Conformance permits testing a Backend implementation.
// It stores, retrieves, overwrites, and lists blobs
// in partitions whose names are unique to this call,
// then runs a Collection on top of the backend.
func Conformance(ctx context.Context, t *testing.T, b tagstore.Backend) {
	prefix := fmt.Sprintf("conf%d", time.Now().UnixNano())

	t.Run("readwrite", func(t *testing.T) {
		ReadWrite(ctx, t, b, prefix+"-rw")
	})
	t.Run("partitions", func(t *testing.T) {
		Partitions(ctx, t, b, prefix+"-p1", prefix+"-p2")
	})
	t.Run("concurrent", func(t *testing.T) {
		Concurrent(ctx, t, b, prefix+"-cc")
	})
	if l, ok := b.(tagstore.Lister); ok {
		t.Run("list", func(t *testing.T) {
			List(ctx, t, l, prefix+"-ls")
		})
	}
	t.Run("collection", func(t *testing.T) {
		Collection(ctx, t, b, prefix+"-coll")
	})
}

// ReadWrite checks storing, retrieving, overwriting, and not-found.
func ReadWrite(ctx context.Context, t *testing.T, b tagstore.Backend, partition string) {
	blob := []byte("the quick brown fox")
	if err := b.Store(ctx, partition, "fox", blob); err != nil {
		t.Fatal(err)
	}
	got, err := b.Retrieve(ctx, partition, "fox")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, blob) {
		t.Errorf("got %q, want %q", got, blob)
	}

	blob2 := []byte("jumps over the lazy dog")
	if err = b.Store(ctx, partition, "fox", blob2); err != nil {
		t.Fatal(err)
	}
	got, err = b.Retrieve(ctx, partition, "fox")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, blob2) {
		t.Errorf("after overwrite got %q, want %q", got, blob2)
	}

	_, err = b.Retrieve(ctx, partition, "nonesuch")
	if !errors.Is(err, tagstore.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
}

// Partitions checks that the same tag in two partitions holds two blobs.
func Partitions(ctx context.Context, t *testing.T, b tagstore.Backend, p1, p2 string) {
	if err := b.Store(ctx, p1, "x", []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := b.Store(ctx, p2, "x", []byte("two")); err != nil {
		t.Fatal(err)
	}
	for _, c := range []struct{ partition, want string }{{p1, "one"}, {p2, "two"}} {
		got, err := b.Retrieve(ctx, c.partition, "x")
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != c.want {
			t.Errorf("partition %s: got %q, want %q", c.partition, got, c.want)
		}
	}
	_, err := b.Retrieve(ctx, p1+"-nonesuch", "x")
	if !errors.Is(err, tagstore.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
}

// Concurrent stores and retrieves distinct tags from many goroutines.
func Concurrent(ctx context.Context, t *testing.T, b tagstore.Backend, partition string) {
	const n = 32

	var (
		wg   sync.WaitGroup
		errs = make(chan error, n)
	)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			tag := fmt.Sprintf("tag%02d", i)
			want := []byte(fmt.Sprintf("blob %d", i))
			if err := b.Store(ctx, partition, tag, want); err != nil {
				errs <- err
				return
			}
			got, err := b.Retrieve(ctx, partition, tag)
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(got, want) {
				errs <- fmt.Errorf("%s: got %q, want %q", tag, got, want)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

// List checks that a Lister produces tags in order, after start.
func List(ctx context.Context, t *testing.T, l tagstore.Lister, partition string) {
	for _, tag := range []string{"d", "b", "a", "c"} {
		if err := l.Store(ctx, partition, tag, []byte(tag)); err != nil {
			t.Fatal(err)
		}
	}

	list := func(start string) []string {
		var tags []string
		err := l.List(ctx, partition, start, func(tag string) error {
			tags = append(tags, tag)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		return tags
	}

	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, list("")); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c", "d"}, list("b")); diff != "" {
		t.Errorf("mismatch after start (-want +got):\n%s", diff)
	}

	stop := errors.New("stop")
	var n int
	err := l.List(ctx, partition, "", func(string) error {
		n++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("got error %v, want %v", err, stop)
	}
	if n != 1 {
		t.Errorf("callback ran %d times after error, want 1", n)
	}
}

// Collection stores and retrieves a record through a default Collection on b.
func Collection(ctx context.Context, t *testing.T, b tagstore.Backend, partition string) {
	coll, err := tagstore.New(tagstore.Config{Name: partition, Backend: b})
	if err != nil {
		t.Fatal(err)
	}
	when := time.UnixMilli(1700000000000).UTC()
	tag, err := coll.Store(ctx, tagstore.Record{"owner": "me", "x": "y"}, tagstore.Options{tagstore.TimeKey: when})
	if err != nil {
		t.Fatal(err)
	}
	got, err := coll.Retrieve(ctx, tag, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := tagstore.Record{"x": "y", "owner": "me", "timestamp": when}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
