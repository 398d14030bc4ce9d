package lru

import (
	"context"
	"testing"

	"github.com/bobg/tagstore/store/mem"
	"github.com/bobg/tagstore/testutil"
)

func TestStore(t *testing.T) {
	s, err := New(mem.New(), 1000)
	if err != nil {
		t.Fatal(err)
	}
	testutil.Conformance(context.Background(), t, s)
}

func TestCacheHit(t *testing.T) {
	var (
		ctx    = context.Background()
		nested = mem.New()
	)
	s, err := New(nested, 10)
	if err != nil {
		t.Fatal(err)
	}
	if err = s.Store(ctx, "p", "t", []byte("cached")); err != nil {
		t.Fatal(err)
	}

	// Bypass the cache.
	if err = nested.Store(ctx, "p", "t", []byte("changed underneath")); err != nil {
		t.Fatal(err)
	}

	got, err := s.Retrieve(ctx, "p", "t")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "cached" {
		t.Errorf("got %q, want cached", got)
	}

	got[0] = 'X'
	got, err = s.Retrieve(ctx, "p", "t")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "cached" {
		t.Errorf("after caller mutation got %q, want cached", got)
	}
}
