package tagstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/tagstore"
	"github.com/bobg/tagstore/store/mem"
)

var when = time.UnixMilli(1700000000000).UTC()

func newCollection(t *testing.T, conf tagstore.Config) *tagstore.Collection {
	if conf.Backend == nil {
		conf.Backend = mem.New()
	}
	if conf.Name == "" {
		conf.Name = "test"
	}
	c, err := tagstore.New(conf)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestStoreRetrieve(t *testing.T) {
	ctx := context.Background()
	c := newCollection(t, tagstore.Config{})

	r := tagstore.Record{
		"c":     4,
		"d":     "bar",
		"b":     map[string]interface{}{"x": 2, "y": 3},
		"a":     []interface{}{1, "foo"},
		"owner": "me",
	}
	tag, err := c.Store(ctx, r, tagstore.Options{tagstore.TimeKey: when})
	if err != nil {
		t.Fatal(err)
	}

	wantTag, err := tagstore.ContentTag(tagstore.SHA256, tagstore.Specification{
		"a": []interface{}{1, "foo"},
		"b": map[string]interface{}{"x": 2, "y": 3},
		"c": 4,
		"d": "bar",
	})
	if err != nil {
		t.Fatal(err)
	}
	if tag != wantTag {
		t.Errorf("got tag %s, want %s", tag, wantTag)
	}

	got, err := c.Retrieve(ctx, tag, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := tagstore.Record{
		"a":         []interface{}{float64(1), "foo"},
		"b":         map[string]interface{}{"x": float64(2), "y": float64(3)},
		"c":         float64(4),
		"d":         "bar",
		"owner":     "me",
		"timestamp": when,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// Storing again is idempotent.
	tag2, err := c.Store(ctx, r, tagstore.Options{tagstore.TimeKey: when})
	if err != nil {
		t.Fatal(err)
	}
	if tag2 != tag {
		t.Errorf("second store got tag %s, want %s", tag2, tag)
	}
}

func TestAuthor(t *testing.T) {
	ctx := context.Background()
	c := newCollection(t, tagstore.Config{})

	tag, err := c.Store(ctx, tagstore.Record{"x": "y", "owner": "team", "author": "me"}, tagstore.Options{tagstore.TimeKey: when})
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Retrieve(ctx, tag, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := tagstore.Record{"x": "y", "owner": "team", "author": "me", "timestamp": when}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultTime(t *testing.T) {
	ctx := context.Background()
	c := newCollection(t, tagstore.Config{
		Policy: tagstore.DefaultPolicy{Now: func() time.Time { return when }},
	})
	tag, err := c.Store(ctx, tagstore.Record{"owner": "me"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Retrieve(ctx, tag, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ts, ok := got[tagstore.TimestampKey].(time.Time); !ok || !ts.Equal(when) {
		t.Errorf("got timestamp %v, want %v", got[tagstore.TimestampKey], when)
	}
}

func TestDefaultTimeMillis(t *testing.T) {
	var (
		ctx  = context.Background()
		now  = when.Add(123456789 * time.Nanosecond)
		want = when.Add(123 * time.Millisecond)
	)
	policy := tagstore.DefaultPolicy{Now: func() time.Time { return now }}
	opts := policy.StoreOptions(tagstore.Record{"owner": "me"}, nil)
	if ts := opts.Time(); !ts.Equal(want) {
		t.Errorf("got option time %v, want %v", ts, want)
	}

	c := newCollection(t, tagstore.Config{Policy: policy})
	tag, err := c.Store(ctx, tagstore.Record{"owner": "me"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Retrieve(ctx, tag, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ts, ok := got[tagstore.TimestampKey].(time.Time); !ok || !ts.Equal(want) {
		t.Errorf("got timestamp %v, want %v", got[tagstore.TimestampKey], want)
	}
}

func TestSwappedBlob(t *testing.T) {
	var (
		ctx     = context.Background()
		backend = mem.New()
		c       = newCollection(t, tagstore.Config{Backend: backend})
	)
	tagA, err := c.Store(ctx, tagstore.Record{"owner": "me", "pay": 1}, tagstore.Options{tagstore.TimeKey: when})
	if err != nil {
		t.Fatal(err)
	}
	tagB, err := c.Store(ctx, tagstore.Record{"owner": "me", "pay": 1000000}, tagstore.Options{tagstore.TimeKey: when})
	if err != nil {
		t.Fatal(err)
	}
	blobB, err := backend.Retrieve(ctx, "test", tagB)
	if err != nil {
		t.Fatal(err)
	}
	if err = backend.Store(ctx, "test", tagA, blobB); err != nil {
		t.Fatal(err)
	}

	got, err := c.Retrieve(ctx, tagA, nil)
	if !errors.Is(err, tagstore.ErrVerification) {
		t.Errorf("got record %v and error %v, want ErrVerification", got, err)
	}
	if _, err = c.Retrieve(ctx, tagB, nil); err != nil {
		t.Errorf("retrieving %s: %s", tagB, err)
	}
}

func TestNotFound(t *testing.T) {
	c := newCollection(t, tagstore.Config{})
	_, err := c.Retrieve(context.Background(), "nonesuch", nil)
	if !errors.Is(err, tagstore.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
	if errors.Is(err, tagstore.ErrVerification) {
		t.Error("not-found error is also a verification error")
	}
}

func TestNoBackend(t *testing.T) {
	if _, err := tagstore.New(tagstore.Config{Name: "x"}); err == nil {
		t.Error("got no error for missing backend")
	}
}

// blocking holds each Store call until release is closed.
type blocking struct {
	tagstore.Backend
	entered chan struct{}
	release chan struct{}
}

func (b *blocking) Store(ctx context.Context, partition, tag string, blob []byte) error {
	b.entered <- struct{}{}
	<-b.release
	return b.Backend.Store(ctx, partition, tag, blob)
}

func TestMutateAfterStore(t *testing.T) {
	ctx := context.Background()
	b := &blocking{
		Backend: mem.New(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := newCollection(t, tagstore.Config{Backend: b})

	r := tagstore.Record{"x": "y", "owner": "me"}

	var (
		tag string
		err error
		wg  sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		tag, err = c.Store(ctx, r, tagstore.Options{tagstore.TimeKey: when})
	}()

	<-b.entered
	r["x"] = "z"
	r["owner"] = "mallory"
	r["extra"] = true
	close(b.release)
	wg.Wait()

	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Retrieve(ctx, tag, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := tagstore.Record{"x": "y", "owner": "me", "timestamp": when}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

type failing struct{}

var errFailing = errors.New("failing")

func (failing) Store(context.Context, string, string, []byte) error {
	return tagstore.StorageError(errFailing, "store")
}

func (failing) Retrieve(context.Context, string, string) ([]byte, error) {
	return nil, tagstore.StorageError(errFailing, "retrieve")
}

func TestBackendFailure(t *testing.T) {
	ctx := context.Background()
	c := newCollection(t, tagstore.Config{Backend: failing{}})

	tag, err := c.Store(ctx, tagstore.Record{"owner": "me"}, nil)
	if !errors.Is(err, tagstore.ErrStorage) || !errors.Is(err, errFailing) {
		t.Errorf("got error %v, want ErrStorage wrapping %v", err, errFailing)
	}
	if tag != "" {
		t.Errorf("got tag %s on error", tag)
	}
}

func TestEncryptCollection(t *testing.T) {
	c := newCollection(t, tagstore.Config{Security: tagstore.Encrypt{}})
	_, err := c.Store(context.Background(), tagstore.Record{"owner": "me"}, nil)
	if !errors.Is(err, tagstore.ErrNotImplemented) {
		t.Errorf("got error %v, want ErrNotImplemented", err)
	}
}

// audiencePolicy overrides only the store-time hook.
type audiencePolicy struct {
	tagstore.DefaultPolicy
	audience string
}

func (p audiencePolicy) StoreOptions(r tagstore.Record, initial tagstore.Options) tagstore.Options {
	opts := p.DefaultPolicy.StoreOptions(r, initial)
	opts["secret"] = p.audience
	return opts
}

func TestCustomPolicy(t *testing.T) {
	ctx := context.Background()
	c := newCollection(t, tagstore.Config{Policy: audiencePolicy{audience: "friends"}})

	// The policy claims "secret" as an option key,
	// so it is kept out of the stored data.
	tag, err := c.Store(ctx, tagstore.Record{"owner": "me", "x": "y", "secret": "hidden"}, tagstore.Options{tagstore.TimeKey: when})
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Retrieve(ctx, tag, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := tagstore.Record{"x": "y", "owner": "me", "timestamp": when}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrent(t *testing.T) {
	ctx := context.Background()
	c := newCollection(t, tagstore.Config{})

	const n = 20
	var (
		wg   sync.WaitGroup
		errs = make(chan error, n)
	)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			tag, err := c.Store(ctx, tagstore.Record{"owner": "me", "i": i}, tagstore.Options{tagstore.TimeKey: when})
			if err != nil {
				errs <- err
				return
			}
			got, err := c.Retrieve(ctx, tag, nil)
			if err != nil {
				errs <- err
				return
			}
			if got["i"] != float64(i) {
				errs <- errors.New("wrong record")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
