// Package replica implements a tagstore backend that writes to several nested backends at once.
package replica

import (
	"context"
	"reflect"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/tagstore"
	"github.com/bobg/tagstore/store"
)

var _ tagstore.Lister = (*Store)(nil)

// Store is a backend that delegates reads and writes to two sets of nested backends.
// One set is synchronous:
// writes to all of these must succeed before a call to Store returns,
// and an error from any will cause Store to fail.
// The other set is asynchronous:
// a call to Store queues writes on these backends but does not wait for them to finish.
// However, if any asynchronous write encounters an error,
// the whole Store is put into an error state and further operations will fail.
type Store struct {
	sync   []tagstore.Backend
	async  []asyncChans
	cancel context.CancelFunc

	mu  sync.Mutex // protects err
	err error      // the error from an async goroutine, if any
}

type write struct {
	partition, tag string
	blob           []byte
}

type asyncChans struct {
	writes chan<- write
	errs   <-chan error
}

// New produces a new Store.
// The set of synchronous backends must be non-empty.
// The set of asynchronous backends may be empty.
// If there are any asynchronous backends,
// goroutines are launched for them,
// and canceling the given context object causes those to exit,
// placing the Store in an error state.
//
// Normally, writes to asynchronous backends do not block calls to Store,
// but the queue for each nested backend has a fixed length given by n,
// which must be 1 or greater.
// If any async backend falls too far behind,
// Store will block until all requests can be queued.
func New(ctx context.Context, sync []tagstore.Backend, async []tagstore.Backend, n int) *Store {
	result := &Store{sync: sync}

	if len(async) > 0 {
		ctx, result.cancel = context.WithCancel(ctx)

		selectCases := make([]reflect.SelectCase, 1+len(async))

		for i, a := range async {
			var (
				writes = make(chan write, n)
				errs   = make(chan error, 1)
			)

			result.async = append(result.async, asyncChans{writes: writes, errs: errs})

			selectCases[i].Dir = reflect.SelectRecv
			selectCases[i].Chan = reflect.ValueOf(errs)

			a := a
			go runAsync(ctx, a, writes, errs)
		}

		selectCases[len(async)].Dir = reflect.SelectRecv
		selectCases[len(async)].Chan = reflect.ValueOf(ctx.Done())

		go func() {
			_, errval, ok := reflect.Select(selectCases)
			if ok {
				result.cancel()
				result.mu.Lock()
				result.err = errval.Interface().(error)
				result.mu.Unlock()
			}
		}()
	}

	return result
}

// Runs as a goroutine until ctx is canceled or an error occurs (which it writes to errs).
func runAsync(ctx context.Context, b tagstore.Backend, writes <-chan write, errs chan<- error) {
	defer close(errs)

	for {
		select {
		case <-ctx.Done():
			errs <- ctx.Err()
			return

		case w := <-writes:
			if err := b.Store(ctx, w.partition, w.tag, w.blob); err != nil {
				errs <- errors.Wrapf(err, "storing %s/%s", w.partition, w.tag)
				return
			}
		}
	}
}

// Store implements tagstore.Backend.Store.
// The blob is stored in all synchronous nested backends.
// An error from any of them causes Store to return an error.
//
// A request to write the blob is queued for any asynchronous nested backends.
// Normally this does not block the call to Store,
// but if any async backend falls too far behind,
// Store must wait for space to open in its request queue before proceeding.
// The size of this queue is given by the int passed to New.
func (s *Store) Store(ctx context.Context, partition, tag string, blob []byte) error {
	if err := s.checkErr(); err != nil {
		return errors.Wrap(err, "in async-backend goroutine")
	}

	// The caller may reuse blob once Store returns,
	// but the async writes may not have happened yet.
	blob = append([]byte(nil), blob...)

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range s.sync {
		b := b
		g.Go(func() error {
			return b.Store(gctx, partition, tag, blob)
		})
	}

	for _, a := range s.async {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case a.writes <- write{partition: partition, tag: tag, blob: blob}:
		}
	}

	return g.Wait()
}

// Retrieve implements tagstore.Backend.Retrieve.
// It delegates the request to all of the synchronous backends in s,
// returning the result from the first one to respond without error
// and canceling the request to the others.
// If all synchronous backends respond with an error,
// one of those errors is returned.
func (s *Store) Retrieve(ctx context.Context, partition, tag string) ([]byte, error) {
	if err := s.checkErr(); err != nil {
		return nil, errors.Wrap(err, "in async-backend goroutine")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		g   errgroup.Group
		ch  = make(chan []byte, len(s.sync))
		err error
	)
	for _, b := range s.sync {
		b := b
		g.Go(func() error {
			blob, err := b.Retrieve(ctx, partition, tag)
			if err != nil {
				return err
			}
			ch <- blob
			return nil
		})
	}

	go func() {
		err = g.Wait()
		close(ch)
	}()

	if blob, ok := <-ch; ok {
		return blob, nil
	}
	return nil, err
}

// List implements tagstore.Lister.
// It delegates the request to all of the synchronous backends in s
// and synthesizes the result from the union of their tags.
// Each synchronous backend must be a tagstore.Lister.
func (s *Store) List(ctx context.Context, partition, start string, f func(string) error) error {
	if err := s.checkErr(); err != nil {
		return errors.Wrap(err, "in async-backend goroutine")
	}

	listers := make([]tagstore.Lister, 0, len(s.sync))
	for _, b := range s.sync {
		l, ok := b.(tagstore.Lister)
		if !ok {
			return errors.Errorf("nested %T backend cannot list", b)
		}
		listers = append(listers, l)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	chans := make([]chan string, len(listers))
	for i, l := range listers {
		var (
			i  = i
			l  = l
			ch = make(chan string, 1)
		)
		chans[i] = ch
		g.Go(func() error {
			defer close(ch)
			return l.List(ctx, partition, start, func(tag string) error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case ch <- tag:
					return nil
				}
			})
		})
	}

	// An empty string in next means that lister is exhausted.
	next := make([]string, len(chans))
	for i, ch := range chans {
		next[i] = <-ch
	}

	for {
		var best string
		for _, tag := range next {
			if tag != "" && (best == "" || tag < best) {
				best = tag
			}
		}
		if best == "" {
			break
		}
		if err := f(best); err != nil {
			return err
		}
		for i, tag := range next {
			if tag == best {
				next[i] = <-chans[i]
			}
		}
	}

	return g.Wait()
}

func (s *Store) checkErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func nestedList(ctx context.Context, conf map[string]interface{}, param string) ([]tagstore.Backend, error) {
	var items []interface{}
	switch v := conf[param].(type) {
	case nil:
		return nil, nil
	case []interface{}:
		items = v
	case []map[string]interface{}:
		for _, m := range v {
			items = append(items, m)
		}
	default:
		return nil, errors.Errorf(`"%s" parameter is not a list`, param)
	}

	var result []tagstore.Backend
	for _, item := range items {
		nested, ok := item.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf(`"%s" item is not a map`, param)
		}
		nestedType, ok := nested["type"].(string)
		if !ok {
			return nil, errors.Errorf(`"%s" item missing "type"`, param)
		}
		b, err := store.Create(ctx, nestedType, nested)
		if err != nil {
			return nil, errors.Wrapf(err, "creating nested %s backend", param)
		}
		result = append(result, b)
	}
	return result, nil
}

func init() {
	store.Register("replica", func(ctx context.Context, conf map[string]interface{}) (tagstore.Backend, error) {
		syncBackends, err := nestedList(ctx, conf, "sync")
		if err != nil {
			return nil, err
		}
		if len(syncBackends) == 0 {
			return nil, errors.New(`missing "sync" parameter`)
		}
		asyncBackends, err := nestedList(ctx, conf, "async")
		if err != nil {
			return nil, err
		}
		queueLen, ok := store.Int(conf, "queuelen")
		if !ok {
			queueLen = 10
		}
		return New(ctx, syncBackends, asyncBackends, queueLen), nil
	})
}
