package tagstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MultiErr is the type of error returned by StoreMulti and RetrieveMulti.
// It maps individual keys to errors encountered storing or retrieving them.
type MultiErr map[string]error

// Error implements the error interface.
func (e MultiErr) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var strs []string
	for _, k := range keys {
		strs = append(strs, fmt.Sprintf("%s: %s", k, e[k]))
	}
	return "error(s): " + strings.Join(strs, "; ")
}

// StoreMulti stores multiple records with a single call,
// as a bunch of concurrent individual Store calls.
// Every record is captured before StoreMulti blocks.
// The result holds the tag of each record at the record's index,
// or "" for records that could not be stored.
// In that case the error is a MultiErr keyed by the decimal index of each failed record.
func (c *Collection) StoreMulti(ctx context.Context, records []Record, initial Options) ([]string, error) {
	ps := make([]prepared, len(records))
	for i, r := range records {
		ps[i] = c.prepare(r, initial)
	}

	type triple struct {
		i   int
		tag string
		err error
	}

	ch := make(chan triple)
	for i, p := range ps {
		i, p := i, p
		go func() {
			tag, err := c.commit(ctx, p)
			ch <- triple{i: i, tag: tag, err: err}
		}()
	}

	var (
		tags   = make([]string, len(records))
		errmap MultiErr
	)
	for range ps {
		trip := <-ch
		if trip.err != nil {
			if errmap == nil {
				errmap = make(MultiErr)
			}
			errmap[strconv.Itoa(trip.i)] = trip.err
			continue
		}
		tags[trip.i] = trip.tag
	}

	if errmap != nil {
		return tags, errmap
	}
	return tags, nil
}

// RetrieveMulti gets multiple records with a single call,
// as a bunch of concurrent individual Retrieve calls.
// The result maps tags to the records that were found.
// The returned error may be a MultiErr,
// mapping tags to errors encountered retrieving them.
// Every input tag appears in either the result or the MultiErr.
func (c *Collection) RetrieveMulti(ctx context.Context, tags []string, initial Options) (map[string]Record, error) {
	type triple struct {
		tag string
		r   Record
		err error
	}

	ch := make(chan triple)
	for _, tag := range tags {
		tag := tag
		go func() {
			r, err := c.Retrieve(ctx, tag, initial)
			ch <- triple{tag: tag, r: r, err: err}
		}()
	}

	var (
		res    = make(map[string]Record)
		errmap MultiErr
	)
	for range tags {
		trip := <-ch
		if trip.err != nil {
			if errmap == nil {
				errmap = make(MultiErr)
			}
			errmap[trip.tag] = trip.err
			continue
		}
		res[trip.tag] = trip.r
	}

	if errmap != nil {
		return res, errmap
	}
	return res, nil
}
