package tagstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// OptionsPolicy builds the Options for each Collection operation.
// Embed DefaultPolicy in a struct to override just one of the methods.
type OptionsPolicy interface {
	// StoreOptions snapshots the metadata of r, overlaid with initial.
	// It must not retain r or initial.
	StoreOptions(r Record, initial Options) Options

	// RetrieveOptions produces the Options for retrieving tag.
	RetrieveOptions(tag string, initial Options) Options
}

// DefaultPolicy is the OptionsPolicy a Collection uses unless told otherwise.
type DefaultPolicy struct {
	// Now supplies the storage time when the caller gives none.
	// Nil means time.Now.
	Now func() time.Time
}

var _ OptionsPolicy = DefaultPolicy{}

// StoreOptions implements OptionsPolicy.StoreOptions.
// The four metadata fields are always present as keys
// (so they never leak into a Specification),
// author defaults to owner,
// and time defaults to now, truncated to the millisecond precision that packages keep.
func (p DefaultPolicy) StoreOptions(r Record, initial Options) Options {
	author, ok := r[AuthorKey]
	if !ok || author == nil {
		author = r[OwnerKey]
	}
	opts := Options{
		OwnerKey:      r[OwnerKey],
		AuthorKey:     author,
		AudienceKey:   r[AudienceKey],
		AntecedentKey: r[AntecedentKey],
	}
	for k, v := range initial {
		opts[k] = v
	}
	if _, ok := opts[TimeKey]; !ok {
		now := time.Now
		if p.Now != nil {
			now = p.Now
		}
		opts[TimeKey] = now().Truncate(time.Millisecond)
	}
	return opts
}

// RetrieveOptions implements OptionsPolicy.RetrieveOptions.
// It passes initial through.
func (DefaultPolicy) RetrieveOptions(_ string, initial Options) Options {
	return initial
}

// Config configures a Collection.
type Config struct {
	// Name is the Backend partition the Collection uses.
	Name string

	Security Security      // default Plain
	Identity Identity      // default ContentHash with SHA256
	Backend  Backend       // required
	Policy   OptionsPolicy // default DefaultPolicy
}

// Collection binds an Identity, a Security, and a Backend partition.
// It is immutable after New and safe for concurrent use.
// Concurrent operations are not ordered with respect to one another.
type Collection struct {
	name     string
	security Security
	identity Identity
	backend  Backend
	policy   OptionsPolicy
}

// New produces a new Collection.
func New(conf Config) (*Collection, error) {
	if conf.Backend == nil {
		return nil, errors.New("no backend")
	}
	c := &Collection{
		name:     conf.Name,
		security: conf.Security,
		identity: conf.Identity,
		backend:  conf.Backend,
		policy:   conf.Policy,
	}
	if c.security == nil {
		c.security = Plain{}
	}
	if c.identity == nil {
		c.identity = ContentHash{}
	}
	if c.policy == nil {
		c.policy = DefaultPolicy{}
	}
	return c, nil
}

// Name is the partition name of c.
func (c *Collection) Name() string { return c.name }

// Backend is the Backend of c.
func (c *Collection) Backend() Backend { return c.backend }

// Store packages r and stores it,
// returning the tag by which it can be retrieved.
//
// The metadata and data fields of r are captured before anything blocks.
// A nil error means the Backend acknowledged the write;
// on error no tag is returned.
// Errors from strategies and from the Backend are returned as is.
func (c *Collection) Store(ctx context.Context, r Record, initial Options) (string, error) {
	return c.commit(ctx, c.prepare(r, initial))
}

// prepared is a record captured for storing.
type prepared struct {
	opts Options
	spec Specification
}

// prepare captures everything Store needs from r and initial.
// It does not block.
func (c *Collection) prepare(r Record, initial Options) prepared {
	opts := c.policy.StoreOptions(r, initial)
	return prepared{opts: opts, spec: Canonicalize(r, opts)}
}

func (c *Collection) commit(ctx context.Context, p prepared) (string, error) {
	blob, tag, err := c.identity.Package(ctx, c.security, p.spec, p.opts)
	if err != nil {
		return "", err
	}
	if err = c.backend.Store(ctx, c.name, tag, blob); err != nil {
		return "", err
	}
	return tag, nil
}

// Retrieve gets the record stored under tag,
// with owner, timestamp, and (when it differs from owner) author restored.
// It returns ErrNotFound if there is no such tag
// and ErrVerification if the stored blob does not belong under tag.
func (c *Collection) Retrieve(ctx context.Context, tag string, initial Options) (Record, error) {
	opts := c.policy.RetrieveOptions(tag, initial)
	blob, err := c.backend.Retrieve(ctx, c.name, tag)
	if err != nil {
		return nil, err
	}
	return c.identity.Unpackage(ctx, c.security, tag, blob, opts)
}
