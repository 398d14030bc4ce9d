package tagstore

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Identity turns a Specification into a packaged blob plus the tag it is stored under,
// and reverses the process.
type Identity interface {
	Package(ctx context.Context, sec Security, spec Specification, opts Options) (blob []byte, tag string, err error)

	// Unpackage reverses Package for a blob retrieved under tag.
	// It fails with ErrVerification if the blob does not belong under tag.
	Unpackage(ctx context.Context, sec Security, tag string, blob []byte, opts Options) (Record, error)
}

// SubjectExtractor is a Security whose packages carry a signed subject claim.
// Subject reads the claim without verifying the package.
type SubjectExtractor interface {
	Security
	Subject(packaged []byte) (string, error)
}

// ContentHash is an Identity that tags a blob with the hash of its Specification.
// Metadata never affects the tag:
// records with equal data fields share a tag whoever owns them.
type ContentHash struct {
	// Hash is the hash function. Nil means SHA256.
	Hash HashFunc
}

var _ Identity = ContentHash{}

// Package implements Identity.Package.
// The tag is computed concurrently with packaging.
func (c ContentHash) Package(ctx context.Context, sec Security, spec Specification, opts Options) ([]byte, string, error) {
	claims := opts.Clone()
	if claims.Author() == claims.Owner() {
		delete(claims, AuthorKey)
	}

	var (
		blob []byte
		tag  string
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		blob, err = sec.Package(ctx, spec, claims)
		return packagingErr(err, "packaging specification")
	})
	g.Go(func() error {
		var err error
		tag, err = ContentTag(c.Hash, spec)
		return packagingErr(err, "computing content tag")
	})
	if err := g.Wait(); err != nil {
		return nil, "", err
	}
	return blob, tag, nil
}

// Unpackage implements Identity.Unpackage.
// The tag is recomputed from the unpackaged Specification.
func (c ContentHash) Unpackage(ctx context.Context, sec Security, tag string, blob []byte, opts Options) (Record, error) {
	u, err := sec.Unpackage(ctx, blob, opts)
	if err != nil {
		return nil, err
	}
	got, err := ContentTag(c.Hash, Specification(u.Identity))
	if err != nil {
		return nil, VerificationError(err, "computing content tag")
	}
	if got != tag {
		return nil, VerificationError(nil, "blob under tag %s has content tag %s", tag, got)
	}
	return u.Claims.Merge(u.Identity), nil
}

// SignatureTag is an Identity whose tag is the subject claim of a signed package.
// Its Security must be a SubjectExtractor.
type SignatureTag struct{}

var _ Identity = SignatureTag{}

// Package implements Identity.Package.
func (SignatureTag) Package(ctx context.Context, sec Security, spec Specification, opts Options) ([]byte, string, error) {
	sx, ok := sec.(SubjectExtractor)
	if !ok {
		return nil, "", PackagingError(nil, "%T does not produce a subject claim", sec)
	}
	blob, err := sx.Package(ctx, spec, opts)
	if err != nil {
		return nil, "", packagingErr(err, "packaging specification")
	}
	tag, err := sx.Subject(blob)
	if err != nil {
		return nil, "", packagingErr(err, "reading subject claim")
	}
	if tag == "" {
		return nil, "", PackagingError(nil, "empty subject claim")
	}
	return blob, tag, nil
}

// Unpackage implements Identity.Unpackage.
// The verified subject claim must equal tag.
func (SignatureTag) Unpackage(ctx context.Context, sec Security, tag string, blob []byte, opts Options) (Record, error) {
	u, err := sec.Unpackage(ctx, blob, opts)
	if err != nil {
		return nil, err
	}
	if u.Subject == "" {
		return nil, VerificationError(nil, "no subject claim")
	}
	if u.Subject != tag {
		return nil, VerificationError(nil, "blob under tag %s has subject %s", tag, u.Subject)
	}
	return u.Claims.Merge(u.Identity), nil
}

// Errors that already carry a kind pass through.
func packagingErr(err error, msg string) error {
	if err == nil || Kinded(err) {
		return err
	}
	return PackagingError(err, "%s", msg)
}
