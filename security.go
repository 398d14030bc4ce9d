package tagstore

import (
	"context"
	"encoding/json"
)

// Security turns a Specification plus claims into an opaque package and back.
type Security interface {
	// Package produces the packaged form of spec,
	// embedding the attribution found in claims.
	Package(ctx context.Context, spec Specification, claims Options) ([]byte, error)

	// Unpackage reverses Package,
	// enforcing whatever authenticity the strategy provides.
	Unpackage(ctx context.Context, packaged []byte, opts Options) (*Unpackaged, error)
}

// Unpackaged is the result of Security.Unpackage.
type Unpackaged struct {
	Identity map[string]interface{}
	Claims   Claims

	// Subject is the verified subject claim, if the strategy has one.
	Subject string
}

// Plain is a Security that encodes its input as JSON
// with no authenticity guarantee.
type Plain struct{}

var _ Security = Plain{}

type plainPackage struct {
	Identity Specification `json:"identity"`
	Claims   plainClaims   `json:"claims"`
}

type plainClaims struct {
	Owner  string `json:"owner"`
	Author string `json:"author,omitempty"`
	Time   int64  `json:"time"`
}

// Package implements Security.Package.
// Only owner, author, and time are recorded;
// the author only if claims has one.
func (Plain) Package(_ context.Context, spec Specification, claims Options) ([]byte, error) {
	p := plainPackage{
		Identity: spec,
		Claims: plainClaims{
			Owner:  claims.Owner(),
			Author: stringVal(claims[AuthorKey]),
			Time:   Millis(claims.Time()),
		},
	}
	if p.Identity == nil {
		p.Identity = Specification{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, PackagingError(err, "encoding plain package")
	}
	return b, nil
}

// Unpackage implements Security.Unpackage.
func (Plain) Unpackage(_ context.Context, packaged []byte, _ Options) (*Unpackaged, error) {
	var p plainPackage
	if err := json.Unmarshal(packaged, &p); err != nil {
		return nil, VerificationError(err, "decoding plain package")
	}
	if p.Identity == nil {
		p.Identity = Specification{}
	}
	return &Unpackaged{
		Identity: p.Identity,
		Claims: Claims{
			Owner:  p.Claims.Owner,
			Author: p.Claims.Author,
			Time:   FromMillis(p.Claims.Time),
		},
	}, nil
}

// Encrypt is the reserved encryption strategy.
// Both of its methods return ErrNotImplemented.
type Encrypt struct{}

var _ Security = Encrypt{}

// Package implements Security.Package.
func (Encrypt) Package(context.Context, Specification, Options) ([]byte, error) {
	return nil, NotImplementedError("encrypt: package")
}

// Unpackage implements Security.Unpackage.
func (Encrypt) Unpackage(context.Context, []byte, Options) (*Unpackaged, error) {
	return nil, NotImplementedError("encrypt: unpackage")
}
