// Package sign implements a tagstore.Security that signs and verifies packages.
//
// A package is a CBOR envelope holding a protected header,
// a payload (the canonical serialization of the Specification),
// and a signature over both.
// When a record's owner is its author,
// the header names the owner as issuer
// and the owner's key signs.
// When they differ,
// the header names the owner as issuer and the author as actor,
// and the author's key signs on the owner's behalf.
//
// The header's subject is the content tag of the payload,
// so a tagstore.SignatureTag collection files a record under the same tag
// a tagstore.ContentHash collection would,
// but the tag is bound to a signature.
package sign

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/tagstore"
)

// Header is the protected header of a signed envelope.
type Header struct {
	Alg      string `cbor:"1,keyasint"`
	Kid      string `cbor:"2,keyasint"` // identity whose key signed
	Issuer   string `cbor:"3,keyasint"`
	Actor    string `cbor:"4,keyasint,omitempty"`
	IssuedAt int64  `cbor:"5,keyasint"` // Unix milliseconds
	Subject  string `cbor:"6,keyasint"`
	Expires  int64  `cbor:"7,keyasint,omitempty"` // Unix milliseconds
}

// Envelope is a signed package.
type Envelope struct {
	Protected []byte `cbor:"1,keyasint"` // encoded Header
	Payload   []byte `cbor:"2,keyasint"`
	Signature []byte `cbor:"3,keyasint"`
}

const sigContext = "tagstore-sig1"

func signingInput(protected, payload []byte) ([]byte, error) {
	return marshal([]interface{}{sigContext, protected, payload})
}

// DecodeEnvelope decodes a signed package without verifying it.
func DecodeEnvelope(packaged []byte) (*Envelope, *Header, error) {
	var env Envelope
	if err := unmarshal(packaged, &env); err != nil {
		return nil, nil, errors.Wrap(err, "decoding envelope")
	}
	var h Header
	if err := unmarshal(env.Protected, &h); err != nil {
		return nil, nil, errors.Wrap(err, "decoding protected header")
	}
	return &env, &h, nil
}

// Security signs packages with keys from a Keyring
// and verifies them against the same (or a public-only) Keyring.
// A signer whose identity is absent from the Keyring is untrusted.
type Security struct {
	keys *Keyring
	hash tagstore.HashFunc
	now  func() time.Time
}

var _ tagstore.SubjectExtractor = (*Security)(nil)

// Option configures a Security.
type Option func(*Security)

// WithHash sets the hash used for the subject claim (default tagstore.SHA256).
func WithHash(h tagstore.HashFunc) Option {
	return func(s *Security) { s.hash = h }
}

// WithClock sets the clock used for expiration checks (default time.Now).
func WithClock(now func() time.Time) Option {
	return func(s *Security) { s.now = now }
}

// New produces a new Security using keys.
func New(keys *Keyring, opts ...Option) *Security {
	s := &Security{keys: keys, hash: tagstore.SHA256, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Package implements tagstore.Security.Package.
func (s *Security) Package(_ context.Context, spec tagstore.Specification, claims tagstore.Options) ([]byte, error) {
	var (
		owner  = claims.Owner()
		author = claims.Author()
	)
	if owner == "" {
		return nil, tagstore.PackagingError(nil, "no owner to sign as")
	}

	key, err := s.keys.Key(author)
	if err != nil {
		return nil, tagstore.PackagingError(err, "getting signing key")
	}
	if !key.CanSign() {
		return nil, tagstore.PackagingError(nil, "no private key for %s", author)
	}

	payload, err := spec.Canonical()
	if err != nil {
		return nil, tagstore.PackagingError(err, "serializing payload")
	}

	h := Header{
		Alg:      key.Alg,
		Kid:      author,
		Issuer:   owner,
		IssuedAt: tagstore.Millis(claims.Time()),
		Subject:  tagstore.EncodeTag(s.hash(payload)),
		Expires:  tagstore.Millis(claims.Expires()),
	}
	if author != owner {
		h.Actor = author
	}

	protected, err := marshal(h)
	if err != nil {
		return nil, tagstore.PackagingError(err, "encoding protected header")
	}
	input, err := signingInput(protected, payload)
	if err != nil {
		return nil, tagstore.PackagingError(err, "encoding signing input")
	}
	sig, err := key.Sign(input)
	if err != nil {
		return nil, tagstore.PackagingError(err, "signing as %s", author)
	}

	b, err := marshal(Envelope{Protected: protected, Payload: payload, Signature: sig})
	if err != nil {
		return nil, tagstore.PackagingError(err, "encoding envelope")
	}
	return b, nil
}

// Subject implements tagstore.SubjectExtractor.
func (s *Security) Subject(packaged []byte) (string, error) {
	_, h, err := DecodeEnvelope(packaged)
	if err != nil {
		return "", err
	}
	return h.Subject, nil
}

// Verify checks the envelope in packaged,
// returning its header and payload.
// Every failure is a tagstore.ErrVerification.
func (s *Security) Verify(packaged []byte) (*Header, []byte, error) {
	env, h, err := DecodeEnvelope(packaged)
	if err != nil {
		return nil, nil, tagstore.VerificationError(err, "malformed package")
	}

	signer := h.Issuer
	if h.Actor != "" {
		signer = h.Actor
	}
	if h.Kid != signer {
		return nil, nil, tagstore.VerificationError(nil, "signed by %s, not %s", h.Kid, signer)
	}

	key, err := s.keys.Key(h.Kid)
	if err != nil {
		return nil, nil, tagstore.VerificationError(err, "untrusted signer")
	}
	if key.Alg != h.Alg {
		return nil, nil, tagstore.VerificationError(nil, "header alg %s does not match %s key", h.Alg, key.Alg)
	}

	input, err := signingInput(env.Protected, env.Payload)
	if err != nil {
		return nil, nil, tagstore.VerificationError(err, "encoding signing input")
	}
	ok, err := key.Verify(input, env.Signature)
	if err != nil {
		return nil, nil, tagstore.VerificationError(err, "checking signature")
	}
	if !ok {
		return nil, nil, tagstore.VerificationError(nil, "bad signature")
	}

	if want := tagstore.EncodeTag(s.hash(env.Payload)); h.Subject != want {
		return nil, nil, tagstore.VerificationError(nil, "subject %s does not match payload", h.Subject)
	}
	if h.Expires != 0 && !s.now().Before(tagstore.FromMillis(h.Expires)) {
		return nil, nil, tagstore.VerificationError(nil, "expired at %s", tagstore.FromMillis(h.Expires))
	}

	return h, env.Payload, nil
}

// Unpackage implements tagstore.Security.Unpackage.
func (s *Security) Unpackage(_ context.Context, packaged []byte, _ tagstore.Options) (*tagstore.Unpackaged, error) {
	h, payload, err := s.Verify(packaged)
	if err != nil {
		return nil, err
	}
	var identity map[string]interface{}
	if err := json.Unmarshal(payload, &identity); err != nil {
		return nil, tagstore.VerificationError(err, "decoding payload")
	}
	if identity == nil {
		identity = map[string]interface{}{}
	}
	return &tagstore.Unpackaged{
		Identity: identity,
		Claims: tagstore.Claims{
			Owner:  h.Issuer,
			Author: h.Actor,
			Time:   tagstore.FromMillis(h.IssuedAt),
		},
		Subject: h.Subject,
	}, nil
}
