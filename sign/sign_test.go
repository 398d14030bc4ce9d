package sign

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/tagstore"
	"github.com/bobg/tagstore/store/mem"
)

var when = time.UnixMilli(1700000000000).UTC()

func testKeyring(t *testing.T, alg string, identities ...string) *Keyring {
	keys := NewKeyring()
	for _, id := range identities {
		if _, err := keys.Generate(id, alg); err != nil {
			t.Fatal(err)
		}
	}
	return keys
}

func TestSignedCollection(t *testing.T) {
	for _, alg := range []string{Ed25519, Dilithium3} {
		alg := alg
		t.Run(alg, func(t *testing.T) {
			var (
				ctx     = context.Background()
				keys    = testKeyring(t, alg, "me", "team")
				backend = mem.New()
			)

			signer, err := tagstore.New(tagstore.Config{
				Name:     "signed",
				Security: New(keys),
				Identity: tagstore.SignatureTag{},
				Backend:  backend,
			})
			if err != nil {
				t.Fatal(err)
			}
			verifier, err := tagstore.New(tagstore.Config{
				Name:     "signed",
				Security: New(keys.PublicOnly()),
				Identity: tagstore.SignatureTag{},
				Backend:  backend,
			})
			if err != nil {
				t.Fatal(err)
			}

			r := tagstore.Record{
				"c":      4,
				"d":      "bar",
				"b":      map[string]interface{}{"x": 2, "y": 3},
				"a":      []interface{}{1, "foo"},
				"owner":  "team",
				"author": "me",
			}
			tag, err := signer.Store(ctx, r, tagstore.Options{tagstore.TimeKey: when})
			if err != nil {
				t.Fatal(err)
			}

			wantTag, err := tagstore.ContentTag(tagstore.SHA256, tagstore.Canonicalize(r, tagstore.Options{"owner": nil, "author": nil}))
			if err != nil {
				t.Fatal(err)
			}
			if tag != wantTag {
				t.Errorf("got tag %s, want content tag %s", tag, wantTag)
			}

			got, err := verifier.Retrieve(ctx, tag, nil)
			if err != nil {
				t.Fatal(err)
			}
			want := tagstore.Record{
				"a":         []interface{}{float64(1), "foo"},
				"b":         map[string]interface{}{"x": float64(2), "y": float64(3)},
				"c":         float64(4),
				"d":         "bar",
				"owner":     "team",
				"author":    "me",
				"timestamp": when,
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSameTagAsContentHash(t *testing.T) {
	var (
		ctx = context.Background()
		r   = tagstore.Record{"x": "y", "owner": "me"}
	)

	plain, err := tagstore.New(tagstore.Config{Name: "plain", Backend: mem.New()})
	if err != nil {
		t.Fatal(err)
	}
	signed, err := tagstore.New(tagstore.Config{
		Name:     "signed",
		Security: New(testKeyring(t, Ed25519, "me")),
		Identity: tagstore.SignatureTag{},
		Backend:  mem.New(),
	})
	if err != nil {
		t.Fatal(err)
	}

	tag1, err := plain.Store(ctx, r, nil)
	if err != nil {
		t.Fatal(err)
	}
	tag2, err := signed.Store(ctx, r, nil)
	if err != nil {
		t.Fatal(err)
	}
	if tag1 != tag2 {
		t.Errorf("content tag %s differs from signature tag %s", tag1, tag2)
	}
}

func packageTeam(t *testing.T, s *Security) []byte {
	packaged, err := s.Package(context.Background(), tagstore.Specification{"x": "y"}, tagstore.Options{
		tagstore.OwnerKey:  "team",
		tagstore.AuthorKey: "me",
		tagstore.TimeKey:   when,
	})
	if err != nil {
		t.Fatal(err)
	}
	return packaged
}

func reencode(t *testing.T, env *Envelope, h *Header) []byte {
	protected, err := marshal(h)
	if err != nil {
		t.Fatal(err)
	}
	env.Protected = protected
	b, err := marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestTampering(t *testing.T) {
	var (
		ctx  = context.Background()
		keys = testKeyring(t, Ed25519, "me", "you", "team")
		s    = New(keys)
	)

	packaged := packageTeam(t, s)

	h, _, err := s.Verify(packaged)
	if err != nil {
		t.Fatal(err)
	}
	if h.Issuer != "team" || h.Actor != "me" || h.Kid != "me" {
		t.Errorf("got issuer %s, actor %s, kid %s", h.Issuer, h.Actor, h.Kid)
	}

	cases := map[string]func(*Envelope, *Header){
		"actor": func(_ *Envelope, h *Header) {
			h.Actor = "you"
		},
		"actor and kid": func(_ *Envelope, h *Header) {
			h.Actor = "you"
			h.Kid = "you"
		},
		"issuer": func(_ *Envelope, h *Header) {
			h.Issuer = "you"
		},
		"no actor": func(_ *Envelope, h *Header) {
			h.Actor = ""
		},
		"time": func(_ *Envelope, h *Header) {
			h.IssuedAt++
		},
		"payload": func(env *Envelope, _ *Header) {
			env.Payload = []byte(`{"x":"z"}`)
		},
		"payload and subject": func(env *Envelope, h *Header) {
			env.Payload = []byte(`{"x":"z"}`)
			h.Subject = tagstore.EncodeTag(tagstore.SHA256(env.Payload))
		},
		"signature": func(env *Envelope, _ *Header) {
			env.Signature[0] ^= 1
		},
	}

	for name, tamper := range cases {
		tamper := tamper
		t.Run(name, func(t *testing.T) {
			env, h, err := DecodeEnvelope(packaged)
			if err != nil {
				t.Fatal(err)
			}
			env.Signature = append([]byte(nil), env.Signature...)
			tamper(env, h)
			_, err = s.Unpackage(ctx, reencode(t, env, h), nil)
			if !errors.Is(err, tagstore.ErrVerification) {
				t.Errorf("got error %v, want ErrVerification", err)
			}
		})
	}

	t.Run("garbage", func(t *testing.T) {
		_, err := s.Unpackage(ctx, []byte("garbage"), nil)
		if !errors.Is(err, tagstore.ErrVerification) {
			t.Errorf("got error %v, want ErrVerification", err)
		}
	})
}

func TestUntrustedSigner(t *testing.T) {
	var (
		ctx      = context.Background()
		signer   = New(testKeyring(t, Ed25519, "me", "team"))
		verifier = New(testKeyring(t, Ed25519, "team"))
	)
	packaged := packageTeam(t, signer)
	_, err := verifier.Unpackage(ctx, packaged, nil)
	if !errors.Is(err, tagstore.ErrVerification) {
		t.Errorf("got error %v, want ErrVerification", err)
	}
	if tagstore.IsNotFound(err) {
		t.Error("verification error is also a not-found error")
	}

	// Same identity, different key.
	impostor := New(testKeyring(t, Ed25519, "me", "team"))
	_, err = impostor.Unpackage(ctx, packaged, nil)
	if !errors.Is(err, tagstore.ErrVerification) {
		t.Errorf("got error %v, want ErrVerification", err)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := context.Background()
	keys := testKeyring(t, Ed25519, "me")

	c, err := tagstore.New(tagstore.Config{
		Name:     "signed",
		Security: New(keys),
		Identity: tagstore.SignatureTag{},
		Backend:  mem.New(),
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Store(ctx, tagstore.Record{"owner": "stranger"}, nil)
	if !errors.Is(err, tagstore.ErrPackaging) {
		t.Errorf("unknown identity: got error %v, want ErrPackaging", err)
	}

	pub, err := tagstore.New(tagstore.Config{
		Name:     "signed",
		Security: New(keys.PublicOnly()),
		Backend:  mem.New(),
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = pub.Store(ctx, tagstore.Record{"owner": "me"}, nil)
	if !errors.Is(err, tagstore.ErrPackaging) {
		t.Errorf("public key only: got error %v, want ErrPackaging", err)
	}
}

func TestExpires(t *testing.T) {
	var (
		ctx  = context.Background()
		keys = testKeyring(t, Ed25519, "me")
		spec = tagstore.Specification{"x": "y"}
		opts = tagstore.Options{
			tagstore.OwnerKey:   "me",
			tagstore.TimeKey:    when,
			tagstore.ExpiresKey: when.Add(time.Hour),
		}
	)

	packaged, err := New(keys).Package(ctx, spec, opts)
	if err != nil {
		t.Fatal(err)
	}

	early := New(keys, WithClock(func() time.Time { return when.Add(time.Minute) }))
	if _, err = early.Unpackage(ctx, packaged, nil); err != nil {
		t.Errorf("before expiration: %s", err)
	}

	late := New(keys, WithClock(func() time.Time { return when.Add(2 * time.Hour) }))
	_, err = late.Unpackage(ctx, packaged, nil)
	if !errors.Is(err, tagstore.ErrVerification) {
		t.Errorf("after expiration: got error %v, want ErrVerification", err)
	}
}

func TestWithHash(t *testing.T) {
	var (
		ctx  = context.Background()
		keys = testKeyring(t, Ed25519, "me")
		spec = tagstore.Specification{"x": "y"}
		opts = tagstore.Options{tagstore.OwnerKey: "me"}
		s    = New(keys, WithHash(tagstore.BLAKE3))
	)

	packaged, err := s.Package(ctx, spec, opts)
	if err != nil {
		t.Fatal(err)
	}
	sub, err := s.Subject(packaged)
	if err != nil {
		t.Fatal(err)
	}
	want, err := tagstore.ContentTag(tagstore.BLAKE3, spec)
	if err != nil {
		t.Fatal(err)
	}
	if sub != want {
		t.Errorf("got subject %s, want %s", sub, want)
	}

	// A verifier hashing differently rejects the subject.
	_, err = New(keys).Unpackage(ctx, packaged, nil)
	if !errors.Is(err, tagstore.ErrVerification) {
		t.Errorf("got error %v, want ErrVerification", err)
	}
}

func TestSwappedBlob(t *testing.T) {
	var (
		ctx     = context.Background()
		backend = mem.New()
	)
	c, err := tagstore.New(tagstore.Config{
		Name:     "signed",
		Security: New(testKeyring(t, Ed25519, "me")),
		Identity: tagstore.SignatureTag{},
		Backend:  backend,
	})
	if err != nil {
		t.Fatal(err)
	}

	tagA, err := c.Store(ctx, tagstore.Record{"owner": "me", "pay": 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tagB, err := c.Store(ctx, tagstore.Record{"owner": "me", "pay": 1000000}, nil)
	if err != nil {
		t.Fatal(err)
	}
	blobB, err := backend.Retrieve(ctx, "signed", tagB)
	if err != nil {
		t.Fatal(err)
	}

	// A validly signed blob under someone else's tag.
	if err = backend.Store(ctx, "signed", tagA, blobB); err != nil {
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
