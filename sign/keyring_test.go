package sign

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKeyringMarshal(t *testing.T) {
	keys := NewKeyring()
	if _, err := keys.Generate("alice", Ed25519); err != nil {
		t.Fatal(err)
	}
	if _, err := keys.Generate("bob", Dilithium3); err != nil {
		t.Fatal(err)
	}

	b, err := keys.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	keys2 := NewKeyring()
	if err = keys2.UnmarshalBinary(b); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"alice", "bob"}, keys2.Identities()); diff != "" {
		t.Errorf("identities mismatch (-want +got):\n%s", diff)
	}

	msg := []byte("hello")
	for _, id := range keys.Identities() {
		k1, err := keys.Key(id)
		if err != nil {
			t.Fatal(err)
		}
		k2, err := keys2.Key(id)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(k1, k2); diff != "" {
			t.Errorf("%s: key mismatch (-want +got):\n%s", id, diff)
		}
		sig, err := k2.Sign(msg)
		if err != nil {
			t.Fatal(err)
		}
		ok, err := k1.PublicOnly().Verify(msg, sig)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Errorf("%s: signature by unmarshaled key does not verify", id)
		}
	}

	if _, err = keys2.Key("carol"); !errors.Is(err, ErrUnknownIdentity) {
		t.Errorf("got error %v, want ErrUnknownIdentity", err)
	}
}

func TestKeys(t *testing.T) {
	msg := []byte("hello")
	for _, alg := range []string{Ed25519, Dilithium3} {
		t.Run(alg, func(t *testing.T) {
			k, err := GenerateKey(alg, rand.Reader)
			if err != nil {
				t.Fatal(err)
			}
			sig, err := k.Sign(msg)
			if err != nil {
				t.Fatal(err)
			}

			pub := k.PublicOnly()
			if pub.CanSign() {
				t.Error("public-only key can sign")
			}
			if _, err = pub.Sign(msg); err == nil {
				t.Error("public-only key produced a signature")
			}

			ok, err := pub.Verify(msg, sig)
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				t.Error("signature does not verify")
			}
			ok, err = pub.Verify([]byte("goodbye"), sig)
			if err != nil {
				t.Fatal(err)
			}
			if ok {
				t.Error("signature verifies for the wrong message")
			}
			ok, err = pub.Verify(msg, sig[1:])
			if err != nil {
				t.Fatal(err)
			}
			if ok {
				t.Error("truncated signature verifies")
			}
		})
	}

	if _, err := GenerateKey("rot13", rand.Reader); err == nil {
		t.Error("got no error for unknown algorithm")
	}
}
