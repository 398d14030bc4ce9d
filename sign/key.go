package sign

import (
	"crypto/ed25519"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/pkg/errors"
)

// Signature algorithms.
const (
	Ed25519    = "ed25519"
	Dilithium3 = "dilithium3"
)

// Key is a signing key pair.
// Private is nil in a verification-only Key.
type Key struct {
	Alg     string `cbor:"1,keyasint"`
	Public  []byte `cbor:"2,keyasint"`
	Private []byte `cbor:"3,keyasint,omitempty"`
}

// GenerateKey produces a new Key for the given algorithm.
func GenerateKey(alg string, rand io.Reader) (*Key, error) {
	switch alg {
	case Ed25519:
		pub, priv, err := ed25519.GenerateKey(rand)
		if err != nil {
			return nil, errors.Wrap(err, "generating ed25519 key")
		}
		return &Key{Alg: alg, Public: pub, Private: priv}, nil

	case Dilithium3:
		pub, priv, err := mode3.GenerateKey(rand)
		if err != nil {
			return nil, errors.Wrap(err, "generating dilithium3 key")
		}
		pubBytes, err := pub.MarshalBinary()
		if err != nil {
			return nil, errors.Wrap(err, "marshaling dilithium3 public key")
		}
		privBytes, err := priv.MarshalBinary()
		if err != nil {
			return nil, errors.Wrap(err, "marshaling dilithium3 private key")
		}
		return &Key{Alg: alg, Public: pubBytes, Private: privBytes}, nil
	}
	return nil, fmt.Errorf("unsupported signature algorithm %q", alg)
}

// CanSign tells whether k has private key material.
func (k *Key) CanSign() bool {
	return len(k.Private) > 0
}

// PublicOnly produces a copy of k without its private half.
func (k *Key) PublicOnly() *Key {
	return &Key{Alg: k.Alg, Public: append([]byte(nil), k.Public...)}
}

// Sign signs msg.
func (k *Key) Sign(msg []byte) ([]byte, error) {
	if !k.CanSign() {
		return nil, errors.New("no private key")
	}
	switch k.Alg {
	case Ed25519:
		if len(k.Private) != ed25519.PrivateKeySize {
			return nil, errors.New("invalid ed25519 private key length")
		}
		return ed25519.Sign(ed25519.PrivateKey(k.Private), msg), nil

	case Dilithium3:
		var sk mode3.PrivateKey
		if err := sk.UnmarshalBinary(k.Private); err != nil {
			return nil, errors.Wrap(err, "invalid dilithium3 private key")
		}
		sig := make([]byte, mode3.SignatureSize)
		mode3.SignTo(&sk, msg, sig)
		return sig, nil
	}
	return nil, fmt.Errorf("unsupported signature algorithm %q", k.Alg)
}

// Verify checks sig against msg.
// A non-nil error means the key itself is unusable.
func (k *Key) Verify(msg, sig []byte) (bool, error) {
	switch k.Alg {
	case Ed25519:
		if len(k.Public) != ed25519.PublicKeySize {
			return false, errors.New("invalid ed25519 public key length")
		}
		if len(sig) != ed25519.SignatureSize {
			return false, nil
		}
		return ed25519.Verify(ed25519.PublicKey(k.Public), msg, sig), nil

	case Dilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(k.Public); err != nil {
			return false, errors.Wrap(err, "invalid dilithium3 public key")
		}
		if len(sig) != mode3.SignatureSize {
			return false, nil
		}
		return mode3.Verify(&pk, msg, sig), nil
	}
	return false, fmt.Errorf("unsupported signature algorithm %q", k.Alg)
}
