package tagstore

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

// HashFunc computes a digest.
type HashFunc func([]byte) []byte

// Hash functions for content addressing.
var (
	SHA256 HashFunc = func(b []byte) []byte {
		s := sha256.Sum256(b)
		return s[:]
	}
	BLAKE3 HashFunc = func(b []byte) []byte {
		s := blake3.Sum256(b)
		return s[:]
	}
	SHA3 HashFunc = func(b []byte) []byte {
		s := sha3.Sum256(b)
		return s[:]
	}
)

// HashFuncs maps hash names to hash functions.
var HashFuncs = map[string]HashFunc{
	"sha256":   SHA256,
	"blake3":   BLAKE3,
	"sha3-256": SHA3,
}

// EncodeTag encodes a digest as unpadded base64url.
func EncodeTag(digest []byte) string {
	return base64.RawURLEncoding.EncodeToString(digest)
}

// ContentTag is the content-address tag of spec under hash h
// (SHA256 if h is nil).
func ContentTag(h HashFunc, spec Specification) (string, error) {
	if h == nil {
		h = SHA256
	}
	b, err := spec.Canonical()
	if err != nil {
		return "", err
	}
	return EncodeTag(h(b)), nil
}
