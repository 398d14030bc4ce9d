package sign

import (
	"crypto/rand"
	stderrs "errors"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrUnknownIdentity is returned for identities with no key in a Keyring.
var ErrUnknownIdentity = stderrs.New("unknown identity")

// Keyring maps identities to keys.
// It is safe for concurrent use.
type Keyring struct {
	mu   sync.RWMutex
	keys map[string]*Key
}

// NewKeyring produces an empty Keyring.
func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[string]*Key)}
}

// Add sets the key for identity, replacing any previous one.
func (r *Keyring) Add(identity string, k *Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[identity] = k
}

// Generate creates a key for identity with the given algorithm and adds it to r.
func (r *Keyring) Generate(identity, alg string) (*Key, error) {
	k, err := GenerateKey(alg, rand.Reader)
	if err != nil {
		return nil, errors.Wrapf(err, "generating key for %s", identity)
	}
	r.Add(identity, k)
	return k, nil
}

// Key gets the key for identity.
func (r *Keyring) Key(identity string) (*Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if k, ok := r.keys[identity]; ok {
		return k, nil
	}
	return nil, errors.Wrap(ErrUnknownIdentity, identity)
}

// Identities lists the identities in r in lexicographic order.
func (r *Keyring) Identities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]string, 0, len(r.keys))
	for id := range r.keys {
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}

// PublicOnly produces a copy of r that can verify but not sign.
func (r *Keyring) PublicOnly() *Keyring {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := NewKeyring()
	for id, k := range r.keys {
		result.keys[id] = k.PublicOnly()
	}
	return result
}

// MarshalBinary encodes r as CBOR.
func (r *Keyring) MarshalBinary() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return marshal(r.keys)
}

// UnmarshalBinary replaces the contents of r with the decoding of b.
func (r *Keyring) UnmarshalBinary(b []byte) error {
	var keys map[string]*Key
	if err := unmarshal(b, &keys); err != nil {
		return errors.Wrap(err, "decoding keyring")
	}
	if keys == nil {
		keys = make(map[string]*Key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = keys
	return nil
}
