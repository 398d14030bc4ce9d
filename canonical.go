package tagstore

import (
	"sort"

	canonicaljson "github.com/gibson042/canonicaljson-go"
	"github.com/pkg/errors"
)

// Specification is the canonical, metadata-free view of a Record.
type Specification map[string]interface{}

// Canonicalize produces the Specification of r:
// every field of r whose name is not a key in opts.
// Neither argument is modified.
//
// A Specification shares field values with r,
// but not r's map,
// so later changes to r's top-level fields do not show through.
func Canonicalize(r Record, opts Options) Specification {
	spec := make(Specification, len(r))
	for _, k := range sortedKeys(r) {
		if _, ok := opts[k]; ok {
			continue
		}
		spec[k] = r[k]
	}
	return spec
}

// Keys produces the field names of s in lexicographic order.
func (s Specification) Keys() []string {
	return sortedKeys(s)
}

// Canonical produces the serialization of s that is hashed and signed.
// Field names are sorted at every level,
// so two Specifications with equal fields serialize identically
// regardless of how they were built.
// An empty Specification serializes as {}.
func (s Specification) Canonical() ([]byte, error) {
	m := map[string]interface{}(s)
	if m == nil {
		m = map[string]interface{}{}
	}
	b, err := canonicaljson.Marshal(m)
	return b, errors.Wrap(err, "serializing specification")
}

func sortedKeys[M ~map[string]interface{}](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
