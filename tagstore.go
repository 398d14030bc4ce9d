package tagstore

import (
	"fmt"
	"time"
)

// Names of the recognized metadata fields, and of the option keys the Collection adds.
const (
	OwnerKey      = "owner"
	AuthorKey     = "author"
	AudienceKey   = "audience"
	AntecedentKey = "antecedent"

	// TimeKey is the option giving the time a record is stored.
	TimeKey = "time"

	// ExpiresKey is the option giving the time after which a signed package is no longer valid.
	ExpiresKey = "expires"

	// TimestampKey is the field carrying the storage time on a retrieved record.
	TimestampKey = "timestamp"
)

type (
	// Record is a persistable bag of fields.
	// The caller owns it; nothing in this module mutates it.
	Record map[string]interface{}

	// Options is a snapshot of a record's metadata plus caller overrides.
	Options map[string]interface{}
)

// Clone produces a shallow copy of o.
func (o Options) Clone() Options {
	result := make(Options, len(o))
	for k, v := range o {
		result[k] = v
	}
	return result
}

// Owner is the owner identity in o, or "".
func (o Options) Owner() string {
	return stringVal(o[OwnerKey])
}

// Author is the author identity in o.
// It defaults to Owner.
func (o Options) Author() string {
	if a := stringVal(o[AuthorKey]); a != "" {
		return a
	}
	return o.Owner()
}

// Time is the storage time in o,
// or the zero time if none was given.
func (o Options) Time() time.Time {
	return timeVal(o[TimeKey])
}

// Expires is the expiration time in o,
// or the zero time if none was given.
func (o Options) Expires() time.Time {
	return timeVal(o[ExpiresKey])
}

func stringVal(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Times may be given as time.Time or as Unix milliseconds.
func timeVal(v interface{}) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case int64:
		return time.UnixMilli(v).UTC()
	case int:
		return time.UnixMilli(int64(v)).UTC()
	case float64:
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Time{}
}

// Millis converts t to Unix milliseconds, with 0 for the zero time.
func Millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromMillis is the inverse of Millis.
// Nonzero results are in UTC.
func FromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// Claims is the attribution carried inside a packaged blob.
type Claims struct {
	Owner  string
	Author string // empty when the owner wrote the record
	Time   time.Time
}

// Merge produces a copy of identity with the claims restored onto it:
// owner and timestamp always,
// author only when it differs from owner.
func (c Claims) Merge(identity map[string]interface{}) Record {
	result := make(Record, len(identity)+3)
	for k, v := range identity {
		result[k] = v
	}
	if c.Author != "" && c.Author != c.Owner {
		result[AuthorKey] = c.Author
	}
	result[OwnerKey] = c.Owner
	result[TimestampKey] = c.Time
	return result
}
