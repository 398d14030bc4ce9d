package tagstore

import (
	stderrs "errors"

	"github.com/pkg/errors"
)

// Error kinds.
// Test for them with errors.Is.
var (
	// ErrNotFound is the error returned
	// when a Backend has nothing stored under a tag.
	ErrNotFound = stderrs.New("not found")

	// ErrPackaging means an Identity or Security strategy could not produce a blob or tag,
	// e.g. for lack of key material.
	ErrPackaging = stderrs.New("packaging failed")

	// ErrVerification means a packaged blob failed authentication:
	// a bad signature, an expired envelope, or an untrusted signer.
	ErrVerification = stderrs.New("verification failed")

	// ErrStorage is a backend-level fault such as an I/O failure.
	ErrStorage = stderrs.New("storage fault")

	// ErrNotImplemented is returned by capabilities that exist in name only.
	ErrNotImplemented = stderrs.New("not implemented")
)

var kinds = []error{ErrNotFound, ErrPackaging, ErrVerification, ErrStorage, ErrNotImplemented}

type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string        { return e.kind.Error() + ": " + e.err.Error() }
func (e *kindError) Unwrap() error        { return e.err }
func (e *kindError) Cause() error         { return e.err }
func (e *kindError) Is(target error) bool { return target == e.kind }

func mark(kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return &kindError{kind: kind, err: errors.Errorf(format, args...)}
	}
	return &kindError{kind: kind, err: errors.Wrapf(err, format, args...)}
}

// PackagingError marks err (which may be nil) as an ErrPackaging with the given context.
func PackagingError(err error, format string, args ...interface{}) error {
	return mark(ErrPackaging, err, format, args...)
}

// VerificationError marks err (which may be nil) as an ErrVerification with the given context.
func VerificationError(err error, format string, args ...interface{}) error {
	return mark(ErrVerification, err, format, args...)
}

// StorageError marks err (which may be nil) as an ErrStorage with the given context.
func StorageError(err error, format string, args ...interface{}) error {
	return mark(ErrStorage, err, format, args...)
}

// NotImplementedError reports that the named capability has no implementation.
func NotImplementedError(capability string) error {
	return mark(ErrNotImplemented, nil, "%s", capability)
}

// IsNotFound tells whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return stderrs.Is(err, ErrNotFound)
}

// Kinded tells whether err already carries one of the error kinds in this package.
func Kinded(err error) bool {
	for _, k := range kinds {
		if stderrs.Is(err, k) {
			return true
		}
	}
	return false
}
