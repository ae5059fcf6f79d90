package xerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies comparison failures
type Kind int

const (
	KindInternal Kind = iota
	KindSizeMismatch
	KindContentMismatch
	KindLengthMismatch
	KindTokenMismatch
	KindTypeMismatch
	KindDigestMismatch
	KindRemoteUnavailable
	KindConfiguration
	KindNoPolicyConfirmed
)

// Content mismatch variants
const (
	VariantText   = "text"
	VariantBinary = "binary"
	VariantDigest = "digest"
)

// Error describes why two resources could not be confirmed identical.
// Local and Remote carry the two resource identifiers (Remote holds the
// second local path for local pairs), Expected/Actual the values that
// disagreed.
type Error struct {
	Kind     Kind
	Policy   string
	Variant  string
	Local    string
	Remote   string
	Expected string
	Actual   string
	Detail   string
	Err      error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	if e.Policy != "" {
		b.WriteString(e.Policy)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Variant != "" {
		b.WriteString(" (" + e.Variant + ")")
	}
	if e.Local != "" || e.Remote != "" {
		fmt.Fprintf(&b, " between %s and %s", orUnknown(e.Local), orUnknown(e.Remote))
	}
	if e.Expected != "" || e.Actual != "" {
		fmt.Fprintf(&b, ": expected %s, got %s", orUnknown(e.Expected), orUnknown(e.Actual))
	}
	if e.Detail != "" {
		b.WriteString(" [" + e.Detail + "]")
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error { return e.Err }

func orUnknown(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}

// String returns the stable name of a kind
func (k Kind) String() string {
	switch k {
	case KindSizeMismatch:
		return "size mismatch"
	case KindContentMismatch:
		return "content mismatch"
	case KindLengthMismatch:
		return "length mismatch"
	case KindTokenMismatch:
		return "token mismatch"
	case KindTypeMismatch:
		return "type mismatch"
	case KindDigestMismatch:
		return "digest mismatch"
	case KindRemoteUnavailable:
		return "remote unavailable"
	case KindConfiguration:
		return "configuration error"
	case KindNoPolicyConfirmed:
		return "no policy confirmed"
	default:
		return "internal error"
	}
}

// Mismatch reports whether the kind means the resources were compared and differ
func (k Kind) Mismatch() bool {
	switch k {
	case KindSizeMismatch, KindContentMismatch, KindLengthMismatch,
		KindTokenMismatch, KindTypeMismatch, KindDigestMismatch:
		return true
	default:
		return false
	}
}

// E creates a new error of the given kind
func E(kind Kind, format string, args ...any) *Error {
	e := &Error{Kind: kind}
	if format != "" {
		e.Detail = fmt.Sprintf(format, args...)
	}
	return e
}

// Wrap annotates err with a kind. If err is nil, Wrap returns nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	e := E(kind, format, args...)
	e.Err = err
	return e
}

// KindOf extracts the Kind from err, walking wrapped errors as needed
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// IsMismatch reports whether err means the resources differ
func IsMismatch(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err).Mismatch()
}
