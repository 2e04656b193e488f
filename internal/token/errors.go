package token

import "fmt"

// Kind classifies why a token was rejected. Callers respond differently
// per kind: expired tokens prompt a re-login, malformed tokens and bad
// signatures are treated as hostile.
type Kind int

const (
	KindMalformed Kind = iota + 1
	KindBadSignature
	KindExpired
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindBadSignature:
		return "bad_signature"
	case KindExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Error is returned by Codec.Validate.
type Error struct {
	Kind Kind
	Err  error
}

var (
	ErrMalformed    = &Error{Kind: KindMalformed}
	ErrBadSignature = &Error{Kind: KindBadSignature}
	ErrExpired      = &Error{Kind: KindExpired}
)

func (e *Error) Error() string {
	if e.Err == nil {
		return "token " + e.Kind.String()
	}
	return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrExpired)
// works regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
