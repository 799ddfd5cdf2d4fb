package store

import "fmt"

// Kind classifies a persistence failure.
type Kind uint8

const (
	KindNotFound Kind = iota + 1
	KindInvalid
	KindCorrupt
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalid:
		return "invalid input"
	case KindCorrupt:
		return "corrupt record"
	default:
		return "store error"
	}
}

// Error is a persistence failure for one key or row.
type Error struct {
	Kind Kind
	Key  string // settings key or sound id, empty on the sentinels
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Key != "" {
		msg = e.Key + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so callers compare against the
// sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrInvalidInput = &Error{Kind: KindInvalid}
	ErrCorrupt      = &Error{Kind: KindCorrupt}
)

// NotFound reports that nothing is stored under key.
func NotFound(key string) error {
	return &Error{Kind: KindNotFound, Key: key}
}

// Invalid rejects a write for key before it reaches the database.
func Invalid(key, format string, args ...any) error {
	return &Error{Kind: KindInvalid, Key: key, Err: fmt.Errorf(format, args...)}
}

// Corrupt reports a stored value under key that cannot be decoded.
func Corrupt(key string, err error) error {
	return &Error{Kind: KindCorrupt, Key: key, Err: err}
}
