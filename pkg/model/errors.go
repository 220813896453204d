package model

import "fmt"

// Kind is the speedupdate error taxonomy from the core design: a fixed
// set of kinds rather than a proliferation of language-level error
// types, so callers can match on Kind and still get structured context.
type Kind int

// The error kinds named by the core design.
const (
	KindUnknown Kind = iota
	KindInvalidName
	KindNotFound
	KindAlreadyExists
	KindInUse
	KindIoError
	KindCodecError
	KindIntegrityMismatch
	KindNoAvailablePath
	KindSchemaError
	KindBusy
	KindCancelled
)

var kindNames = map[Kind]string{
	KindUnknown:           "Unknown",
	KindInvalidName:       "InvalidName",
	KindNotFound:          "NotFound",
	KindAlreadyExists:     "AlreadyExists",
	KindInUse:             "InUse",
	KindIoError:           "IoError",
	KindCodecError:        "CodecError",
	KindIntegrityMismatch: "IntegrityMismatch",
	KindNoAvailablePath:   "NoAvailablePath",
	KindSchemaError:       "SchemaError",
	KindBusy:              "Busy",
	KindCancelled:         "Cancelled",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Error is the structured error every speedupdate component returns.
// Path, Codec and Revision are filled in as available; the zero value
// means "not applicable to this error."
type Error struct {
	Kind     Kind
	Path     string
	Codec    string
	Revision string
	msg      string
	cause    error
}

// NewError builds a formatted Error of the given kind.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// WithPath attaches path context and returns the same error for chaining.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithCodec attaches codec context and returns the same error for chaining.
func (e *Error) WithCodec(codec string) *Error {
	e.Codec = codec
	return e
}

// WithRevision attaches revision context and returns the same error for chaining.
func (e *Error) WithRevision(revision string) *Error {
	e.Revision = revision
	return e
}

// WithCause sets the wrapped cause and returns the same error for chaining.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	s := e.msg
	if e.Path != "" {
		s = fmt.Sprintf("%s (path=%s)", s, e.Path)
	}
	if e.Codec != "" {
		s = fmt.Sprintf("%s (codec=%s)", s, e.Codec)
	}
	if e.Revision != "" {
		s = fmt.Sprintf("%s (revision=%s)", s, e.Revision)
	}
	if e.cause != nil {
		s = fmt.Sprintf("%s: %s", s, e.cause)
	}
	return s
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether err is a *Error of the same Kind, so callers can
// write errors.Is(err, model.KindKey(model.KindNotFound)).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind && other.msg == "" && other.Path == "" && other.Codec == "" && other.Revision == ""
}

// KindKey builds a bare sentinel of the given kind, suitable as the
// target of errors.Is(err, model.KindKey(model.KindNotFound)).
func KindKey(kind Kind) *Error {
	return &Error{Kind: kind}
}

// KindOf extracts the Kind of err if it (or something it wraps) is a
// *Error, and KindUnknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	for err != nil {
		if asErr, ok := err.(*Error); ok {
			e = asErr
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return KindUnknown
	}
	return e.Kind
}
