package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the HTTP layer can map it to a status code.
type Kind int

const (
	// KindIO is an unexpected filesystem or encoder failure.
	KindIO Kind = iota
	// KindPathEscape means a path resolved outside its bounding root.
	KindPathEscape
	// KindNotFound means the requested file or folder does not exist.
	KindNotFound
	// KindUnsupportedFormat means no decoder handles the file's extension.
	KindUnsupportedFormat
	// KindCorruptFile means the bytes exist but cannot be decoded.
	KindCorruptFile
	// KindInvalidOperation means the request itself is malformed.
	KindInvalidOperation
	// KindPermissionDenied means the filesystem refuses the mutation.
	KindPermissionDenied
	// KindUnauthorized means a write was attempted without a valid session.
	KindUnauthorized
)

// String returns the string representation of a kind
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io_error"
	case KindPathEscape:
		return "path_escape"
	case KindNotFound:
		return "not_found"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindCorruptFile:
		return "corrupt_file"
	case KindInvalidOperation:
		return "invalid_operation"
	case KindPermissionDenied:
		return "permission_denied"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Sentinels for errors.Is matching. An *Error matches the sentinel of its Kind.
var (
	ErrIO                = &Error{Kind: KindIO}
	ErrPathEscape        = &Error{Kind: KindPathEscape}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat}
	ErrCorruptFile       = &Error{Kind: KindCorruptFile}
	ErrInvalidOperation  = &Error{Kind: KindInvalidOperation}
	ErrPermissionDenied  = &Error{Kind: KindPermissionDenied}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
)

// Error is the tagged error returned by every core operation.
//
// Path holds the caller-supplied relative path only. Absolute filesystem
// locations belong in Err, which is logged but never shown to clients.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Msg  string
	Err  error
}

// New creates an error of the given kind.
func New(kind Kind, op, path, msg string) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Msg: msg}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// PublicMessage is safe to return to an unauthenticated client.
func (e *Error) PublicMessage() string {
	switch e.Kind {
	case KindPathEscape:
		return "access denied: path outside allowed root"
	case KindUnauthorized:
		return "not authenticated"
	case KindIO:
		return "internal error"
	}
	if e.Msg != "" {
		return e.Msg
	}
	switch e.Kind {
	case KindNotFound:
		return "not found"
	case KindUnsupportedFormat:
		return "unsupported image format"
	case KindCorruptFile:
		return "image could not be decoded"
	case KindInvalidOperation:
		return "invalid request"
	case KindPermissionDenied:
		return "permission denied"
	}
	return "internal error"
}

// KindOf returns the kind of err, or KindIO if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindIO
}
