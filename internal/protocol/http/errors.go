package http

import "errors"

// ErrorKind classifies request decoding failures.
type ErrorKind int

const (
	// ErrorKindIO is a failure of the underlying stream, including end of
	// stream before the blank line that terminates the header block.
	ErrorKindIO ErrorKind = iota

	// ErrorKindInvalidFormat is any grammar violation: wrong number of
	// request-line tokens, unsupported method, malformed header line, or a
	// line or header block over the size limits.
	ErrorKindInvalidFormat

	// ErrorKindMissingHeader is reserved for required-header validation.
	// No header is currently mandatory.
	ErrorKindMissingHeader
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindIO:
		return "io"
	case ErrorKindInvalidFormat:
		return "invalid format"
	case ErrorKindMissingHeader:
		return "missing header"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against a *RequestError of the same kind.
var (
	ErrIO            = errors.New("request read failed")
	ErrInvalidFormat = errors.New("invalid request format")
	ErrMissingHeader = errors.New("missing required header")
)

// RequestError is returned by ReadRequest.
type RequestError struct {
	Kind ErrorKind

	// Detail describes which rule was violated. Empty for IO errors.
	Detail string

	// Header names the missing header for ErrorKindMissingHeader.
	Header string

	// Err is the underlying stream error for ErrorKindIO.
	Err error
}

func (e *RequestError) Error() string {
	switch e.Kind {
	case ErrorKindIO:
		if e.Err != nil {
			return "IO error: " + e.Err.Error()
		}
		return "IO error"
	case ErrorKindMissingHeader:
		return "Missing required header: " + e.Header
	default:
		if e.Detail != "" {
			return "Invalid request format: " + e.Detail
		}
		return "Invalid request format"
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is lets callers match on the kind sentinels.
func (e *RequestError) Is(target error) bool {
	switch target {
	case ErrIO:
		return e.Kind == ErrorKindIO
	case ErrInvalidFormat:
		return e.Kind == ErrorKindInvalidFormat
	case ErrMissingHeader:
		return e.Kind == ErrorKindMissingHeader
	}
	return false
}

func invalidFormat(detail string) *RequestError {
	return &RequestError{Kind: ErrorKindInvalidFormat, Detail: detail}
}

func ioError(err error) *RequestError {
	return &RequestError{Kind: ErrorKindIO, Err: err}
}
