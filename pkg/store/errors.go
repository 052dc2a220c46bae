package store

import (
	"errors"
	"fmt"
)

// Kind classifies resolver failures.
type Kind int

const (
	// KindInvalidPath: the request path failed the traversal guard.
	KindInvalidPath Kind = iota + 1

	// KindNotFound: the target does not exist under the root.
	KindNotFound

	// KindIO: any other failure opening or measuring the target, including
	// a target that is a directory.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindInvalidPath:
		return "invalid path"
	case KindNotFound:
		return "not found"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidPath matches a *PathError of KindInvalidPath.
	ErrInvalidPath = errors.New("invalid path")

	// ErrNotFound matches a *PathError of KindNotFound.
	ErrNotFound = errors.New("file not found")

	// ErrIO matches a *PathError of KindIO.
	ErrIO = errors.New("io error")
)

// PathError records a failed Resolve.
type PathError struct {
	Kind Kind

	// Path is the request path as received.
	Path string

	// Detail says which guard rule rejected an invalid path.
	Detail string

	// Err is the underlying backend error, if any.
	Err error
}

func (e *PathError) Error() string {
	msg := fmt.Sprintf("resolve %q: %s", e.Path, e.Kind)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func (e *PathError) Is(target error) bool {
	switch target {
	case ErrInvalidPath:
		return e.Kind == KindInvalidPath
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrIO:
		return e.Kind == KindIO
	}
	return false
}

// NotFoundError builds a KindNotFound error for backends.
func NotFoundError(path string, err error) *PathError {
	return &PathError{Kind: KindNotFound, Path: path, Err: err}
}

// IOError builds a KindIO error for backends.
func IOError(path string, err error) *PathError {
	return &PathError{Kind: KindIO, Path: path, Err: err}
}

// KindOf returns the Kind carried by err, or 0 if err is not a *PathError.
func KindOf(err error) Kind {
	var pe *PathError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

func invalidPath(path, detail string) *PathError {
	return &PathError{Kind: KindInvalidPath, Path: path, Detail: detail}
}
