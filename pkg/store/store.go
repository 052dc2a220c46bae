package store

import (
	"context"
	"io"
	"strings"
	"unicode/utf8"
)

// Resolver resolves request paths against a fixed root.
//
// Implementations must be safe for concurrent use; the root is set at
// construction and never changes.
type Resolver interface {
	// Resolve opens the content named by requestPath for reading.
	//
	// The returned handle is owned by the caller, who must Close its Reader.
	Resolve(ctx context.Context, requestPath string) (*FileHandle, error)
}

// FileHandle is an open, readable file positioned at offset 0 together with
// its length in bytes at open time.
type FileHandle struct {
	Reader io.ReadCloser
	Size   int64
}

// Close releases the underlying reader. It is safe to call on a nil handle.
func (h *FileHandle) Close() error {
	if h == nil || h.Reader == nil {
		return nil
	}
	return h.Reader.Close()
}

// CleanRequestPath strips one leading "/" from requestPath and returns the
// remainder if it is safe to join onto a root.
//
// The path is rejected with KindInvalidPath when the remainder is empty, is
// "." or "..", contains ".." anywhere, is not valid UTF-8, or contains a NUL
// byte. No normalisation beyond the single slash strip is performed.
func CleanRequestPath(requestPath string) (string, error) {
	rel := strings.TrimPrefix(requestPath, "/")

	switch {
	case rel == "", rel == ".", rel == "..":
		return "", invalidPath(requestPath, "empty or dot path")
	case strings.Contains(rel, ".."):
		return "", invalidPath(requestPath, "parent reference")
	case !utf8.ValidString(rel):
		return "", invalidPath(requestPath, "invalid encoding")
	case strings.IndexByte(rel, 0) >= 0:
		return "", invalidPath(requestPath, "NUL byte")
	}

	return rel, nil
}
