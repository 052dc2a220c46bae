// Package fs implements a store.Resolver rooted at a local directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/marmos91/fileshover/pkg/store"
)

// Store resolves request paths to regular files under a root directory.
//
// Thread Safety:
// Store holds only the immutable root and is safe for concurrent use. Each
// Resolve opens its own file descriptor.
type Store struct {
	root string
}

var _ store.Resolver = (*Store)(nil)

// New creates a filesystem resolver for root.
//
// The root must exist and be a directory. Unlike a content store, the root is
// never created: serving from a directory that does not exist is a
// configuration error.
//
// Parameters:
//   - root: Directory to serve. Relative paths are made absolute.
//
// Returns:
//   - *Store: Resolver bound to root
//   - error: If root is missing, unreadable or not a directory
func New(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("root directory is required")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %q: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root %q: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %q is not a directory", abs)
	}

	return &Store{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string {
	return s.root
}

// Resolve opens requestPath under the root.
//
// Error mapping:
//   - traversal guard failure: store.KindInvalidPath
//   - target does not exist: store.KindNotFound
//   - anything else, including a directory target or a cancelled context:
//     store.KindIO
func (s *Store) Resolve(ctx context.Context, requestPath string) (*store.FileHandle, error) {
	rel, err := store.CleanRequestPath(requestPath)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, store.IOError(requestPath, err)
	}

	full := filepath.Join(s.root, filepath.FromSlash(rel))

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, store.NotFoundError(requestPath, err)
		}
		return nil, store.IOError(requestPath, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, store.IOError(requestPath, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, store.IOError(requestPath, fmt.Errorf("%s is not a regular file", rel))
	}

	return &store.FileHandle{Reader: f, Size: info.Size()}, nil
}
