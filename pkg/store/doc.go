// Package store maps untrusted request paths to readable content.
//
// A Resolver owns a root (a directory, a bucket prefix) and turns the path
// component of a request into a FileHandle. Every backend runs the same
// traversal guard, CleanRequestPath, before touching storage, so a path that
// could name something outside the root never reaches the backend.
//
// Failures are reported as *PathError. Protocol handlers map them with
// errors.Is:
//
//	h, err := resolver.Resolve(ctx, req.Path)
//	switch {
//	case errors.Is(err, store.ErrNotFound):
//	    // 404
//	case err != nil:
//	    // 500
//	}
package store
