// Package storage defines the abstract object-store contract the table
// engine consumes. Concrete backends - an in-memory store for
// tests and a local-filesystem store - live in sibling packages so this
// package stays free of any particular backend's dependencies.
package storage

import (
	"context"
	"io"

	tableerrors "github.com/kartikbazzad/deltalog/internal/errors"
)

// ErrNotFound and ErrAlreadyExists are the two backend conditions the
// engine treats specially: a log-read miss becomes EndOfLog, and a
// commit-time rename collision is retried by CommitWith and becomes
// VersionAlreadyExists in CommitVersion. Backends
// must return errors satisfying errors.Is against these.
var (
	ErrNotFound      = tableerrors.ErrNotFound
	ErrAlreadyExists = tableerrors.ErrAlreadyExists
)

// ObjectMeta describes a single object's path and modification time.
// ModifiedSecs is the object's modification time in seconds, the unit
// every log-entry timestamp comparison in the engine uses.
type ObjectMeta struct {
	Path         string
	ModifiedSecs int64
}

// ListResult is a pull iterator over a prefix listing. Order is
// unspecified; callers must not assume any ordering.
type ListResult interface {
	// Next advances to the next object. It returns false when the
	// listing is exhausted or an error occurred; call Err to
	// distinguish the two.
	Next() bool
	Object() ObjectMeta
	Err() error
	io.Closer
}

// Backend is the storage contract the snapshot engine, checkpoint
// loader, commit engine, and vacuum planner are built against. A
// backend that cannot provide atomic create-exclusive Rename (e.g. an
// eventually-consistent object store) must funnel writers through an
// external mutual-exclusion service; that service is not part of this
// contract, but AlreadyExists is the signal such a service exists to
// prevent.
type Backend interface {
	// Head returns the object's metadata. Returns an error satisfying
	// errors.Is(err, ErrNotFound) when the object is absent.
	Head(ctx context.Context, path string) (ObjectMeta, error)

	// Get returns the full contents of path.
	Get(ctx context.Context, path string) ([]byte, error)

	// Put writes data to path, overwriting any existing object. Used
	// for staging temporary commit files, where overwrite is harmless.
	Put(ctx context.Context, path string, data []byte) error

	// Rename moves src to dst. It MUST fail with an error satisfying
	// errors.Is(err, ErrAlreadyExists) when dst already exists - this
	// is the engine's sole atomicity primitive.
	Rename(ctx context.Context, src, dst string) error

	// Delete removes path. Idempotent: deleting an absent path returns
	// an error satisfying errors.Is(err, ErrNotFound), which callers
	// (vacuum) treat as a terminal success rather than a failure.
	Delete(ctx context.Context, path string) error

	// List returns a lazy iterator over every object whose path has
	// the given prefix.
	List(ctx context.Context, prefix string) ListResult

	// JoinPath joins path segments using the backend's separator
	// convention, so the core never assumes "/".
	JoinPath(elems ...string) string
}
