// Package checkpoint implements the Checkpoint Loader: read
// the `_last_checkpoint` descriptor, enumerate part paths, and replay
// the rows of each part into a fresh projector state. The package never
// decodes a columnar file itself - it depends only on the RowReader
// interface, so the Parquet/Arrow dependency stays confined to the
// sibling internal/checkpoint/parquetio adapter.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/kartikbazzad/deltalog/internal/action"
	tableerrors "github.com/kartikbazzad/deltalog/internal/errors"
	"github.com/kartikbazzad/deltalog/internal/logpath"
	"github.com/kartikbazzad/deltalog/internal/state"
	"github.com/kartikbazzad/deltalog/internal/storage"
)

// RowIterator pulls one action at a time out of a decoded checkpoint
// part file. Implementations report end-of-file by returning
// (Action{}, false, nil) from Next.
type RowIterator interface {
	// Next returns the next row's action, or ok=false when exhausted.
	Next() (a action.Action, ok bool, err error)
	Close() error
}

// RowReader opens a checkpoint part file for row-at-a-time iteration.
// The concrete implementation lives outside this package (see
// internal/checkpoint/parquetio) so the core engine never imports a
// columnar-file library directly.
type RowReader interface {
	Open(ctx context.Context, data []byte) (RowIterator, error)
}

// descriptor is the JSON shape of `_last_checkpoint`.
type descriptor struct {
	Version int64   `json:"version"`
	Size    int64   `json:"size"`
	Parts   *uint32 `json:"parts,omitempty"`
}

// Loader reads and replays checkpoints for one table's log directory.
type Loader struct {
	backend     storage.Backend
	locator     *logpath.Locator
	rows        RowReader
	concurrency int
}

func New(backend storage.Backend, locator *logpath.Locator, rows RowReader, concurrency int) *Loader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Loader{backend: backend, locator: locator, rows: rows, concurrency: concurrency}
}

// ReadLastCheckpoint reads and parses `_last_checkpoint`. A missing
// descriptor is reported via errors.Is(err, ErrLoadCheckpointNotFound);
// any other read/parse failure propagates as-is.
func (l *Loader) ReadLastCheckpoint(ctx context.Context) (logpath.CheckPoint, error) {
	data, err := l.backend.Get(ctx, l.locator.LastCheckpointPath())
	if err != nil {
		if isNotFound(err) {
			return logpath.CheckPoint{}, &tableerrors.TableError{Kind: tableerrors.KindLoadCheckpointNotFound, Err: tableerrors.ErrLoadCheckpointNotFound}
		}
		return logpath.CheckPoint{}, tableerrors.Storage(l.locator.LastCheckpointPath(), err)
	}
	var d descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return logpath.CheckPoint{}, tableerrors.InvalidJSON(l.locator.LastCheckpointPath(), err)
	}
	return logpath.CheckPoint{Version: d.Version, Size: d.Size, Parts: d.Parts}, nil
}

// Load resets st to empty and replays every row of cp's part files into
// it. A partial failure leaves st empty, because
// the reset happens before any row is applied - the load is atomic from
// the projector's point of view.
func (l *Loader) Load(ctx context.Context, cp logpath.CheckPoint, st *state.TableState) error {
	*st = *state.New()

	paths := l.locator.PartPaths(cp)
	rowSets := make([][]action.Action, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			actions, err := l.readPart(gctx, p)
			if err != nil {
				return err
			}
			rowSets[i] = actions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		*st = *state.New()
		return err
	}

	for _, actions := range rowSets {
		st.ApplyAll(actions)
	}
	return nil
}

func (l *Loader) readPart(ctx context.Context, path string) ([]action.Action, error) {
	data, err := l.backend.Get(ctx, path)
	if err != nil {
		return nil, tableerrors.MissingDataFile(path, err)
	}
	it, err := l.rows.Open(ctx, data)
	if err != nil {
		return nil, tableerrors.Storage(path, err)
	}
	defer it.Close()

	var actions []action.Action
	for {
		a, ok, err := it.Next()
		if err != nil {
			return nil, tableerrors.Storage(path, err)
		}
		if !ok {
			break
		}
		if _, has := a.Which(); has {
			actions = append(actions, a)
		}
	}
	return actions, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errors.Is(err, tableerrors.ErrNotFound)
}
