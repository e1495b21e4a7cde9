// Package vacuum implements the Vacuum Planner: compute the
// stale-file set from tombstones and a live listing, then delete
// candidates in parallel through a bounded ants worker pool.
package vacuum

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/kartikbazzad/deltalog/internal/action"
	tableerrors "github.com/kartikbazzad/deltalog/internal/errors"
	"github.com/kartikbazzad/deltalog/internal/logger"
	"github.com/kartikbazzad/deltalog/internal/storage"
)

const minRetentionHours = 168

var hiddenExceptions = []string{"_delta_index", "_change_data"}

// Plan is the result of a dry-run or executed vacuum.
type Plan struct {
	Candidates []string
	Deleted    []string
}

// Planner computes and (optionally) executes a vacuum against one
// table's storage backend.
type Planner struct {
	backend   storage.Backend
	tablePath string
	log       *logger.Logger

	// DeleteConcurrency bounds the ants pool used when deleting
	// candidates; 0 falls back to a sensible default.
	DeleteConcurrency int
}

func New(backend storage.Backend, tablePath string, log *logger.Logger) *Planner {
	if log == nil {
		log = logger.Default()
	}
	return &Planner{backend: backend, tablePath: tablePath, log: log, DeleteConcurrency: 4}
}

// Run computes the candidate set and, unless dryRun, deletes each
// candidate through a bounded worker pool, ignoring NotFound.
func (p *Planner) Run(ctx context.Context, tombstones []action.Remove, liveFiles []action.Add, partitionColumns []string, retentionHours uint64, nowMs int64, dryRun bool) (Plan, error) {
	if retentionHours < minRetentionHours {
		return Plan{}, tableerrors.InvalidVacuumRetentionPeriod()
	}

	retentionMs := retentionHours * 3_600_000
	if retentionMs > uint64(nowMs) {
		// Underflow guard: retention window extends before the epoch.
		return Plan{}, tableerrors.InvalidVacuumRetentionPeriod()
	}
	cutoffMs := nowMs - int64(retentionMs)

	stale := make(map[string]struct{})
	for _, t := range tombstones {
		if t.DeletionTimestamp < cutoffMs {
			stale[p.backend.JoinPath(p.tablePath, t.Path)] = struct{}{}
		}
	}

	live := make(map[string]struct{}, len(liveFiles))
	for _, f := range liveFiles {
		live[p.backend.JoinPath(p.tablePath, f.Path)] = struct{}{}
	}

	listing := p.backend.List(ctx, p.tablePath)
	defer listing.Close()

	var candidates []string
	for listing.Next() {
		path := listing.Object().Path
		if _, isLive := live[path]; isLive {
			continue
		}
		if _, isStale := stale[path]; !isStale {
			continue
		}
		if p.isHidden(path, partitionColumns) {
			continue
		}
		candidates = append(candidates, path)
	}
	if err := listing.Err(); err != nil {
		return Plan{}, tableerrors.Storage(p.tablePath, err)
	}

	if dryRun {
		return Plan{Candidates: candidates}, nil
	}

	deleted, err := p.deleteAll(ctx, candidates)
	return Plan{Candidates: candidates, Deleted: deleted}, err
}

// isHidden reports whether path sits under a "." or "_" prefixed
// segment at the table root, except for a small set of known
// exceptions and any configured partition column prefix.
func (p *Planner) isHidden(path string, partitionColumns []string) bool {
	for _, prefix := range []string{".", "_"} {
		hiddenPrefix := p.backend.JoinPath(p.tablePath, prefix)
		if !strings.HasPrefix(path, hiddenPrefix) {
			continue
		}
		for _, exception := range hiddenExceptions {
			if strings.HasPrefix(path, p.backend.JoinPath(p.tablePath, exception)) {
				return false
			}
		}
		for _, col := range partitionColumns {
			if strings.HasPrefix(path, p.backend.JoinPath(p.tablePath, col)) {
				return false
			}
		}
		return true
	}
	return false
}

type deleteTask struct {
	path string
}

// deleteAll drains candidates through a bounded ants pool, ignoring
// NotFound per candidate and collecting the first non-NotFound error.
func (p *Planner) deleteAll(ctx context.Context, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	capacity := p.DeleteConcurrency
	if capacity <= 0 {
		capacity = 4
	}

	var (
		mu       sync.Mutex
		deleted  []string
		firstErr error
		wg       sync.WaitGroup
	)

	pool, err := ants.NewPoolWithFunc(capacity, func(arg any) {
		defer wg.Done()
		task := arg.(*deleteTask)
		if err := p.backend.Delete(ctx, task.path); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return
			}
			mu.Lock()
			if firstErr == nil {
				firstErr = tableerrors.Storage(task.path, err)
			}
			mu.Unlock()
			return
		}
		mu.Lock()
		deleted = append(deleted, task.path)
		mu.Unlock()
	}, ants.WithPanicHandler(func(v any) {
		p.log.Error("vacuum delete worker panic", logger.Any("panic", v))
	}))
	if err != nil {
		return nil, tableerrors.Storage(p.tablePath, err)
	}
	defer pool.Release()

	for _, c := range candidates {
		wg.Add(1)
		if err := pool.Invoke(&deleteTask{path: c}); err != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = tableerrors.Storage(c, err)
			}
			mu.Unlock()
		}
	}
	wg.Wait()

	return deleted, firstErr
}
