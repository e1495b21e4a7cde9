// Package table implements the Snapshot Engine: load,
// update, load_version, and load_with_datetime, all driving the
// Checkpoint Loader and Log Locator through the Storage Contract and
// feeding actions into the State Projector. A Table is the engine's
// internal handle; the public facade in the root package wraps it
// behind a small, stable API.
package table

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kartikbazzad/deltalog/internal/action"
	"github.com/kartikbazzad/deltalog/internal/checkpoint"
	tableerrors "github.com/kartikbazzad/deltalog/internal/errors"
	"github.com/kartikbazzad/deltalog/internal/logger"
	"github.com/kartikbazzad/deltalog/internal/logpath"
	"github.com/kartikbazzad/deltalog/internal/state"
	"github.com/kartikbazzad/deltalog/internal/storage"
)

// LogDirName is the conventional subdirectory holding a table's
// transaction log.
const LogDirName = "_delta_log"

// Table is the snapshot engine's handle.
type Table struct {
	mu sync.Mutex

	backend   storage.Backend
	tablePath string
	logPath   string

	locator    *logpath.Locator
	checkpoint *checkpoint.Loader
	log        *logger.Logger

	// Version is -1 until a successful load; it then equals the
	// highest replayed log entry.
	Version int64

	// LastCheckpoint is the most recently restored checkpoint
	// descriptor, compared by version only.
	LastCheckpoint logpath.CheckPoint
	hasCheckpoint  bool

	State *state.TableState

	// versionTimestamp caches each probed log entry's modification
	// time. Bounded so long-lived handles that hop across many
	// versions (time travel, repeated Update polling) don't grow this
	// without limit.
	versionTimestamp *lru.Cache[int64, int64]
}

const versionTimestampCacheSize = 256

// New constructs an unloaded handle over tablePath. rows decodes
// checkpoint part files; checkpointConcurrency bounds parallel part
// reads.
func New(backend storage.Backend, tablePath string, rows checkpoint.RowReader, checkpointConcurrency int, log *logger.Logger) *Table {
	logPath := backend.JoinPath(tablePath, LogDirName)
	locator := logpath.New(logPath, backend.JoinPath)
	if log == nil {
		log = logger.Default()
	}
	cache, _ := lru.New[int64, int64](versionTimestampCacheSize)
	return &Table{
		backend:          backend,
		tablePath:        tablePath,
		logPath:          logPath,
		locator:          locator,
		checkpoint:       checkpoint.New(backend, locator, rows, checkpointConcurrency),
		log:              log,
		Version:          -1,
		State:            state.New(),
		versionTimestamp: cache,
	}
}

func (t *Table) TablePath() string         { return t.tablePath }
func (t *Table) LogPath() string           { return t.logPath }
func (t *Table) Locator() *logpath.Locator { return t.locator }

// Load resolves the latest version from scratch.
func (t *Table) Load(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cp, found, err := t.readCheckpoint(ctx)
	if err != nil {
		return err
	}
	if found {
		if err := t.checkpoint.Load(ctx, cp, t.State); err != nil {
			return err
		}
		t.LastCheckpoint, t.hasCheckpoint = cp, true
		t.Version = cp.Version + 1
	} else {
		t.State = state.New()
		t.Version = 0
	}

	return t.replayForward(ctx)
}

// Update re-checks for a newer checkpoint, then probes the next log
// entry. It is deliberately cheap when no new checkpoint has landed.
func (t *Table) Update(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Version < 0 {
		return t.loadLocked(ctx)
	}

	cp, found, err := t.readCheckpoint(ctx)
	if err != nil {
		return err
	}
	if found && (!t.hasCheckpoint || cp.Version != t.LastCheckpoint.Version) {
		if err := t.checkpoint.Load(ctx, cp, t.State); err != nil {
			return err
		}
		t.LastCheckpoint, t.hasCheckpoint = cp, true
		t.Version = cp.Version + 1
	} else {
		t.Version++
	}

	return t.replayForward(ctx)
}

func (t *Table) loadLocked(ctx context.Context) error {
	cp, found, err := t.readCheckpoint(ctx)
	if err != nil {
		return err
	}
	if found {
		if err := t.checkpoint.Load(ctx, cp, t.State); err != nil {
			return err
		}
		t.LastCheckpoint, t.hasCheckpoint = cp, true
		t.Version = cp.Version + 1
	} else {
		t.State = state.New()
		t.Version = 0
	}
	return t.replayForward(ctx)
}

// replayForward applies versions starting at t.Version until EndOfLog,
// then backs off by one.
func (t *Table) replayForward(ctx context.Context) error {
	for {
		err := t.applyLog(ctx, t.Version)
		if err == nil {
			t.Version++
			continue
		}
		if errors.Is(err, tableerrors.ErrEndOfLog) {
			t.Version--
			if t.Version < 0 {
				return tableerrors.NotATable()
			}
			return nil
		}
		return err
	}
}

// LoadVersion pins the handle to exactly version v. Unlike Load/Update,
// hitting EndOfLog mid-replay here is a corruption signal and
// propagates as-is.
func (t *Table) LoadVersion(ctx context.Context, v int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.backend.Head(ctx, t.locator.VersionToLogPath(v)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return tableerrors.InvalidVersion(v)
		}
		return tableerrors.Storage(t.locator.VersionToLogPath(v), err)
	}

	cp, found, err := t.locator.FindLatestCheckpointForVersion(ctx, t.backend, v)
	if err != nil {
		return err
	}
	start := int64(0)
	if found {
		if err := t.checkpoint.Load(ctx, cp, t.State); err != nil {
			return err
		}
		t.LastCheckpoint, t.hasCheckpoint = cp, true
		start = cp.Version + 1
	} else {
		t.State = state.New()
	}

	for cur := start; cur <= v; cur++ {
		if err := t.applyLog(ctx, cur); err != nil {
			return err
		}
	}
	t.Version = v
	return nil
}

// LoadWithDatetime resolves the greatest version whose log entry's
// modification time is <= targetSecs. On an exact timestamp match the
// binary search stops at the first probed version with that timestamp,
// which need not be the greatest; a target earlier than every entry
// resolves to version 0.
func (t *Table) LoadWithDatetime(ctx context.Context, targetSecs int64) error {
	t.mu.Lock()
	maxVersion, err := t.getLatestVersionLocked(ctx)
	t.mu.Unlock()
	if err != nil {
		return err
	}

	low, high := int64(0), maxVersion
	resolved := int64(0)
search:
	for low <= high {
		mid := low + (high-low)/2
		ts, err := t.GetVersionTimestamp(ctx, mid)
		if err != nil {
			return err
		}
		switch {
		case ts == targetSecs:
			resolved = mid
			break search
		case ts < targetSecs:
			low = mid + 1
			resolved = mid
		default:
			resolved = mid - 1
			high = mid - 1
		}
	}
	if resolved < 0 {
		resolved = 0
	}
	return t.LoadVersion(ctx, resolved)
}

// getLatestVersionLocked probes forward by Head only, starting after
// the last known checkpoint, caching each entry's modification time
// along the way. Caller must hold t.mu.
func (t *Table) getLatestVersionLocked(ctx context.Context) (int64, error) {
	start := int64(0)
	if t.hasCheckpoint {
		start = t.LastCheckpoint.Version + 1
	}
	cur := start
	last := start - 1
	for {
		meta, err := t.backend.Head(ctx, t.locator.VersionToLogPath(cur))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				break
			}
			return 0, tableerrors.Storage(t.locator.VersionToLogPath(cur), err)
		}
		t.versionTimestamp.Add(cur, meta.ModifiedSecs)
		last = cur
		cur++
	}
	if last < 0 {
		return 0, tableerrors.NotATable()
	}
	return last, nil
}

// GetVersionTimestamp is a read-through cache over each log entry's
// modification time in seconds.
func (t *Table) GetVersionTimestamp(ctx context.Context, v int64) (int64, error) {
	t.mu.Lock()
	if ts, ok := t.versionTimestamp.Get(v); ok {
		t.mu.Unlock()
		return ts, nil
	}
	t.mu.Unlock()

	meta, err := t.backend.Head(ctx, t.locator.VersionToLogPath(v))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, tableerrors.InvalidVersion(v)
		}
		return 0, tableerrors.Storage(t.locator.VersionToLogPath(v), err)
	}

	t.mu.Lock()
	t.versionTimestamp.Add(v, meta.ModifiedSecs)
	t.mu.Unlock()
	return meta.ModifiedSecs, nil
}

func (t *Table) readCheckpoint(ctx context.Context) (logpath.CheckPoint, bool, error) {
	cp, err := t.checkpoint.ReadLastCheckpoint(ctx)
	if err != nil {
		if errors.Is(err, tableerrors.ErrLoadCheckpointNotFound) {
			return logpath.CheckPoint{}, false, nil
		}
		return logpath.CheckPoint{}, false, err
	}
	return cp, true, nil
}

// applyLog reads and replays a single log entry file, mapping a
// backend NotFound to the EndOfLog control-flow sentinel.
func (t *Table) applyLog(ctx context.Context, v int64) error {
	path := t.locator.VersionToLogPath(v)
	data, err := t.backend.Get(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return tableerrors.ErrEndOfLog
		}
		return tableerrors.Storage(path, err)
	}

	actions, err := parseLogEntry(data)
	if err != nil {
		return tableerrors.InvalidJSON(path, err)
	}
	t.State.ApplyAll(actions)
	return nil
}

// parseLogEntry splits a log file into one action per line.
func parseLogEntry(data []byte) ([]action.Action, error) {
	var actions []action.Action
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var a action.Action
		if err := a.UnmarshalJSON(line); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return actions, nil
}
