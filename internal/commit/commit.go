// Package commit implements the Commit Engine: prepare the
// commit buffer, stage it under a random temporary name, then loop
// rename-and-retry (commit_with) or attempt a single caller-chosen
// version (commit_version). Rename-exclusive-on-destination is the
// linearization point; this package never mutates an existing log file.
package commit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/kartikbazzad/deltalog/internal/action"
	"github.com/kartikbazzad/deltalog/internal/config"
	tableerrors "github.com/kartikbazzad/deltalog/internal/errors"
	"github.com/kartikbazzad/deltalog/internal/logger"
	"github.com/kartikbazzad/deltalog/internal/storage"
	"github.com/kartikbazzad/deltalog/internal/table"
)

// Engine drives optimistic commits against one table handle. A Table is
// borrowed exclusively for the engine's lifetime.
type Engine struct {
	tbl        *table.Table
	backend    storage.Backend
	cfg        *config.Config
	log        *logger.Logger
	classifier *tableerrors.Classifier
	retry      *tableerrors.RetryController
}

func New(tbl *table.Table, backend storage.Backend, cfg *config.Config, log *logger.Logger) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.Default()
	}
	return &Engine{
		tbl:        tbl,
		backend:    backend,
		cfg:        cfg,
		log:        log,
		classifier: tableerrors.NewClassifier(),
		retry:      tableerrors.NewRetryController(),
	}
}

// logEntryFromActions serializes actions as newline-delimited JSON
// objects, one per line.
func logEntryFromActions(actions []action.Action) ([]byte, error) {
	var buf bytes.Buffer
	for _, a := range actions {
		line, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// prepareCommit stages actions under a randomly named temp file and
// returns its path. The random token prevents
// collision between concurrent writers staging simultaneously.
func (e *Engine) prepareCommit(ctx context.Context, actions []action.Action) (string, error) {
	data, err := logEntryFromActions(actions)
	if err != nil {
		return "", tableerrors.InvalidJSON("", err)
	}
	tmp := e.tbl.Locator().TmpCommitLogPath(uuid.New().String())
	if err := e.backend.Put(ctx, tmp, data); err != nil {
		return "", tableerrors.Storage(tmp, err)
	}
	return tmp, nil
}

// CommitWith is the optimistic entry point: the caller does not choose
// a version.
func (e *Engine) CommitWith(ctx context.Context, actions []action.Action) (int64, error) {
	tmp, err := e.prepareCommit(ctx, actions)
	if err != nil {
		return 0, err
	}

	maxAttempts := e.cfg.CommitAttemptBudget()
	attempt := 0
	for {
		if err := e.tbl.Update(ctx); err != nil {
			return 0, err
		}
		target := e.tbl.Version + 1
		dst := e.tbl.Locator().VersionToLogPath(target)

		err := e.retry.Retry(func() error {
			return e.backend.Rename(ctx, tmp, dst)
		}, e.classifier)
		if err == nil {
			if err := e.tbl.Update(ctx); err != nil {
				return 0, err
			}
			return target, nil
		}

		if errors.Is(err, storage.ErrAlreadyExists) {
			attempt++
			if attempt > maxAttempts+1 {
				return 0, tableerrors.TransactionCommitAttempt()
			}
			e.log.Warn("commit attempt lost the race, retrying", logger.Int("attempt", attempt), logger.Int64("version", target))
			continue
		}

		return 0, tableerrors.Storage(dst, err)
	}
}

// CommitVersion attempts a single rename to the caller-chosen version
// v. AlreadyExists maps directly to VersionAlreadyExists and is not
// retried.
func (e *Engine) CommitVersion(ctx context.Context, v int64, actions []action.Action) (int64, error) {
	tmp, err := e.prepareCommit(ctx, actions)
	if err != nil {
		return 0, err
	}

	dst := e.tbl.Locator().VersionToLogPath(v)
	if err := e.backend.Rename(ctx, tmp, dst); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return 0, tableerrors.VersionAlreadyExists(v)
		}
		return 0, tableerrors.Storage(dst, err)
	}

	if err := e.tbl.Update(ctx); err != nil {
		return 0, err
	}
	return v, nil
}
