package deltalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kartikbazzad/deltalog/internal/action"
	tableerrors "github.com/kartikbazzad/deltalog/internal/errors"
	"github.com/kartikbazzad/deltalog/internal/storage/memstore"
)

func addAction(path string, size int64) action.Action {
	return action.Action{Add: &action.Add{Path: path, Size: size, ModificationTime: 1, DataChange: true}}
}

func writeVersion(t *testing.T, store *memstore.Store, tablePath string, v int64, actions ...action.Action) {
	t.Helper()
	var buf []byte
	for _, a := range actions {
		line, err := json.Marshal(a)
		if err != nil {
			t.Fatalf("marshal action: %v", err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	path := fmt.Sprintf("%s/_delta_log/%020d.json", tablePath, v)
	if err := store.Put(context.Background(), path, buf); err != nil {
		t.Fatalf("put version %d: %v", v, err)
	}
}

// TestOpen_EmptyDirIsNotATable exercises scenario S1.
func TestOpen_EmptyDirIsNotATable(t *testing.T) {
	store := memstore.New(nil)
	_, err := Open(context.Background(), store, "table")
	if !errors.Is(err, tableerrors.ErrNotATable) {
		t.Fatalf("expected NotATable, got %v", err)
	}
}

// TestCommitWith_TwoCommitsFromZero exercises scenario S2.
func TestCommitWith_TwoCommitsFromZero(t *testing.T) {
	store := memstore.New(nil)
	writeVersion(t, store, "table", 0,
		action.Action{Protocol: &action.Protocol{MinReaderVersion: 1, MinWriterVersion: 1}},
		action.Action{MetaData: &action.MetaData{ID: "t1", Format: action.Format{Provider: "parquet"}}},
	)

	dt, err := Open(context.Background(), store, "table")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	v, err := dt.NewTransaction().CommitWith(ctx, []action.Action{addAction("part-A", 396), addAction("part-B", 400)})
	if err != nil {
		t.Fatalf("CommitWith: %v", err)
	}
	if v != 1 {
		t.Fatalf("expected version 1, got %d", v)
	}
	if len(dt.Files()) != 2 {
		t.Fatalf("expected 2 files, got %d", len(dt.Files()))
	}

	v, err = dt.NewTransaction().CommitWith(ctx, []action.Action{addAction("part-C", 396), addAction("part-D", 400)})
	if err != nil {
		t.Fatalf("CommitWith: %v", err)
	}
	if v != 2 {
		t.Fatalf("expected version 2, got %d", v)
	}
	if len(dt.Files()) != 4 {
		t.Fatalf("expected 4 files, got %d", len(dt.Files()))
	}
}

// TestCommitVersion_ChosenVersionSuccessAndConflict exercises S3 and S4
// together: the second transaction races the first for version 1.
func TestCommitVersion_ChosenVersionSuccessAndConflict(t *testing.T) {
	store := memstore.New(nil)
	writeVersion(t, store, "table", 0,
		action.Action{Protocol: &action.Protocol{MinReaderVersion: 1, MinWriterVersion: 1}},
		action.Action{MetaData: &action.MetaData{ID: "t1", Format: action.Format{Provider: "parquet"}}},
	)
	ctx := context.Background()

	dt1, err := Open(ctx, store, "table")
	if err != nil {
		t.Fatalf("Open dt1: %v", err)
	}
	v, err := dt1.NewTransaction().CommitVersion(ctx, 1, []action.Action{addAction("part-A", 396), addAction("part-B", 400)})
	if err != nil {
		t.Fatalf("CommitVersion (dt1): %v", err)
	}
	if v != 1 || dt1.Version() != 1 || len(dt1.Files()) != 2 {
		t.Fatalf("expected dt1 at version 1 with 2 files, got version=%d files=%d", dt1.Version(), len(dt1.Files()))
	}

	dt2, err := Open(ctx, store, "table")
	if err != nil {
		t.Fatalf("Open dt2: %v", err)
	}
	_, err = dt2.NewTransaction().CommitVersion(ctx, 1, []action.Action{addAction("part-E", 1), addAction("part-F", 1)})
	if !errors.Is(err, tableerrors.ErrVersionAlreadyExists) {
		t.Fatalf("expected VersionAlreadyExists, got %v", err)
	}
	if dt1.Version() != 1 || len(dt1.Files()) != 2 {
		t.Fatalf("expected dt1 unchanged at version 1 with 2 files, got version=%d files=%d", dt1.Version(), len(dt1.Files()))
	}
}

// TestLoadWithDatetime exercises scenario S5.
func TestLoadWithDatetime(t *testing.T) {
	var tick int64
	store := memstore.New(func() int64 { return tick })

	tick = 1000
	writeVersion(t, store, "table", 0, addAction("part-A", 1))
	tick = 2000
	writeVersion(t, store, "table", 1, addAction("part-B", 1))
	tick = 3000
	writeVersion(t, store, "table", 2, addAction("part-C", 1))

	ctx := context.Background()
	dt, err := Open(ctx, store, "table")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := dt.LoadWithDatetime(ctx, time.Unix(2500, 0)); err != nil {
		t.Fatalf("LoadWithDatetime: %v", err)
	}
	if dt.Version() != 1 {
		t.Fatalf("expected version 1, got %d", dt.Version())
	}
}

// TestVacuum_RetentionGuard exercises scenario S6.
func TestVacuum_RetentionGuard(t *testing.T) {
	store := memstore.New(nil)
	writeVersion(t, store, "table", 0, addAction("part-A", 1))

	ctx := context.Background()
	dt, err := Open(ctx, store, "table")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	_, err = dt.Vacuum(ctx, 167, true)
	var tableErr *tableerrors.TableError
	if !errors.As(err, &tableErr) || tableErr.Kind != tableerrors.KindInvalidVacuumRetentionPeriod {
		t.Fatalf("expected InvalidVacuumRetentionPeriod at 167h, got %v", err)
	}

	plan, err := dt.Vacuum(ctx, 168, true)
	if err != nil {
		t.Fatalf("expected 168h to be accepted, got %v", err)
	}
	if plan.Deleted != nil {
		t.Fatalf("dry run must not delete anything, got %v", plan.Deleted)
	}
}
