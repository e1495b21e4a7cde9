package vacuum

import (
	"context"
	"errors"
	"testing"

	"github.com/kartikbazzad/deltalog/internal/action"
	tableerrors "github.com/kartikbazzad/deltalog/internal/errors"
	"github.com/kartikbazzad/deltalog/internal/storage/memstore"
)

// TestRun_RetentionGuard exercises scenario S6: 167 hours is rejected,
// 168 hours is accepted.
func TestRun_RetentionGuard(t *testing.T) {
	store := memstore.New(nil)
	p := New(store, "table", nil)

	_, err := p.Run(context.Background(), nil, nil, nil, 167, 1_000_000_000_000, true)
	var tableErr *tableerrors.TableError
	if !errors.As(err, &tableErr) || tableErr.Kind != tableerrors.KindInvalidVacuumRetentionPeriod {
		t.Fatalf("expected InvalidVacuumRetentionPeriod at 167h, got %v", err)
	}

	plan, err := p.Run(context.Background(), nil, nil, nil, 168, 1_000_000_000_000, true)
	if err != nil {
		t.Fatalf("expected 168h to be accepted, got %v", err)
	}
	if plan.Deleted != nil {
		t.Fatalf("dry run must not delete anything, got %v", plan.Deleted)
	}
}

func TestRun_DryRunReturnsCandidatesWithoutDeleting(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(nil)
	p := New(store, "table", nil)

	store.Put(ctx, "table/stale.parquet", []byte("x"))
	store.Put(ctx, "table/live.parquet", []byte("x"))

	tombstones := []action.Remove{{Path: "stale.parquet", DeletionTimestamp: 0}}
	live := []action.Add{{Path: "live.parquet"}}

	plan, err := p.Run(ctx, tombstones, live, nil, 168, 1_000_000_000_000, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(plan.Candidates) != 1 || plan.Candidates[0] != "table/stale.parquet" {
		t.Fatalf("expected stale.parquet candidate, got %v", plan.Candidates)
	}
	if _, err := store.Head(ctx, "table/stale.parquet"); err != nil {
		t.Fatalf("dry run must not delete: %v", err)
	}
}

func TestRun_DeletesStaleFiles(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(nil)
	p := New(store, "table", nil)

	store.Put(ctx, "table/stale.parquet", []byte("x"))

	tombstones := []action.Remove{{Path: "stale.parquet", DeletionTimestamp: 0}}

	plan, err := p.Run(ctx, tombstones, nil, nil, 168, 1_000_000_000_000, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(plan.Deleted) != 1 {
		t.Fatalf("expected 1 deleted file, got %v", plan.Deleted)
	}
	if _, err := store.Head(ctx, "table/stale.parquet"); err == nil {
		t.Fatalf("expected stale.parquet to be deleted")
	}
}

func TestIsHidden_ExceptionsAndPartitionColumns(t *testing.T) {
	store := memstore.New(nil)
	p := New(store, "table", nil)

	if !p.isHidden("table/_delta_log/00.json", nil) {
		t.Fatalf("expected _delta_log to be hidden")
	}
	if p.isHidden("table/_delta_index/a", nil) {
		t.Fatalf("expected _delta_index exception to not be hidden")
	}
	if p.isHidden("table/_region=us/a", []string{"_region"}) {
		t.Fatalf("expected partition column prefix to not be hidden")
	}
	if p.isHidden("table/region=us/a", nil) {
		t.Fatalf("expected non-prefixed path to not be hidden")
	}
}
