package logpath

import (
	"context"
	"testing"

	"github.com/kartikbazzad/deltalog/internal/storage/memstore"
)

func TestVersionToLogPath(t *testing.T) {
	l := New("_delta_log", func(elems ...string) string {
		out := elems[0]
		for _, e := range elems[1:] {
			out += "/" + e
		}
		return out
	})

	got := l.VersionToLogPath(42)
	want := "_delta_log/00000000000000000042.json"
	if got != want {
		t.Fatalf("VersionToLogPath(42) = %q, want %q", got, want)
	}
}

func TestTmpCommitLogPath(t *testing.T) {
	l := New("_delta_log", joinSlash)
	got := l.TmpCommitLogPath("abc123")
	want := "_delta_log/_commit_abc123.json"
	if got != want {
		t.Fatalf("TmpCommitLogPath = %q, want %q", got, want)
	}
}

func joinSlash(elems ...string) string {
	out := elems[0]
	for _, e := range elems[1:] {
		out += "/" + e
	}
	return out
}

func TestFindLatestCheckpointForVersion_SinglePart(t *testing.T) {
	store := memstore.New(nil)
	ctx := context.Background()
	l := New("_delta_log", store.JoinPath)

	for _, v := range []int64{0, 5, 10} {
		if err := store.Put(ctx, l.SinglePartCheckpointPath(v), []byte("x")); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	cp, found, err := l.FindLatestCheckpointForVersion(ctx, store, 7)
	if err != nil {
		t.Fatalf("FindLatestCheckpointForVersion: %v", err)
	}
	if !found || cp.Version != 5 {
		t.Fatalf("expected version 5 checkpoint <= 7, got %+v found=%v", cp, found)
	}
}

func TestFindLatestCheckpointForVersion_MultiPartRequiresAllParts(t *testing.T) {
	store := memstore.New(nil)
	ctx := context.Background()
	l := New("_delta_log", store.JoinPath)

	store.Put(ctx, l.MultiPartCheckpointPath(20, 1, 3), []byte("x"))
	store.Put(ctx, l.MultiPartCheckpointPath(20, 2, 3), []byte("x"))

	// Only two of three parts present: not yet a valid checkpoint.
	_, found, err := l.FindLatestCheckpointForVersion(ctx, store, 100)
	if err != nil {
		t.Fatalf("FindLatestCheckpointForVersion: %v", err)
	}
	if found {
		t.Fatalf("expected no complete checkpoint with only 2/3 parts present")
	}

	store.Put(ctx, l.MultiPartCheckpointPath(20, 3, 3), []byte("x"))
	cp, found, err := l.FindLatestCheckpointForVersion(ctx, store, 100)
	if err != nil {
		t.Fatalf("FindLatestCheckpointForVersion: %v", err)
	}
	if !found || cp.Version != 20 || cp.Parts == nil || *cp.Parts != 3 {
		t.Fatalf("expected complete 3-part checkpoint at version 20, got %+v found=%v", cp, found)
	}
}

func TestFindLatestCheckpointForVersion_NoneBeforeLimit(t *testing.T) {
	store := memstore.New(nil)
	ctx := context.Background()
	l := New("_delta_log", store.JoinPath)

	store.Put(ctx, l.SinglePartCheckpointPath(50), []byte("x"))

	_, found, err := l.FindLatestCheckpointForVersion(ctx, store, 10)
	if err != nil {
		t.Fatalf("FindLatestCheckpointForVersion: %v", err)
	}
	if found {
		t.Fatalf("expected no checkpoint at or before version 10")
	}
}

func TestPartPaths(t *testing.T) {
	l := New("_delta_log", joinSlash)

	single := l.PartPaths(CheckPoint{Version: 3})
	if len(single) != 1 || single[0] != l.SinglePartCheckpointPath(3) {
		t.Fatalf("expected single part path, got %v", single)
	}

	three := uint32(3)
	multi := l.PartPaths(CheckPoint{Version: 3, Parts: &three})
	if len(multi) != 3 {
		t.Fatalf("expected 3 part paths, got %d", len(multi))
	}
	for i, p := range multi {
		want := l.MultiPartCheckpointPath(3, uint32(i+1), 3)
		if p != want {
			t.Fatalf("part %d: got %q want %q", i, p, want)
		}
	}
}
