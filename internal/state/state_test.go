package state

import (
	"testing"

	"github.com/kartikbazzad/deltalog/internal/action"
)

func addAction(path string) action.Action {
	return action.Action{Add: &action.Add{Path: path, Size: 1, ModificationTime: 1, DataChange: true}}
}

func removeAction(path string) action.Action {
	return action.Action{Remove: &action.Remove{Path: path, DeletionTimestamp: 1}}
}

func TestApplyAddRemoveLaw(t *testing.T) {
	s := New()
	s.ApplyAll([]action.Action{
		addAction("part-A"),
		addAction("part-B"),
		removeAction("part-A"),
	})

	if len(s.Files) != 1 || s.Files[0].Path != "part-B" {
		t.Fatalf("expected only part-B live, got %+v", s.Files)
	}
	if len(s.Tombstones) != 1 || s.Tombstones[0].Path != "part-A" {
		t.Fatalf("expected one tombstone for part-A, got %+v", s.Tombstones)
	}
}

func TestApplyAddAfterRemoveReintroducesPath(t *testing.T) {
	s := New()
	s.ApplyAll([]action.Action{
		addAction("part-A"),
		removeAction("part-A"),
		addAction("part-A"),
	})

	if len(s.Files) != 1 || s.Files[0].Path != "part-A" {
		t.Fatalf("expected part-A live again, got %+v", s.Files)
	}
	if len(s.Tombstones) != 1 {
		t.Fatalf("remove tombstone must still be retained, got %+v", s.Tombstones)
	}
}

func TestApplyTxnOverwrites(t *testing.T) {
	s := New()
	s.Apply(action.Action{Txn: &action.Txn{AppID: "writer-1", Version: 1}})
	s.Apply(action.Action{Txn: &action.Txn{AppID: "writer-1", Version: 5}})

	if got := s.AppTransactionVersion["writer-1"]; got != 5 {
		t.Fatalf("expected last-writer-wins version 5, got %d", got)
	}
}

func TestApplyProtocolAndMetadataOverwrite(t *testing.T) {
	s := New()
	s.Apply(action.Action{Protocol: &action.Protocol{MinReaderVersion: 1, MinWriterVersion: 1}})
	s.Apply(action.Action{Protocol: &action.Protocol{MinReaderVersion: 2, MinWriterVersion: 3}})
	if s.MinReaderVersion != 2 || s.MinWriterVersion != 3 {
		t.Fatalf("expected latest protocol values, got %d/%d", s.MinReaderVersion, s.MinWriterVersion)
	}

	s.Apply(action.Action{MetaData: &action.MetaData{ID: "one"}})
	s.Apply(action.Action{MetaData: &action.MetaData{ID: "two"}})
	if s.CurrentMetadata == nil || s.CurrentMetadata.ID != "two" {
		t.Fatalf("expected latest metadata, got %+v", s.CurrentMetadata)
	}
}

// TestReplayDeterminism exercises property 1 : the final
// state depends only on the sequence of actions, not on how it is
// chunked across log files or checkpoints.
func TestReplayDeterminism(t *testing.T) {
	all := []action.Action{addAction("a"), addAction("b"), removeAction("a"), addAction("c")}

	whole := New()
	whole.ApplyAll(all)

	chunked := New()
	chunked.ApplyAll(all[:2])
	chunked.ApplyAll(all[2:])

	if len(whole.Files) != len(chunked.Files) {
		t.Fatalf("file count diverged: %d vs %d", len(whole.Files), len(chunked.Files))
	}
	for i := range whole.Files {
		if whole.Files[i].Path != chunked.Files[i].Path {
			t.Fatalf("file order diverged at %d: %q vs %q", i, whole.Files[i].Path, chunked.Files[i].Path)
		}
	}
}
