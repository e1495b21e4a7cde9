// Package state implements the pure, synchronous fold over an action
// stream. It never touches storage, which is what makes
// it trivially testable with synthetic action sequences.
package state

import (
	"github.com/kartikbazzad/deltalog/internal/action"
)

// TableState is the projection of the replayed log.
type TableState struct {
	// Files is the ordered multiset of live Add records. Insertion
	// order equals replay order; duplicate paths are not deduplicated.
	Files []action.Add

	// Tombstones is the ordered multiset of Remove records. Entries are
	// never removed - they age out only by vacuum time comparisons.
	Tombstones []action.Remove

	// CommitInfos is the ordered sequence of opaque commitInfo payloads.
	CommitInfos []action.Action

	// AppTransactionVersion maps appId to its last-seen txn version.
	// Last writer wins on replay order.
	AppTransactionVersion map[string]int64

	MinReaderVersion int32
	MinWriterVersion int32

	// CurrentMetadata is overwritten by each metaData action; nil until
	// the first one is replayed.
	CurrentMetadata *action.MetaData
}

// New returns an empty TableState. Checkpoint replay always starts from
// an empty state.
func New() *TableState {
	return &TableState{
		AppTransactionVersion: make(map[string]int64),
	}
}

// Apply folds one action into the state per the projector rules. It is
// the entire State Projector - pure, no I/O, no allocation beyond what
// the action itself requires.
func (s *TableState) Apply(a action.Action) {
	switch {
	case a.Add != nil:
		s.Files = append(s.Files, *a.Add)

	case a.Remove != nil:
		s.removePath(a.Remove.Path)
		s.Tombstones = append(s.Tombstones, *a.Remove)

	case a.Protocol != nil:
		s.MinReaderVersion = a.Protocol.MinReaderVersion
		s.MinWriterVersion = a.Protocol.MinWriterVersion

	case a.MetaData != nil:
		md := *a.MetaData
		s.CurrentMetadata = &md

	case a.Txn != nil:
		// "insert-if-absent then assign" in the source unconditionally
		// overwrites the entry; simply overwrite.
		s.AppTransactionVersion[a.Txn.AppID] = a.Txn.Version

	case a.CommitInfo != nil:
		s.CommitInfos = append(s.CommitInfos, a)
	}
}

// removePath drops every entry in Files whose path equals p.
func (s *TableState) removePath(p string) {
	if len(s.Files) == 0 {
		return
	}
	kept := s.Files[:0]
	for _, f := range s.Files {
		if f.Path != p {
			kept = append(kept, f)
		}
	}
	s.Files = kept
}

// ApplyAll folds a sequence of actions in order. Across log entries,
// versions must be applied in strictly ascending order and checkpoint
// actions must be applied before any post-checkpoint log actions - both
// are the caller's responsibility; ApplyAll only guarantees
// within-slice order is preserved.
func (s *TableState) ApplyAll(actions []action.Action) {
	for _, a := range actions {
		s.Apply(a)
	}
}
