// Package action implements the tagged-union action model:
// add, remove, protocol, metaData, txn, commitInfo. The tag dispatch is a
// closed sum type - a struct with one non-nil field per known tag -
// rather than an inheritance hierarchy.
package action

import (
	"encoding/json"
	"fmt"

	tableerrors "github.com/kartikbazzad/deltalog/internal/errors"
)

// Tag names the six known action variants. There is no seventh: an
// unrecognized tag is always InvalidAction.
type Tag int

const (
	TagAdd Tag = iota
	TagRemove
	TagProtocol
	TagMetaData
	TagTxn
	TagCommitInfo
)

// Add describes a live data file.
type Add struct {
	Path                  string            `json:"path"`
	Size                  int64             `json:"size"`
	PartitionValues       map[string]string `json:"partitionValues"`
	PartitionValuesParsed json.RawMessage   `json:"partitionValues_parsed,omitempty"`
	ModificationTime      int64             `json:"modificationTime"`
	DataChange            bool              `json:"dataChange"`
	Stats                 *string           `json:"stats,omitempty"`
	StatsParsed           json.RawMessage   `json:"stats_parsed,omitempty"`
	Tags                  map[string]string `json:"tags,omitempty"`
}

// Remove describes a tombstone.
type Remove struct {
	Path                 string            `json:"path"`
	DeletionTimestamp    int64             `json:"deletionTimestamp"`
	DataChange           bool              `json:"dataChange,omitempty"`
	ExtendedFileMetadata bool              `json:"extendedFileMetadata,omitempty"`
	PartitionValues      map[string]string `json:"partitionValues,omitempty"`
	Size                 *int64            `json:"size,omitempty"`
	Tags                 map[string]string `json:"tags,omitempty"`
}

// Protocol describes the minimum reader/writer versions.
type Protocol struct {
	MinReaderVersion int32 `json:"minReaderVersion"`
	MinWriterVersion int32 `json:"minWriterVersion"`
}

// Format describes the data file format named by a metaData action.
type Format struct {
	Provider string            `json:"provider"`
	Options  map[string]string `json:"options,omitempty"`
}

// MetaData describes table schema and configuration.
type MetaData struct {
	ID               string            `json:"id"`
	Name             string            `json:"name,omitempty"`
	Description      string            `json:"description,omitempty"`
	Format           Format            `json:"format"`
	SchemaString     string            `json:"schemaString"`
	PartitionColumns []string          `json:"partitionColumns"`
	Configuration    map[string]string `json:"configuration"`
	CreatedTime      int64             `json:"createdTime"`
}

// Txn records a per-application transaction watermark.
type Txn struct {
	AppID       string `json:"appId"`
	Version     int64  `json:"version"`
	LastUpdated int64  `json:"lastUpdated,omitempty"`
}

// Action is the tagged union. Exactly one of Add, Remove, Protocol,
// MetaData, Txn, CommitInfo is non-nil; Which reports which.
type Action struct {
	Add        *Add
	Remove     *Remove
	Protocol   *Protocol
	MetaData   *MetaData
	Txn        *Txn
	CommitInfo json.RawMessage
}

// Which returns the populated tag, or (-1, false) for a zero-value
// Action (the "all-null row" case checkpoint replay treats as a no-op).
func (a Action) Which() (Tag, bool) {
	switch {
	case a.Add != nil:
		return TagAdd, true
	case a.Remove != nil:
		return TagRemove, true
	case a.Protocol != nil:
		return TagProtocol, true
	case a.MetaData != nil:
		return TagMetaData, true
	case a.Txn != nil:
		return TagTxn, true
	case a.CommitInfo != nil:
		return TagCommitInfo, true
	default:
		return -1, false
	}
}

// MarshalJSON writes the single-top-level-key shape: {"add": {...}}.
func (a Action) MarshalJSON() ([]byte, error) {
	tag, ok := a.Which()
	if !ok {
		return nil, fmt.Errorf("action has no populated variant")
	}
	var wrapper map[string]interface{}
	switch tag {
	case TagAdd:
		wrapper = map[string]interface{}{"add": a.Add}
	case TagRemove:
		wrapper = map[string]interface{}{"remove": a.Remove}
	case TagProtocol:
		wrapper = map[string]interface{}{"protocol": a.Protocol}
	case TagMetaData:
		wrapper = map[string]interface{}{"metaData": a.MetaData}
	case TagTxn:
		wrapper = map[string]interface{}{"txn": a.Txn}
	case TagCommitInfo:
		wrapper = map[string]interface{}{"commitInfo": a.CommitInfo}
	}
	return json.Marshal(wrapper)
}

// UnmarshalJSON reads the single-top-level-key shape and fails with
// InvalidAction if more than one key, or an unrecognized key, is present.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return tableerrors.InvalidJSON("", err)
	}
	if len(raw) != 1 {
		return tableerrors.InvalidAction(fmt.Errorf("expected exactly one tag, got %d", len(raw)))
	}
	for tag, body := range raw {
		switch tag {
		case "add":
			var add Add
			if err := json.Unmarshal(body, &add); err != nil {
				return tableerrors.InvalidJSON("add", err)
			}
			a.Add = &add
		case "remove":
			var rm Remove
			if err := json.Unmarshal(body, &rm); err != nil {
				return tableerrors.InvalidJSON("remove", err)
			}
			a.Remove = &rm
		case "protocol":
			var p Protocol
			if err := json.Unmarshal(body, &p); err != nil {
				return tableerrors.InvalidJSON("protocol", err)
			}
			a.Protocol = &p
		case "metaData":
			var md MetaData
			if err := json.Unmarshal(body, &md); err != nil {
				return tableerrors.InvalidJSON("metaData", err)
			}
			a.MetaData = &md
		case "txn":
			var t Txn
			if err := json.Unmarshal(body, &t); err != nil {
				return tableerrors.InvalidJSON("txn", err)
			}
			a.Txn = &t
		case "commitInfo":
			a.CommitInfo = append(json.RawMessage(nil), body...)
		default:
			return tableerrors.InvalidAction(fmt.Errorf("unknown action tag %q", tag))
		}
	}
	return nil
}

// FromRow builds an Action from a checkpoint columnar row's six
// variant fields. An
// all-nil row yields a zero Action (Which returns false) - the
// projector's no-op case. More than one non-nil field is InvalidAction.
func FromRow(add *Add, remove *Remove, protocol *Protocol, metaData *MetaData, txn *Txn, commitInfo json.RawMessage) (Action, error) {
	a := Action{Add: add, Remove: remove, Protocol: protocol, MetaData: metaData, Txn: txn, CommitInfo: commitInfo}
	count := 0
	for _, present := range []bool{add != nil, remove != nil, protocol != nil, metaData != nil, txn != nil, commitInfo != nil} {
		if present {
			count++
		}
	}
	if count > 1 {
		return Action{}, tableerrors.InvalidAction(fmt.Errorf("checkpoint row has %d non-null variants, want at most 1", count))
	}
	return a, nil
}
