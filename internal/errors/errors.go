// Package errors defines the error taxonomy shared across the storage
// contract, action model, snapshot engine, partition filter, vacuum
// planner, and commit engine. Every member is reported as a *TableError
// with a Kind; data-free members also match a package-level sentinel
// through errors.Is, while members that carry data (a version, a path,
// a filter) are told apart by Kind via errors.As.
package errors

import (
	"errors"
	"fmt"
)

// Kind discriminates the error taxonomy. A *TableError carries one of
// these; TableError.Is maps the data-free kinds to their Err* sentinels
// so errors.Is(err, ErrNotATable) keeps working after
// fmt.Errorf("%w", ...) wrapping.
type Kind int

const (
	KindEndOfLog Kind = iota
	KindInvalidJSON
	KindIoError
	KindStorage
	KindLoadCheckpointNotFound
	KindParquet
	KindArrow
	KindUriError
	KindInvalidVersion
	KindMissingDataFile
	KindInvalidDateTimeString
	KindInvalidAction
	KindNotATable
	KindNoMetadata
	KindNoSchema
	KindLoadPartitions
	KindPartitionError
	KindInvalidPartitionFilter
	KindInvalidVacuumRetentionPeriod
	KindVersionAlreadyExists
	KindTransactionCommitAttempt
)

func (k Kind) String() string {
	switch k {
	case KindEndOfLog:
		return "EndOfLog"
	case KindInvalidJSON:
		return "InvalidJson"
	case KindIoError:
		return "IoError"
	case KindStorage:
		return "Storage"
	case KindLoadCheckpointNotFound:
		return "LoadCheckpointNotFound"
	case KindParquet:
		return "Parquet"
	case KindArrow:
		return "Arrow"
	case KindUriError:
		return "UriError"
	case KindInvalidVersion:
		return "InvalidVersion"
	case KindMissingDataFile:
		return "MissingDataFile"
	case KindInvalidDateTimeString:
		return "InvalidDateTimeString"
	case KindInvalidAction:
		return "InvalidAction"
	case KindNotATable:
		return "NotATable"
	case KindNoMetadata:
		return "NoMetadata"
	case KindNoSchema:
		return "NoSchema"
	case KindLoadPartitions:
		return "LoadPartitions"
	case KindPartitionError:
		return "PartitionError"
	case KindInvalidPartitionFilter:
		return "InvalidPartitionFilter"
	case KindInvalidVacuumRetentionPeriod:
		return "InvalidVacuumRetentionPeriod"
	case KindVersionAlreadyExists:
		return "VersionAlreadyExists"
	case KindTransactionCommitAttempt:
		return "TransactionCommitAttempt"
	default:
		return "Unknown"
	}
}

// Sentinels for the data-free members of the taxonomy, so callers can
// do errors.Is(err, ErrNotATable) without unwrapping a *TableError.
var (
	ErrEndOfLog                 = errors.New("end of log")
	ErrLoadCheckpointNotFound   = errors.New("no checkpoint found")
	ErrNotATable                = errors.New("not a delta table")
	ErrNoMetadata               = errors.New("table metadata not loaded")
	ErrNoSchema                 = errors.New("table schema not present")
	ErrVersionAlreadyExists     = errors.New("version already exists")
	ErrTransactionCommitAttempt = errors.New("transaction commit attempts exhausted")
	ErrInvalidVacuumRetention   = errors.New("invalid vacuum retention period")
	ErrLoadPartitions           = errors.New("failed to load partitions")

	// Storage contract sentinels. Concrete storage.Backend
	// implementations must return errors satisfying errors.Is against
	// these exact values.
	ErrNotFound      = errors.New("storage: path not found")
	ErrAlreadyExists = errors.New("storage: destination already exists")
)

// TableError is the single exported error type for every taxonomy member
// that carries data. Kind is always set; Path/Version/Filter/Err are
// populated according to Kind.
type TableError struct {
	Kind    Kind
	Path    string
	Version int64
	Filter  string
	Err     error
}

func (e *TableError) Error() string {
	switch e.Kind {
	case KindInvalidVersion:
		return fmt.Sprintf("invalid version: %d", e.Version)
	case KindMissingDataFile:
		return fmt.Sprintf("missing data file %q: %v", e.Path, e.Err)
	case KindInvalidPartitionFilter:
		return fmt.Sprintf("invalid partition filter: %s", e.Filter)
	case KindPartitionError:
		return fmt.Sprintf("partition error: %s", e.Filter)
	case KindInvalidJSON:
		if e.Path != "" {
			return fmt.Sprintf("invalid JSON in %q: %v", e.Path, e.Err)
		}
		return fmt.Sprintf("invalid JSON: %v", e.Err)
	case KindInvalidAction:
		return fmt.Sprintf("invalid action: %v", e.Err)
	case KindInvalidDateTimeString:
		return fmt.Sprintf("invalid datetime string: %v", e.Err)
	case KindStorage:
		return fmt.Sprintf("storage error at %q: %v", e.Path, e.Err)
	case KindUriError:
		return fmt.Sprintf("could not infer backend from uri %q", e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return e.Kind.String()
	}
}

func (e *TableError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, SomeSentinel) match TableErrors constructed by
// the Kind-specific helpers below, even though Err may be nil.
func (e *TableError) Is(target error) bool {
	switch e.Kind {
	case KindNotATable:
		return target == ErrNotATable
	case KindLoadCheckpointNotFound:
		return target == ErrLoadCheckpointNotFound
	case KindEndOfLog:
		return target == ErrEndOfLog
	case KindVersionAlreadyExists:
		return target == ErrVersionAlreadyExists
	case KindTransactionCommitAttempt:
		return target == ErrTransactionCommitAttempt
	case KindInvalidVacuumRetentionPeriod:
		return target == ErrInvalidVacuumRetention
	case KindNoMetadata:
		return target == ErrNoMetadata
	case KindNoSchema:
		return target == ErrNoSchema
	case KindLoadPartitions:
		return target == ErrLoadPartitions
	}
	return false
}

func NotATable() error { return &TableError{Kind: KindNotATable, Err: ErrNotATable} }

func InvalidVersion(v int64) error {
	return &TableError{Kind: KindInvalidVersion, Version: v}
}

func MissingDataFile(path string, cause error) error {
	return &TableError{Kind: KindMissingDataFile, Path: path, Err: cause}
}

func InvalidDateTimeString(cause error) error {
	return &TableError{Kind: KindInvalidDateTimeString, Err: cause}
}

func InvalidJSON(path string, cause error) error {
	return &TableError{Kind: KindInvalidJSON, Path: path, Err: cause}
}

func InvalidAction(cause error) error {
	return &TableError{Kind: KindInvalidAction, Err: cause}
}

func InvalidPartitionFilter(filter string) error {
	return &TableError{Kind: KindInvalidPartitionFilter, Filter: filter}
}

func PartitionError(partition string) error {
	return &TableError{Kind: KindPartitionError, Filter: partition}
}

func InvalidVacuumRetentionPeriod() error {
	return &TableError{Kind: KindInvalidVacuumRetentionPeriod, Err: ErrInvalidVacuumRetention}
}

func Storage(path string, cause error) error {
	return &TableError{Kind: KindStorage, Path: path, Err: cause}
}

func UriError(path string) error {
	return &TableError{Kind: KindUriError, Path: path}
}

func VersionAlreadyExists(v int64) error {
	return &TableError{Kind: KindVersionAlreadyExists, Version: v, Err: ErrVersionAlreadyExists}
}

func TransactionCommitAttempt() error {
	return &TableError{Kind: KindTransactionCommitAttempt, Err: ErrTransactionCommitAttempt}
}

func NoMetadata() error { return &TableError{Kind: KindNoMetadata, Err: ErrNoMetadata} }
func NoSchema() error   { return &TableError{Kind: KindNoSchema, Err: ErrNoSchema} }
