// Package deltalog is the public facade over the table client's
// internal engine packages: it wraps internal/table's Snapshot Engine,
// internal/commit's Commit Engine, internal/partition's filter
// evaluation, and internal/vacuum's retention planner behind one
// DeltaTable handle and a Transaction type.
package deltalog

import (
	"context"
	"time"

	"github.com/kartikbazzad/deltalog/internal/action"
	"github.com/kartikbazzad/deltalog/internal/checkpoint"
	"github.com/kartikbazzad/deltalog/internal/checkpoint/parquetio"
	"github.com/kartikbazzad/deltalog/internal/commit"
	"github.com/kartikbazzad/deltalog/internal/config"
	tableerrors "github.com/kartikbazzad/deltalog/internal/errors"
	"github.com/kartikbazzad/deltalog/internal/logger"
	"github.com/kartikbazzad/deltalog/internal/partition"
	"github.com/kartikbazzad/deltalog/internal/storage"
	"github.com/kartikbazzad/deltalog/internal/table"
	"github.com/kartikbazzad/deltalog/internal/vacuum"
)

// Re-export the taxonomy types callers need to inspect errors with,
// so importing only this package is enough for ordinary use.
type (
	TableError = tableerrors.TableError
	ErrorKind  = tableerrors.Kind
)

var (
	ErrNotATable            = tableerrors.ErrNotATable
	ErrVersionAlreadyExists = tableerrors.ErrVersionAlreadyExists
)

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	cfg                   *config.Config
	log                   *logger.Logger
	rows                  checkpoint.RowReader
	checkpointConcurrency int
}

func WithConfig(cfg *config.Config) Option {
	return func(o *openOptions) { o.cfg = cfg }
}

func WithLogger(log *logger.Logger) Option {
	return func(o *openOptions) { o.log = log }
}

// WithRowReader overrides the checkpoint part-file decoder; defaults
// to the Arrow/Parquet-backed reader in internal/checkpoint/parquetio.
func WithRowReader(rows checkpoint.RowReader) Option {
	return func(o *openOptions) { o.rows = rows }
}

// DeltaTable is the public handle over one table directory. It is not
// safe for concurrent use by more than one goroutine at a time - the
// same single-actor-per-handle rule the engine's concurrency model
// assumes.
type DeltaTable struct {
	tbl     *table.Table
	backend storage.Backend
	cfg     *config.Config
	log     *logger.Logger
}

// Open resolves the latest version of the table rooted at tablePath on
// backend. A directory with no transaction log at all fails with
// ErrNotATable.
func Open(ctx context.Context, backend storage.Backend, tablePath string, opts ...Option) (*DeltaTable, error) {
	o := openOptions{cfg: config.DefaultConfig(), log: logger.Default(), checkpointConcurrency: 4}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rows == nil {
		o.rows = parquetio.New()
	}
	if o.cfg.Checkpoint.ReadConcurrency > 0 {
		o.checkpointConcurrency = o.cfg.Checkpoint.ReadConcurrency
	}

	tbl := table.New(backend, tablePath, o.rows, o.checkpointConcurrency, o.log)
	if err := tbl.Load(ctx); err != nil {
		return nil, err
	}
	return &DeltaTable{tbl: tbl, backend: backend, cfg: o.cfg, log: o.log}, nil
}

// Version returns the currently loaded version, or -1 before any
// successful load.
func (d *DeltaTable) Version() int64 { return d.tbl.Version }

// Update refreshes the handle to the latest version.
func (d *DeltaTable) Update(ctx context.Context) error { return d.tbl.Update(ctx) }

// LoadVersion pins the handle to exactly version v.
func (d *DeltaTable) LoadVersion(ctx context.Context, v int64) error {
	return d.tbl.LoadVersion(ctx, v)
}

// LoadWithDatetime resolves the greatest version whose log entry's
// modification time is at or before t. Among entries that share t's
// exact timestamp, whichever the search probes first is taken; a t
// earlier than every entry resolves to version 0.
func (d *DeltaTable) LoadWithDatetime(ctx context.Context, t time.Time) error {
	return d.tbl.LoadWithDatetime(ctx, t.Unix())
}

// GetVersionTimestamp returns the modification time, in seconds, of
// log entry v.
func (d *DeltaTable) GetVersionTimestamp(ctx context.Context, v int64) (int64, error) {
	return d.tbl.GetVersionTimestamp(ctx, v)
}

// Files returns the live data files of the currently loaded snapshot.
func (d *DeltaTable) Files() []action.Add { return d.tbl.State.Files }

// FilesFiltered returns the live data files matching every filter,
// decomposing each path by the current metadata's partition columns.
func (d *DeltaTable) FilesFiltered(filters []partition.Filter) ([]action.Add, error) {
	md, err := d.Metadata()
	if err != nil {
		return nil, err
	}
	return partition.FilterFiles(d.tbl.State.Files, md.PartitionColumns, filters), nil
}

// Metadata returns the currently loaded table metadata, or NoMetadata
// if none has been committed yet.
func (d *DeltaTable) Metadata() (*action.MetaData, error) {
	if d.tbl.State.CurrentMetadata == nil {
		return nil, tableerrors.NoMetadata()
	}
	return d.tbl.State.CurrentMetadata, nil
}

// Schema parses the current metadata's embedded schema string.
func (d *DeltaTable) Schema() (action.Schema, error) {
	md, err := d.Metadata()
	if err != nil {
		return action.Schema{}, err
	}
	if md.SchemaString == "" {
		return action.Schema{}, tableerrors.NoSchema()
	}
	return action.ParseSchema(md.SchemaString)
}

// Tombstones returns the currently loaded snapshot's Remove records.
func (d *DeltaTable) Tombstones() []action.Remove { return d.tbl.State.Tombstones }

// TablePath returns the table's root directory.
func (d *DeltaTable) TablePath() string { return d.tbl.TablePath() }

// NewTransaction borrows the handle exclusively for a commit.
func (d *DeltaTable) NewTransaction() *Transaction {
	return &Transaction{dt: d, eng: commit.New(d.tbl, d.backend, d.cfg, d.log)}
}

// Transaction wraps the Commit Engine against one borrowed handle.
type Transaction struct {
	dt  *DeltaTable
	eng *commit.Engine
}

// CommitWith is the optimistic entry point.
func (tx *Transaction) CommitWith(ctx context.Context, actions []action.Action) (int64, error) {
	return tx.eng.CommitWith(ctx, actions)
}

// CommitVersion attempts a single rename to the caller-chosen version.
func (tx *Transaction) CommitVersion(ctx context.Context, v int64, actions []action.Action) (int64, error) {
	return tx.eng.CommitVersion(ctx, v, actions)
}

// Vacuum computes (and, unless dryRun, executes) the vacuum plan for
// this table.
func (d *DeltaTable) Vacuum(ctx context.Context, retentionHours uint64, dryRun bool) (vacuum.Plan, error) {
	md, err := d.Metadata()
	var partitionColumns []string
	if err == nil {
		partitionColumns = md.PartitionColumns
	}
	planner := vacuum.New(d.backend, d.tbl.TablePath(), d.log)
	return planner.Run(ctx, d.tbl.State.Tombstones, d.tbl.State.Files, partitionColumns, retentionHours, time.Now().UnixMilli(), dryRun)
}
