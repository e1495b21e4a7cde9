// Package parquetio is the concrete checkpoint.RowReader implementation,
// kept outside internal/checkpoint so the Arrow/Parquet dependency never
// leaks into the core engine.
// Each row of a checkpoint part file is a struct with six nullable
// columns, one per action tag; this reader flattens
// whichever single column is non-null into the same single-top-level-key
// JSON shape the log's JSON entries use, then hands it to
// action.Action's own unmarshaler so both paths share one parser.
package parquetio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/kartikbazzad/deltalog/internal/action"
	"github.com/kartikbazzad/deltalog/internal/checkpoint"
)

var actionColumns = []string{"add", "remove", "protocol", "metaData", "txn", "commitInfo"}

// Reader decodes checkpoint part files written in the six-column
// struct-of-nullables layout.
type Reader struct {
	Allocator memory.Allocator
}

func New() *Reader {
	return &Reader{Allocator: memory.DefaultAllocator}
}

func (r *Reader) Open(ctx context.Context, data []byte) (checkpoint.RowIterator, error) {
	pf, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parquetio: open part: %w", err)
	}

	alloc := r.Allocator
	if alloc == nil {
		alloc = memory.DefaultAllocator
	}
	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, alloc)
	if err != nil {
		pf.Close()
		return nil, fmt.Errorf("parquetio: build arrow reader: %w", err)
	}

	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		pf.Close()
		return nil, fmt.Errorf("parquetio: read table: %w", err)
	}

	return &RowIterator{table: tbl, parquet: pf, numRows: int(tbl.NumRows())}, nil
}

// RowIterator walks a decoded arrow.Table one logical row at a time,
// re-chunking across the table's record batches as needed.
type RowIterator struct {
	table   arrow.Table
	parquet *file.Reader

	numRows int
	row     int

	reader   *array.TableReader
	current  arrow.Record
	curStart int // row index of current.Column(0).Data().Offset() within the full table
}

func (it *RowIterator) Next() (action.Action, bool, error) {
	if it.row >= it.numRows {
		return action.Action{}, false, nil
	}
	if it.reader == nil {
		it.reader = array.NewTableReader(it.table, -1)
	}
	for it.current == nil || it.row-it.curStart >= int(it.current.NumRows()) {
		if it.current != nil {
			it.curStart += int(it.current.NumRows())
			it.current.Release()
			it.current = nil
		}
		if !it.reader.Next() {
			return action.Action{}, false, nil
		}
		it.current = it.reader.Record()
		it.current.Retain()
	}

	localRow := it.row - it.curStart
	fields := make(map[string]json.RawMessage, len(actionColumns))
	schema := it.current.Schema()
	for _, name := range actionColumns {
		idx := schema.FieldIndices(name)
		if len(idx) == 0 {
			continue
		}
		col := it.current.Column(idx[0])
		if col.IsNull(localRow) {
			continue
		}
		val := arrowValueAt(col, localRow)
		raw, err := json.Marshal(val)
		if err != nil {
			return action.Action{}, false, fmt.Errorf("parquetio: encode column %q row %d: %w", name, it.row, err)
		}
		fields[name] = raw
	}
	it.row++

	switch len(fields) {
	case 0:
		return action.Action{}, true, nil
	case 1:
		wrapped, err := json.Marshal(fields)
		if err != nil {
			return action.Action{}, false, err
		}
		var a action.Action
		if err := json.Unmarshal(wrapped, &a); err != nil {
			return action.Action{}, false, err
		}
		return a, true, nil
	default:
		return action.Action{}, false, fmt.Errorf("parquetio: row %d has %d non-null action columns, want at most 1", it.row-1, len(fields))
	}
}

func (it *RowIterator) Close() error {
	if it.current != nil {
		it.current.Release()
	}
	if it.table != nil {
		it.table.Release()
	}
	if it.parquet != nil {
		return it.parquet.Close()
	}
	return nil
}

// arrowValueAt converts one cell of an arrow column into a plain Go
// value suitable for json.Marshal, recursing into struct, list, and map
// columns. Numeric/string/bool leaves use the array's typed accessor.
func arrowValueAt(col arrow.Array, row int) interface{} {
	if col.IsNull(row) {
		return nil
	}
	switch c := col.(type) {
	case *array.Boolean:
		return c.Value(row)
	case *array.Int32:
		return c.Value(row)
	case *array.Int64:
		return c.Value(row)
	case *array.Float32:
		return c.Value(row)
	case *array.Float64:
		return c.Value(row)
	case *array.String:
		return c.Value(row)
	case *array.LargeString:
		return c.Value(row)
	case *array.Struct:
		out := make(map[string]interface{}, c.NumField())
		st := c.DataType().(*arrow.StructType)
		for i := 0; i < c.NumField(); i++ {
			out[st.Field(i).Name] = arrowValueAt(c.Field(i), row)
		}
		return out
	case *array.List:
		start, end := c.ValueOffsets(row)
		items := c.ListValues()
		out := make([]interface{}, 0, end-start)
		for i := start; i < end; i++ {
			out = append(out, arrowValueAt(items, int(i)))
		}
		return out
	case *array.Map:
		start, end := c.ValueOffsets(row)
		keys := c.Keys()
		values := c.Items()
		out := make(map[string]interface{}, end-start)
		for i := start; i < end; i++ {
			k := fmt.Sprintf("%v", arrowValueAt(keys, int(i)))
			out[k] = arrowValueAt(values, int(i))
		}
		return out
	default:
		return nil
	}
}
