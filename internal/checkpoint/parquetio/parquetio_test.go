package parquetio_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/kartikbazzad/deltalog/internal/checkpoint/parquetio"
)

// buildAddPart encodes a real single-column Parquet part file with an
// "add" struct column carrying one populated row and one all-null row,
// the shape a checkpoint writer produces for a part with no removes,
// protocol, metaData, or txn entries.
func buildAddPart(t *testing.T) []byte {
	t.Helper()
	mem := memory.NewGoAllocator()

	addType := arrow.StructOf(
		arrow.Field{Name: "path", Type: arrow.BinaryTypes.String},
		arrow.Field{Name: "size", Type: arrow.PrimitiveTypes.Int64},
		arrow.Field{Name: "modificationTime", Type: arrow.PrimitiveTypes.Int64},
		arrow.Field{Name: "dataChange", Type: arrow.FixedWidthTypes.Boolean},
	)
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "add", Type: addType, Nullable: true},
	}, nil)

	sb := array.NewStructBuilder(mem, addType)
	defer sb.Release()
	pathB := sb.FieldBuilder(0).(*array.StringBuilder)
	sizeB := sb.FieldBuilder(1).(*array.Int64Builder)
	mtimeB := sb.FieldBuilder(2).(*array.Int64Builder)
	dcB := sb.FieldBuilder(3).(*array.BooleanBuilder)

	sb.Append(true)
	pathB.Append("part-0001.snappy.parquet")
	sizeB.Append(4096)
	mtimeB.Append(1700000000)
	dcB.Append(true)

	sb.AppendNull() // an all-null row: no action present in this part

	structArr := sb.NewStructArray()
	defer structArr.Release()

	rec := array.NewRecord(schema, []arrow.Array{structArr}, int64(structArr.Len()))
	defer rec.Release()

	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	var buf bytes.Buffer
	props := parquet.NewWriterProperties()
	if err := pqarrow.WriteTable(tbl, &buf, rec.NumRows(), props, pqarrow.ArrowWriterProperties{}); err != nil {
		t.Fatalf("write parquet part: %v", err)
	}
	return buf.Bytes()
}

func TestReaderRoundTripsAddRow(t *testing.T) {
	data := buildAddPart(t)

	r := parquetio.New()
	it, err := r.Open(context.Background(), data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer it.Close()

	a, ok, err := it.Next()
	if err != nil || !ok {
		t.Fatalf("Next() row 1: ok=%v err=%v", ok, err)
	}
	if a.Add == nil {
		t.Fatalf("expected an Add action, got %+v", a)
	}
	if a.Add.Path != "part-0001.snappy.parquet" {
		t.Errorf("path = %q, want part-0001.snappy.parquet", a.Add.Path)
	}
	if a.Add.Size != 4096 {
		t.Errorf("size = %d, want 4096", a.Add.Size)
	}
	if a.Add.ModificationTime != 1700000000 {
		t.Errorf("modificationTime = %d, want 1700000000", a.Add.ModificationTime)
	}
	if !a.Add.DataChange {
		t.Errorf("dataChange = false, want true")
	}

	a2, ok, err := it.Next()
	if err != nil || !ok {
		t.Fatalf("Next() row 2: ok=%v err=%v", ok, err)
	}
	if tag, has := a2.Which(); has {
		t.Errorf("expected the all-null row to decode as a no-op, got tag %v", tag)
	}

	_, ok, err = it.Next()
	if err != nil {
		t.Fatalf("Next() row 3: %v", err)
	}
	if ok {
		t.Fatalf("expected exhaustion after 2 rows")
	}
}
