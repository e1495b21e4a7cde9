package partition

import (
	"errors"
	"testing"

	"github.com/kartikbazzad/deltalog/internal/action"
	tableerrors "github.com/kartikbazzad/deltalog/internal/errors"
)

func TestNewFilter_UnknownOperation(t *testing.T) {
	_, err := NewFilter("region", "between", []string{"a"})
	var tableErr *tableerrors.TableError
	if !errors.As(err, &tableErr) || tableErr.Kind != tableerrors.KindInvalidPartitionFilter {
		t.Fatalf("expected InvalidPartitionFilter, got %v", err)
	}
}

func TestParsePathAssignment(t *testing.T) {
	got := ParsePathAssignment("region=us/day=2026-07-29/part-0000.parquet", []string{"region", "day"})
	if got["region"] != "us" || got["day"] != "2026-07-29" {
		t.Fatalf("unexpected assignment: %+v", got)
	}
}

func TestParsePathAssignment_MalformedSegmentYieldsNoEntry(t *testing.T) {
	got := ParsePathAssignment("regionus/part-0000.parquet", []string{"region"})
	if _, ok := got["region"]; ok {
		t.Fatalf("expected no entry for malformed segment, got %+v", got)
	}
}

func TestFilterMatches_Equal(t *testing.T) {
	f, err := NewFilter("region", "equal", []string{"us"})
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	add := action.Add{Path: "region=us/part-0000.parquet"}
	if !Matches(add, []string{"region"}, []Filter{f}) {
		t.Fatalf("expected match")
	}

	addOther := action.Add{Path: "region=eu/part-0000.parquet"}
	if Matches(addOther, []string{"region"}, []Filter{f}) {
		t.Fatalf("expected no match")
	}
}

func TestFilterMatches_In(t *testing.T) {
	f, err := NewFilter("region", "in", []string{"us", "eu"})
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	add := action.Add{Path: "region=eu/part-0000.parquet"}
	if !Matches(add, []string{"region"}, []Filter{f}) {
		t.Fatalf("expected match")
	}
}

func TestFilterMatches_AbsentColumnNeverMatches(t *testing.T) {
	f, err := NewFilter("missing", "equal", []string{"x"})
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	add := action.Add{Path: "region=us/part-0000.parquet"}
	if Matches(add, []string{"region"}, []Filter{f}) {
		t.Fatalf("expected no match for absent column")
	}
}

func TestFilterFiles(t *testing.T) {
	f, err := NewFilter("region", "equal", []string{"us"})
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	files := []action.Add{
		{Path: "region=us/a.parquet"},
		{Path: "region=eu/b.parquet"},
		{Path: "region=us/c.parquet"},
	}
	got := FilterFiles(files, []string{"region"}, []Filter{f})
	if len(got) != 2 {
		t.Fatalf("expected 2 files, got %d", len(got))
	}
}
