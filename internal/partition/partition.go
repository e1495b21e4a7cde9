// Package partition implements the Partition Filter:
// parsing `key=value` segments out of a data-file path and evaluating
// predicates against an Add's partition assignment.
package partition

import (
	"strings"

	"github.com/kartikbazzad/deltalog/internal/action"
	tableerrors "github.com/kartikbazzad/deltalog/internal/errors"
)

// Operation is one of the four predicate kinds a Filter supports.
type Operation int

const (
	OpEqual Operation = iota
	OpNotEqual
	OpIn
	OpNotIn
)

func ParseOperation(s string) (Operation, bool) {
	switch s {
	case "equal":
		return OpEqual, true
	case "not_equal":
		return OpNotEqual, true
	case "in":
		return OpIn, true
	case "not_in":
		return OpNotIn, true
	default:
		return 0, false
	}
}

// Filter is {column, operation, value(s)}. Equal/NotEqual
// use Values[0]; In/NotIn use the whole slice.
type Filter struct {
	Column    string
	Operation Operation
	Values    []string
}

// NewFilter validates operation against the four-member enum, in the
// same validation-then-sentinel-error style used elsewhere in this
// codebase for constructor-time input checking.
func NewFilter(column, operation string, values []string) (Filter, error) {
	op, ok := ParseOperation(operation)
	if !ok {
		return Filter{}, tableerrors.InvalidPartitionFilter(operation)
	}
	if (op == OpEqual || op == OpNotEqual) && len(values) != 1 {
		return Filter{}, tableerrors.InvalidPartitionFilter(operation)
	}
	if (op == OpIn || op == OpNotIn) && len(values) == 0 {
		return Filter{}, tableerrors.InvalidPartitionFilter(operation)
	}
	return Filter{Column: column, Operation: op, Values: values}, nil
}

// Matches reports whether assignment[f.Column] satisfies f. An absent
// column never matches.
func (f Filter) Matches(assignment map[string]string) bool {
	v, ok := assignment[f.Column]
	if !ok {
		return false
	}
	switch f.Operation {
	case OpEqual:
		return v == f.Values[0]
	case OpNotEqual:
		return v != f.Values[0]
	case OpIn:
		return contains(f.Values, v)
	case OpNotIn:
		return !contains(f.Values, v)
	default:
		return false
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePathAssignment decomposes a data-file path into its partition
// column assignment: split on "/" at most
// len(partitionColumns)+1 pieces; each non-final piece parses as
// "key=value". Malformed segments yield no entry for that segment
// rather than an error.
func ParsePathAssignment(path string, partitionColumns []string) map[string]string {
	assignment := make(map[string]string, len(partitionColumns))
	if len(partitionColumns) == 0 {
		return assignment
	}
	parts := strings.SplitN(path, "/", len(partitionColumns)+1)
	for _, segment := range parts[:len(parts)-1] {
		key, value, ok := strings.Cut(segment, "=")
		if !ok {
			continue
		}
		assignment[key] = value
	}
	return assignment
}

// Matches reports whether every filter in filters matches add's parsed
// partition assignment.
func Matches(add action.Add, partitionColumns []string, filters []Filter) bool {
	assignment := ParsePathAssignment(add.Path, partitionColumns)
	for _, f := range filters {
		if !f.Matches(assignment) {
			return false
		}
	}
	return true
}

// Filter the given Add records down to those matching every filter.
func FilterFiles(files []action.Add, partitionColumns []string, filters []Filter) []action.Add {
	if len(filters) == 0 {
		return files
	}
	out := make([]action.Add, 0, len(files))
	for _, f := range files {
		if Matches(f, partitionColumns, filters) {
			out = append(out, f)
		}
	}
	return out
}
