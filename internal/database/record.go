package database

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/agentdeck/agentdeck/internal/datamodel"
)

// Record is the explicit per-entity column binding the façade operates on.
// Every persistable type declares its table, its insertable columns, how its
// values map onto those columns, and how a row scans back. This replaces
// reflective field copying with one hand-written binding per type.
type Record interface {
	Table() string
	Kind() string
	Columns() []string
	Values() ([]any, error)
	ScanRow(sc datamodel.Scanner) error
	RecordID() int64
	SetRecordID(int64)
	CreatedTime() time.Time
	SetCreatedTime(time.Time)
	SetUpdatedTime(time.Time)
}

// recordOf ties a Record implementation to its underlying struct so the
// façade can allocate fresh instances while scanning.
type recordOf[T any] interface {
	*T
	Record
}

// Order is the created_at sort direction for Get.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// placeholder renders the i-th (1-based) bind parameter for the backend.
// lib/pq wants $N; the SQLite drivers take ?.
func placeholder(backend Backend, i int) string {
	if backend == BackendPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// buildWhere composes an equality-conjunction WHERE clause from the filter
// map. Filter keys are validated against the record's columns (plus id); an
// unknown key is an execution failure, never interpolated. Keys are sorted
// so the generated SQL is deterministic.
func buildWhere(backend Backend, rec Record, filters map[string]any) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	allowed := append([]string{"id"}, rec.Columns()...)

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []string
	var args []any
	for i, k := range keys {
		if !slices.Contains(allowed, k) {
			return "", nil, fmt.Errorf("unknown filter column %q for %s", k, rec.Table())
		}
		clauses = append(clauses, fmt.Sprintf("%s = %s", k, placeholder(backend, i+1)))
		args = append(args, filters[k])
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// orderClause renders the created_at ordering when the record carries a
// creation timestamp; records without one are returned in storage order.
func orderClause(rec Record, order Order) (string, error) {
	if order == "" {
		return "", nil
	}
	if !slices.Contains(rec.Columns(), "created_at") {
		return "", nil
	}
	switch order {
	case OrderAsc:
		return " ORDER BY created_at ASC", nil
	case OrderDesc:
		return " ORDER BY created_at DESC", nil
	default:
		return "", fmt.Errorf("invalid order %q", order)
	}
}

// selectColumns is the projection used by lookups: id first, then the
// record's columns in declaration order, matching ScanRow.
func selectColumns(rec Record) string {
	return "id, " + strings.Join(rec.Columns(), ", ")
}
