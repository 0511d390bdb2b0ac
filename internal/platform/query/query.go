package query

import (
	"fmt"
	"strings"
)

// Builder assembles SQL WHERE clauses with numbered placeholders. It
// encapsulates the common listing pattern used across domain repositories:
// a count query plus a data query sharing the same filter set.
type Builder struct {
	table   string
	cols    string
	where   string
	args    []interface{}
	idx     int
	orderBy string
}

// New creates a Builder for the given table and column list.
func New(table, cols string) *Builder {
	return &Builder{
		table: table,
		cols:  cols,
		idx:   1,
	}
}

// Idx returns the next available parameter index.
func (q *Builder) Idx() int { return q.idx }

// Where appends a raw WHERE clause fragment (without leading "AND").
// Placeholders in the fragment must match the indices returned by Idx.
func (q *Builder) Where(clause string, args ...interface{}) {
	q.where += " AND " + clause
	q.args = append(q.args, args...)
	q.idx += len(args)
}

// Equal adds an exact-match clause on the given column.
func (q *Builder) Equal(column string, value interface{}) {
	q.where += fmt.Sprintf(" AND %s = $%d", column, q.idx)
	q.args = append(q.args, value)
	q.idx++
}

// Search adds a case-insensitive substring clause over one or more columns,
// combined with OR.
func (q *Builder) Search(value string, columns ...string) {
	var parts []string
	for _, col := range columns {
		parts = append(parts, fmt.Sprintf("%s ILIKE $%d", col, q.idx))
	}
	q.where += " AND (" + strings.Join(parts, " OR ") + ")"
	q.args = append(q.args, "%"+value+"%")
	q.idx++
}

// From adds an inclusive lower bound on a timestamp or date column.
func (q *Builder) From(column string, value interface{}) {
	q.where += fmt.Sprintf(" AND %s >= $%d", column, q.idx)
	q.args = append(q.args, value)
	q.idx++
}

// Until adds an inclusive upper bound on a timestamp or date column.
func (q *Builder) Until(column string, value interface{}) {
	q.where += fmt.Sprintf(" AND %s <= $%d", column, q.idx)
	q.args = append(q.args, value)
	q.idx++
}

// Before adds a strict upper bound on a timestamp or date column.
func (q *Builder) Before(column string, value interface{}) {
	q.where += fmt.Sprintf(" AND %s < $%d", column, q.idx)
	q.args = append(q.args, value)
	q.idx++
}

// Between adds an inclusive range clause on a timestamp or date column.
func (q *Builder) Between(column string, from, to interface{}) {
	q.where += fmt.Sprintf(" AND %s >= $%d AND %s <= $%d", column, q.idx, column, q.idx+1)
	q.args = append(q.args, from, to)
	q.idx += 2
}

// OrderBy sets the ORDER BY clause (without the "ORDER BY" keyword).
func (q *Builder) OrderBy(orderBy string) {
	q.orderBy = orderBy
}

// CountSQL returns the count query SQL.
func (q *Builder) CountSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE 1=1%s", q.table, q.where)
}

// CountArgs returns the arguments for the count query.
func (q *Builder) CountArgs() []interface{} {
	return q.args
}

// DataSQL returns the data query SQL with ORDER BY and LIMIT/OFFSET.
func (q *Builder) DataSQL() string {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1%s", q.cols, q.table, q.where)
	if q.orderBy != "" {
		sql += " ORDER BY " + q.orderBy
	}
	sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", q.idx, q.idx+1)
	return sql
}

// DataArgs returns the arguments for the data query (filter args + limit + offset).
func (q *Builder) DataArgs(limit, offset int) []interface{} {
	result := make([]interface{}, len(q.args)+2)
	copy(result, q.args)
	result[len(q.args)] = limit
	result[len(q.args)+1] = offset
	return result
}
