package repository

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// page normalises pagination input the same way for every list query.
type page struct {
	number int
	size   int
}

func newPage(number, size int) page {
	if number < 1 {
		number = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return page{number: number, size: size}
}

func (p page) offset() int { return (p.number - 1) * p.size }

func (p page) clause() string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", p.size, p.offset())
}

// orderClause resolves sortBy through an allowlist so user input never reaches SQL.
func orderClause(sortBy, sortOrder string, allowed map[string]string, fallback string) string {
	column, ok := allowed[sortBy]
	if !ok {
		column = allowed[fallback]
	}
	order := strings.ToUpper(sortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s", column, order)
}

// conditions accumulates WHERE predicates with positional arguments.
type conditions struct {
	parts []string
	args  []interface{}
}

// add appends a predicate; every "?" in expr is replaced by the next placeholder
// bound to value.
func (c *conditions) add(expr string, value interface{}) {
	c.args = append(c.args, value)
	c.parts = append(c.parts, strings.ReplaceAll(expr, "?", fmt.Sprintf("$%d", len(c.args))))
}

func (c *conditions) where() string {
	if len(c.parts) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.parts, " AND ")
}

func executor(exec sqlx.ExtContext, db *sqlx.DB) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return db
}
