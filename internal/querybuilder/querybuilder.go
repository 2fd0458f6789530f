// Package querybuilder turns a closed set of query operators into gorm
// scopes, giving the generic /users, /logs, /metrics CRUD surfaces a single
// filtering contract instead of one hand-rolled Where clause per field.
package querybuilder

import (
	"fmt"
	"strings"

	"github.com/snapq/snapq-go/internal/apperror"
	"gorm.io/gorm"
)

// Operator is one member of the closed operator set the CRUD surface
// exposes through ?filter[field][op]=value query parameters.
type Operator string

const (
	OpEq             Operator = "eq"
	OpNe             Operator = "ne"
	OpGt             Operator = "gt"
	OpGte            Operator = "gte"
	OpLt             Operator = "lt"
	OpLte            Operator = "lte"
	OpLike           Operator = "like"
	OpILike          Operator = "ilike"
	OpStartsWith     Operator = "startswith"
	OpEndsWith       Operator = "endswith"
	OpIsNull         Operator = "isnull"
	OpIsNotNull      Operator = "isnotnull"
	OpIn             Operator = "in"
	OpNotIn          Operator = "notin"
	OpBetween        Operator = "between"
	OpArrayContains  Operator = "arraycontains"
	OpArrayContained Operator = "arraycontained"
	OpArrayOverlaps  Operator = "arrayoverlaps"
)

var valueless = map[Operator]bool{
	OpIsNull:    true,
	OpIsNotNull: true,
}

// Filter is one parsed condition: field <op> value(s).
type Filter struct {
	Field    string
	Operator Operator
	Values   []string
}

// Sort is a parsed ORDER BY clause.
type Sort struct {
	Field string
	Desc  bool
}

// Query is the full parsed request: filters, sort, and pagination.
type Query struct {
	Filters []Filter
	Sorts   []Sort
	Limit   int
	Offset  int
}

// Scope builds a gorm scope applying every filter and sort in the query.
// Field names are validated against allowedFields so arbitrary column
// access can never reach the database.
func (q *Query) Scope(allowedFields map[string]bool) (func(*gorm.DB) *gorm.DB, error) {
	for _, f := range q.Filters {
		if !allowedFields[f.Field] {
			return nil, apperror.Validation(fmt.Sprintf("unknown filter field %q", f.Field))
		}
	}
	for _, s := range q.Sorts {
		if !allowedFields[s.Field] {
			return nil, apperror.Validation(fmt.Sprintf("unknown sort field %q", s.Field))
		}
	}

	return func(db *gorm.DB) *gorm.DB {
		for _, f := range q.Filters {
			db = applyFilter(db, f)
		}
		for _, s := range q.Sorts {
			dir := "ASC"
			if s.Desc {
				dir = "DESC"
			}
			db = db.Order(fmt.Sprintf("%s %s", s.Field, dir))
		}
		if q.Limit > 0 {
			db = db.Limit(q.Limit)
		}
		if q.Offset > 0 {
			db = db.Offset(q.Offset)
		}
		return db
	}, nil
}

func applyFilter(db *gorm.DB, f Filter) *gorm.DB {
	col := f.Field
	var val interface{}
	if len(f.Values) == 1 {
		val = f.Values[0]
	}

	switch f.Operator {
	case OpEq:
		return db.Where(fmt.Sprintf("%s = ?", col), val)
	case OpNe:
		return db.Where(fmt.Sprintf("%s <> ?", col), val)
	case OpGt:
		return db.Where(fmt.Sprintf("%s > ?", col), val)
	case OpGte:
		return db.Where(fmt.Sprintf("%s >= ?", col), val)
	case OpLt:
		return db.Where(fmt.Sprintf("%s < ?", col), val)
	case OpLte:
		return db.Where(fmt.Sprintf("%s <= ?", col), val)
	case OpLike:
		return db.Where(fmt.Sprintf("%s LIKE ?", col), val)
	case OpILike:
		return db.Where(fmt.Sprintf("%s ILIKE ?", col), val)
	case OpStartsWith:
		return db.Where(fmt.Sprintf("%s LIKE ?", col), fmt.Sprintf("%v%%", val))
	case OpEndsWith:
		return db.Where(fmt.Sprintf("%s LIKE ?", col), fmt.Sprintf("%%%v", val))
	case OpIsNull:
		return db.Where(fmt.Sprintf("%s IS NULL", col))
	case OpIsNotNull:
		return db.Where(fmt.Sprintf("%s IS NOT NULL", col))
	case OpIn:
		return db.Where(fmt.Sprintf("%s IN ?", col), f.Values)
	case OpNotIn:
		return db.Where(fmt.Sprintf("%s NOT IN ?", col), f.Values)
	case OpBetween:
		if len(f.Values) == 2 {
			return db.Where(fmt.Sprintf("%s BETWEEN ? AND ?", col), f.Values[0], f.Values[1])
		}
		return db
	case OpArrayContains:
		return db.Where(fmt.Sprintf("%s @> ?", col), pgArray(f.Values))
	case OpArrayContained:
		return db.Where(fmt.Sprintf("%s <@ ?", col), pgArray(f.Values))
	case OpArrayOverlaps:
		return db.Where(fmt.Sprintf("%s && ?", col), pgArray(f.Values))
	default:
		return db
	}
}

func pgArray(values []string) string {
	return "{" + strings.Join(values, ",") + "}"
}

// ParseOperator validates a raw operator string against the closed set.
func ParseOperator(raw string) (Operator, bool) {
	op := Operator(strings.ToLower(raw))
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpLike, OpILike, OpStartsWith, OpEndsWith,
		OpIsNull, OpIsNotNull, OpIn, OpNotIn, OpBetween, OpArrayContains, OpArrayContained, OpArrayOverlaps:
		return op, true
	default:
		return "", false
	}
}

// RequiresValue reports whether the operator needs at least one value.
func RequiresValue(op Operator) bool {
	return !valueless[op]
}
