package pagination

import (
	"fmt"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxFilters bounds how many filters a single query may carry.
	MaxFilters = 20
	// MaxListValues bounds the values of an in/nin filter.
	MaxListValues = 100
)

type Operator string

const (
	OpEq      Operator = "eq"
	OpNe      Operator = "ne"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpIn      Operator = "in"
	OpNin     Operator = "nin"
	OpILike   Operator = "ilike"
	OpBetween Operator = "between"
	OpExists  Operator = "exists"
)

var operatorsByType = map[FieldType][]Operator{
	FieldTypeString:  {OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpIn, OpNin, OpILike, OpBetween, OpExists},
	FieldTypeNumber:  {OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpIn, OpNin, OpBetween, OpExists},
	FieldTypeDate:    {OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpBetween, OpExists},
	FieldTypeBoolean: {OpEq, OpNe, OpExists},
	FieldTypeUUID:    {OpEq, OpNe, OpIn, OpNin, OpExists},
}

func operatorsFor(t FieldType) []Operator {
	return append([]Operator(nil), operatorsByType[t]...)
}

func operatorAllowed(t FieldType, op Operator) bool {
	for _, candidate := range operatorsByType[t] {
		if candidate == op {
			return true
		}
	}
	return false
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Filter is one client supplied predicate. Value stays untyped until it is
// checked against the field's declared type.
type Filter struct {
	FieldName string   `json:"fieldName"`
	Operator  Operator `json:"operator"`
	Value     any      `json:"value"`
}

type Sort struct {
	Field     string
	Direction Direction
}

// ParseSort accepts "field" or "field:asc|desc".
func ParseSort(raw string) (*Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	field, dir, found := strings.Cut(raw, ":")
	s := &Sort{Field: strings.TrimSpace(field), Direction: Asc}
	if found {
		switch Direction(strings.ToLower(strings.TrimSpace(dir))) {
		case Asc:
		case Desc:
			s.Direction = Desc
		default:
			return nil, fmt.Errorf("invalid sort direction %q", dir)
		}
	}
	if s.Field == "" {
		return nil, fmt.Errorf("sort field is required")
	}
	return s, nil
}

// Query is the transport independent list request.
type Query struct {
	Page    int
	Limit   int
	Search  string
	Filters []Filter
	Sort    *Sort
	Columns []string
}

// Normalized fills zero values with defaults. Out of range values are left
// for Validate to report.
func (q Query) Normalized() Query {
	if q.Page == 0 {
		q.Page = DefaultPage
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// Offset is the number of rows skipped for the current page.
func (q Query) Offset() int {
	if q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}
