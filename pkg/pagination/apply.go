package pagination

import (
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/bizhub-backend/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const likeEscape = `\`

// plan is the validated, SQL-ready form of a Query.
type plan struct {
	conds   []clause.Expression
	order   []clause.OrderByColumn
	selects []string
}

// Validate checks the query against the mapping without building SQL.
func Validate(mapping EntityMapping, q Query) error {
	_, err := compile(mapping, q.Normalized())
	return err
}

// Find counts and loads one page of T. db must already target T's table.
func Find[T any](db *gorm.DB, mapping EntityMapping, q Query) (*Result[T], error) {
	q = q.Normalized()
	p, err := compile(mapping, q)
	if err != nil {
		return nil, err
	}

	filtered := applyConds(db, p)

	var total int64
	if err := filtered.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count %s: %w", mapping.Table, err)
	}

	items := make([]T, 0, q.Limit)
	if total > int64(q.Offset()) {
		page := filtered.Session(&gorm.Session{})
		if len(p.selects) > 0 {
			page = page.Select(p.selects)
		}
		for _, o := range p.order {
			page = page.Order(o)
		}
		if err := page.Limit(q.Limit).Offset(q.Offset()).Find(&items).Error; err != nil {
			return nil, fmt.Errorf("list %s: %w", mapping.Table, err)
		}
	}

	return &Result[T]{Items: items, Metadata: NewMetadata(total, q.Page, q.Limit)}, nil
}

func applyConds(db *gorm.DB, p *plan) *gorm.DB {
	for _, c := range p.conds {
		db = db.Where(c)
	}
	return db
}

func compile(mapping EntityMapping, q Query) (*plan, error) {
	details := map[string]string{}
	p := &plan{}

	if q.Page < 1 {
		details["page"] = "must be at least 1"
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		details["limit"] = fmt.Sprintf("must be between 1 and %d", MaxLimit)
	}
	if len(q.Filters) > MaxFilters {
		details["filters"] = fmt.Sprintf("at most %d filters allowed", MaxFilters)
	}

	for i, f := range q.Filters {
		key := fmt.Sprintf("filters[%d]", i)
		cond, err := compileFilter(mapping, f)
		if err != nil {
			details[key] = err.Error()
			continue
		}
		p.conds = append(p.conds, cond)
	}

	if q.Search != "" && len(mapping.SearchFields) > 0 {
		p.conds = append(p.conds, searchExpr(mapping, q.Search))
	}

	p.order = compileOrder(mapping, q.Sort, details)
	p.selects = compileColumns(mapping, q.Columns, details)

	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid list query").WithDetails(details)
	}
	return p, nil
}

func compileFilter(mapping EntityMapping, f Filter) (clause.Expression, error) {
	field, ok := mapping.Fields[f.FieldName]
	if !ok {
		return nil, fmt.Errorf("unknown field %q", f.FieldName)
	}
	if !field.Filterable {
		return nil, fmt.Errorf("field %q is not filterable", f.FieldName)
	}
	if !operatorAllowed(field.Type, f.Operator) {
		return nil, fmt.Errorf("operator %q not supported for %s field %q", f.Operator, field.Type, f.FieldName)
	}

	col := clause.Column{Table: mapping.Table, Name: field.Column}

	switch f.Operator {
	case OpExists:
		present := true
		if f.Value != nil {
			v, err := DecodeValue(FieldTypeBoolean, f.Value)
			if err != nil {
				return nil, err
			}
			present = v.Bool
		}
		if present {
			return clause.Not(clause.Eq{Column: col, Value: nil}), nil
		}
		return clause.Eq{Column: col, Value: nil}, nil

	case OpIn, OpNin:
		values, err := decodeList(field.Type, f.Value, 1, MaxListValues)
		if err != nil {
			return nil, err
		}
		args := make([]any, len(values))
		for i, v := range values {
			args[i] = v.SQLArg()
		}
		in := clause.IN{Column: col, Values: args}
		if f.Operator == OpNin {
			return clause.Not(in), nil
		}
		return in, nil

	case OpBetween:
		values, err := decodeList(field.Type, f.Value, 2, 2)
		if err != nil {
			return nil, err
		}
		return clause.Expr{
			SQL:  "? BETWEEN ? AND ?",
			Vars: []any{col, values[0].SQLArg(), values[1].SQLArg()},
		}, nil

	case OpILike:
		v, err := DecodeValue(field.Type, f.Value)
		if err != nil {
			return nil, err
		}
		return likeExpr(col, v.String), nil
	}

	v, err := DecodeValue(field.Type, f.Value)
	if err != nil {
		return nil, err
	}
	arg := v.SQLArg()
	switch f.Operator {
	case OpEq:
		return clause.Eq{Column: col, Value: arg}, nil
	case OpNe:
		return clause.Neq{Column: col, Value: arg}, nil
	case OpLt:
		return clause.Lt{Column: col, Value: arg}, nil
	case OpLte:
		return clause.Lte{Column: col, Value: arg}, nil
	case OpGt:
		return clause.Gt{Column: col, Value: arg}, nil
	case OpGte:
		return clause.Gte{Column: col, Value: arg}, nil
	}
	return nil, fmt.Errorf("unsupported operator %q", f.Operator)
}

func decodeList(t FieldType, raw any, min, max int) ([]Value, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array, got %s", describe(raw))
	}
	if len(list) < min || len(list) > max {
		if min == max {
			return nil, fmt.Errorf("expected exactly %d values", min)
		}
		return nil, fmt.Errorf("expected between %d and %d values", min, max)
	}
	out := make([]Value, 0, len(list))
	for _, item := range list {
		v, err := DecodeValue(t, item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// likeExpr is a case insensitive substring match. LOWER + LIKE keeps it
// portable across Postgres and sqlite.
func likeExpr(col clause.Column, term string) clause.Expression {
	return clause.Expr{
		SQL:  "LOWER(?) LIKE ? ESCAPE '" + likeEscape + "'",
		Vars: []any{col, "%" + escapeLike(strings.ToLower(term)) + "%"},
	}
}

func searchExpr(mapping EntityMapping, term string) clause.Expression {
	parts := make([]string, 0, len(mapping.SearchFields))
	vars := make([]any, 0, 2*len(mapping.SearchFields))
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	for _, name := range mapping.SearchFields {
		col := clause.Column{Table: mapping.Table, Name: mapping.Fields[name].Column}
		parts = append(parts, "LOWER(?) LIKE ? ESCAPE '"+likeEscape+"'")
		vars = append(vars, col, pattern)
	}
	return clause.Expr{SQL: "(" + strings.Join(parts, " OR ") + ")", Vars: vars}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(s)
}

func compileOrder(mapping EntityMapping, s *Sort, details map[string]string) []clause.OrderByColumn {
	idCol := clause.Column{Table: mapping.Table, Name: mapping.Fields["id"].Column}

	if s == nil {
		if mapping.DefaultSort == "" {
			return []clause.OrderByColumn{{Column: idCol}}
		}
		col := clause.Column{Table: mapping.Table, Name: mapping.Fields[mapping.DefaultSort].Column}
		return []clause.OrderByColumn{{Column: col}, {Column: idCol}}
	}

	field, ok := mapping.Fields[s.Field]
	if !ok {
		details["sort"] = fmt.Sprintf("unknown field %q", s.Field)
		return nil
	}
	if !field.Sortable {
		details["sort"] = fmt.Sprintf("field %q is not sortable", s.Field)
		return nil
	}
	desc := s.Direction == Desc
	col := clause.Column{Table: mapping.Table, Name: field.Column}
	if field.Column == idCol.Name {
		return []clause.OrderByColumn{{Column: col, Desc: desc}}
	}
	// id breaks ties so pages stay stable.
	return []clause.OrderByColumn{{Column: col, Desc: desc}, {Column: idCol, Desc: desc}}
}

func compileColumns(mapping EntityMapping, names []string, details map[string]string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var unknown []string
	out := []string{mapping.Table + "." + mapping.Fields["id"].Column}
	seen["id"] = true
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		field, ok := mapping.Fields[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		seen[name] = true
		out = append(out, mapping.Table+"."+field.Column)
	}
	if len(unknown) > 0 {
		details["columns"] = fmt.Sprintf("unknown fields: %s", strings.Join(unknown, ", "))
		return nil
	}
	return out
}
