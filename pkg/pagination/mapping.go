package pagination

import (
	"fmt"
	"regexp"
	"sort"
)

// FieldType declares how filter values for a field are decoded.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeDate    FieldType = "date"
	FieldTypeUUID    FieldType = "uuid"
)

// Field maps one client-visible field name onto a database column.
type Field struct {
	Column     string
	Type       FieldType
	Label      string
	Sortable   bool
	Filterable bool
}

// EntityMapping is the static allowlist for one entity. Column names only
// ever reach SQL through it.
type EntityMapping struct {
	Entity       string
	Table        string
	Fields       map[string]Field
	SearchFields []string
	// DefaultSort is a field name; results are ordered by it ascending
	// when the query carries no sort.
	DefaultSort string
}

var identifierRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate checks the mapping is internally consistent. Mappings are static,
// so a failure is a programming error surfaced at registration.
func (m EntityMapping) Validate() error {
	if m.Entity == "" {
		return fmt.Errorf("entity name is required")
	}
	if !identifierRe.MatchString(m.Table) {
		return fmt.Errorf("%s: invalid table %q", m.Entity, m.Table)
	}
	if _, ok := m.Fields["id"]; !ok {
		return fmt.Errorf("%s: id field is required", m.Entity)
	}
	for name, f := range m.Fields {
		if !identifierRe.MatchString(f.Column) {
			return fmt.Errorf("%s.%s: invalid column %q", m.Entity, name, f.Column)
		}
		switch f.Type {
		case FieldTypeString, FieldTypeNumber, FieldTypeBoolean, FieldTypeDate, FieldTypeUUID:
		default:
			return fmt.Errorf("%s.%s: unknown type %q", m.Entity, name, f.Type)
		}
	}
	for _, name := range m.SearchFields {
		f, ok := m.Fields[name]
		if !ok || f.Type != FieldTypeString {
			return fmt.Errorf("%s: search field %q must be a mapped string field", m.Entity, name)
		}
	}
	if m.DefaultSort != "" {
		if f, ok := m.Fields[m.DefaultSort]; !ok || !f.Sortable {
			return fmt.Errorf("%s: default sort %q must be a sortable field", m.Entity, m.DefaultSort)
		}
	}
	return nil
}

// FieldInfo is the public description of a mapped field.
type FieldInfo struct {
	Name       string     `json:"name"`
	Label      string     `json:"label"`
	Type       FieldType  `json:"type"`
	Sortable   bool       `json:"sortable"`
	Filterable bool       `json:"filterable"`
	Operators  []Operator `json:"operators"`
}

// Describe lists the mapping's fields ordered by name.
func (m EntityMapping) Describe() []FieldInfo {
	out := make([]FieldInfo, 0, len(m.Fields))
	for name, f := range m.Fields {
		info := FieldInfo{
			Name:       name,
			Label:      f.Label,
			Type:       f.Type,
			Sortable:   f.Sortable,
			Filterable: f.Filterable,
		}
		if f.Filterable {
			info.Operators = operatorsFor(f.Type)
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Registry holds every entity mapping exposed through list endpoints.
type Registry struct {
	mappings map[string]EntityMapping
}

func NewRegistry(mappings ...EntityMapping) (*Registry, error) {
	r := &Registry{mappings: make(map[string]EntityMapping, len(mappings))}
	for _, m := range mappings {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.mappings[m.Entity]; dup {
			return nil, fmt.Errorf("duplicate mapping for %q", m.Entity)
		}
		r.mappings[m.Entity] = m
	}
	return r, nil
}

func (r *Registry) Lookup(entity string) (EntityMapping, bool) {
	if r == nil {
		return EntityMapping{}, false
	}
	m, ok := r.mappings[entity]
	return m, ok
}

// Entities returns the registered entity names in lexical order.
func (r *Registry) Entities() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.mappings))
	for name := range r.mappings {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
