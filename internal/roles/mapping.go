package roles

import "github.com/angelmondragon/bizhub-backend/pkg/pagination"

var FieldMapping = pagination.EntityMapping{
	Entity: "roles",
	Table:  "roles",
	Fields: map[string]pagination.Field{
		"id":         {Column: "id", Type: pagination.FieldTypeUUID, Label: "ID", Filterable: true},
		"name":       {Column: "name", Type: pagination.FieldTypeString, Label: "Name", Sortable: true, Filterable: true},
		"is_system":  {Column: "is_system", Type: pagination.FieldTypeBoolean, Label: "System role", Sortable: true, Filterable: true},
		"created_at": {Column: "created_at", Type: pagination.FieldTypeDate, Label: "Created", Sortable: true, Filterable: true},
	},
	SearchFields: []string{"name"},
	DefaultSort:  "created_at",
}
