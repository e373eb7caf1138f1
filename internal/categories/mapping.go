package categories

import "github.com/angelmondragon/bizhub-backend/pkg/pagination"

var FieldMapping = pagination.EntityMapping{
	Entity: "categories",
	Table:  "categories",
	Fields: map[string]pagination.Field{
		"id":          {Column: "id", Type: pagination.FieldTypeUUID, Label: "ID", Filterable: true},
		"name":        {Column: "name", Type: pagination.FieldTypeString, Label: "Name", Sortable: true, Filterable: true},
		"description": {Column: "description", Type: pagination.FieldTypeString, Label: "Description", Filterable: true},
		"created_at":  {Column: "created_at", Type: pagination.FieldTypeDate, Label: "Created", Sortable: true, Filterable: true},
		"updated_at":  {Column: "updated_at", Type: pagination.FieldTypeDate, Label: "Updated", Sortable: true, Filterable: true},
	},
	SearchFields: []string{"name", "description"},
	DefaultSort:  "created_at",
}
