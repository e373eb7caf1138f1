package users

import "github.com/angelmondragon/bizhub-backend/pkg/pagination"

var FieldMapping = pagination.EntityMapping{
	Entity: "users",
	Table:  "users",
	Fields: map[string]pagination.Field{
		"id":            {Column: "id", Type: pagination.FieldTypeUUID, Label: "ID", Filterable: true},
		"email":         {Column: "email", Type: pagination.FieldTypeString, Label: "Email", Sortable: true, Filterable: true},
		"first_name":    {Column: "first_name", Type: pagination.FieldTypeString, Label: "First name", Sortable: true, Filterable: true},
		"last_name":     {Column: "last_name", Type: pagination.FieldTypeString, Label: "Last name", Sortable: true, Filterable: true},
		"role_id":       {Column: "role_id", Type: pagination.FieldTypeUUID, Label: "Role", Filterable: true},
		"is_active":     {Column: "is_active", Type: pagination.FieldTypeBoolean, Label: "Active", Sortable: true, Filterable: true},
		"last_login_at": {Column: "last_login_at", Type: pagination.FieldTypeDate, Label: "Last login", Sortable: true, Filterable: true},
		"created_at":    {Column: "created_at", Type: pagination.FieldTypeDate, Label: "Created", Sortable: true, Filterable: true},
	},
	SearchFields: []string{"email", "first_name", "last_name"},
	DefaultSort:  "created_at",
}
