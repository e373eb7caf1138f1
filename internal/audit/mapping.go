package audit

import "github.com/angelmondragon/bizhub-backend/pkg/pagination"

var FieldMapping = pagination.EntityMapping{
	Entity: "audit-logs",
	Table:  "audit_logs",
	Fields: map[string]pagination.Field{
		"id":          {Column: "id", Type: pagination.FieldTypeUUID, Label: "ID", Filterable: true},
		"actor_id":    {Column: "actor_id", Type: pagination.FieldTypeUUID, Label: "Actor", Filterable: true},
		"action":      {Column: "action", Type: pagination.FieldTypeString, Label: "Action", Sortable: true, Filterable: true},
		"entity_type": {Column: "entity_type", Type: pagination.FieldTypeString, Label: "Entity type", Sortable: true, Filterable: true},
		"entity_id":   {Column: "entity_id", Type: pagination.FieldTypeString, Label: "Entity", Filterable: true},
		"result":      {Column: "result", Type: pagination.FieldTypeString, Label: "Result", Sortable: true, Filterable: true},
		"created_at":  {Column: "created_at", Type: pagination.FieldTypeDate, Label: "When", Sortable: true, Filterable: true},
	},
	SearchFields: []string{"action", "entity_type"},
	DefaultSort:  "created_at",
}
