package product

import "github.com/angelmondragon/bizhub-backend/pkg/pagination"

// FieldMapping is the allowlist of product fields reachable from list queries.
var FieldMapping = pagination.EntityMapping{
	Entity: "products",
	Table:  "products",
	Fields: map[string]pagination.Field{
		"id":             {Column: "id", Type: pagination.FieldTypeUUID, Label: "ID", Filterable: true},
		"name":           {Column: "name", Type: pagination.FieldTypeString, Label: "Name", Sortable: true, Filterable: true},
		"sku":            {Column: "sku", Type: pagination.FieldTypeString, Label: "SKU", Sortable: true, Filterable: true},
		"description":    {Column: "description", Type: pagination.FieldTypeString, Label: "Description", Filterable: true},
		"category_id":    {Column: "category_id", Type: pagination.FieldTypeUUID, Label: "Category", Filterable: true},
		"price":          {Column: "price", Type: pagination.FieldTypeNumber, Label: "Price", Sortable: true, Filterable: true},
		"stock_quantity": {Column: "stock_quantity", Type: pagination.FieldTypeNumber, Label: "Stock", Sortable: true, Filterable: true},
		"is_active":      {Column: "is_active", Type: pagination.FieldTypeBoolean, Label: "Active", Sortable: true, Filterable: true},
		"created_at":     {Column: "created_at", Type: pagination.FieldTypeDate, Label: "Created", Sortable: true, Filterable: true},
		"updated_at":     {Column: "updated_at", Type: pagination.FieldTypeDate, Label: "Updated", Sortable: true, Filterable: true},
	},
	SearchFields: []string{"name", "sku", "description"},
	DefaultSort:  "created_at",
}
