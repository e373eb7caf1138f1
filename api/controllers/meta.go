package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/bizhub-backend/api/responses"
	pkgerrors "github.com/angelmondragon/bizhub-backend/pkg/errors"
	"github.com/angelmondragon/bizhub-backend/pkg/logger"
	"github.com/angelmondragon/bizhub-backend/pkg/pagination"
)

type entityFields struct {
	Entity       string                 `json:"entity"`
	Fields       []pagination.FieldInfo `json:"fields"`
	SearchFields []string               `json:"search_fields"`
}

// MetaFields describes the filterable and sortable fields of a list entity.
func MetaFields(registry *pagination.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity := chi.URLParam(r, "entity")
		mapping, ok := registry.Lookup(entity)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "unknown entity"))
			return
		}
		search := mapping.SearchFields
		if search == nil {
			search = []string{}
		}
		responses.WriteSuccess(w, entityFields{
			Entity:       mapping.Entity,
			Fields:       mapping.Describe(),
			SearchFields: search,
		})
	}
}
