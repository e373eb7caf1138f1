package controllers

import (
	"net/http"

	"github.com/angelmondragon/bizhub-backend/api/responses"
	"github.com/angelmondragon/bizhub-backend/api/validators"
	"github.com/angelmondragon/bizhub-backend/internal/audit"
	"github.com/angelmondragon/bizhub-backend/pkg/logger"
)

func AuditLogList(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := tenantActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q, err := validators.ParseListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.List(r.Context(), a.BusinessID, q)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}
