package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/bizhub-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/bizhub-backend/pkg/errors"
)

// actor is the authenticated caller of a tenant route.
type actor struct {
	UserID     uuid.UUID
	BusinessID uuid.UUID
}

func currentUser(r *http.Request) (uuid.UUID, error) {
	userID, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return userID, nil
}

func tenantActor(r *http.Request) (actor, error) {
	userID, err := currentUser(r)
	if err != nil {
		return actor{}, err
	}
	businessID, ok := middleware.BusinessUUIDFromContext(r.Context())
	if !ok {
		return actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "business context required")
	}
	return actor{UserID: userID, BusinessID: businessID}, nil
}
