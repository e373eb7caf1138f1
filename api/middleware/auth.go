package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/bizhub-backend/api/responses"
	pkgAuth "github.com/angelmondragon/bizhub-backend/pkg/auth"
	"github.com/angelmondragon/bizhub-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/bizhub-backend/pkg/errors"
	"github.com/angelmondragon/bizhub-backend/pkg/logger"
)

// Auth validates a bearer access token and seeds the request context with
// its claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = WithRole(ctx, claims.Role)
			fields := map[string]any{
				"user_id":    claims.UserID.String(),
				"actor_role": claims.Role,
			}
			if claims.BusinessID != nil {
				ctx = WithBusinessID(ctx, claims.BusinessID.String())
				fields["business_id"] = claims.BusinessID.String()
			}
			if logg != nil {
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) < 7 || !strings.EqualFold(raw[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(raw[7:])
	return token, token != ""
}
