package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/bizhub-backend/api/middleware"
	"github.com/angelmondragon/bizhub-backend/api/responses"
	"github.com/angelmondragon/bizhub-backend/api/validators"
	"github.com/angelmondragon/bizhub-backend/internal/auth"
	"github.com/angelmondragon/bizhub-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/bizhub-backend/pkg/errors"
	"github.com/angelmondragon/bizhub-backend/pkg/logger"
)

func clientMeta(r *http.Request) auth.ClientMeta {
	return auth.ClientMeta{
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func setRefreshCookie(w http.ResponseWriter, cfg config.CookieConfig, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    token,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearRefreshCookie(w http.ResponseWriter, cfg config.CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func refreshCookie(r *http.Request, cfg config.CookieConfig) string {
	cookie, err := r.Cookie(cfg.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// AuthLogin verifies credentials, returns the access token and sets the
// refresh cookie.
func AuthLogin(svc auth.Service, cookies config.CookieConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Login(r.Context(), body, clientMeta(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setRefreshCookie(w, cookies, session.RefreshToken, session.RefreshExpiresAt)
		responses.WriteSuccess(w, session)
	}
}

// AuthRefresh rotates the refresh token carried by the cookie.
func AuthRefresh(svc auth.Service, cookies config.CookieConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := refreshCookie(r, cookies)
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token"))
			return
		}

		session, err := svc.Refresh(r.Context(), raw, clientMeta(r))
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
				clearRefreshCookie(w, cookies)
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setRefreshCookie(w, cookies, session.RefreshToken, session.RefreshExpiresAt)
		responses.WriteSuccess(w, session)
	}
}

// AuthLogout revokes the cookie's refresh token. It succeeds without a cookie.
func AuthLogout(svc auth.Service, cookies config.CookieConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Logout(r.Context(), refreshCookie(r, cookies)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		clearRefreshCookie(w, cookies)
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthLogoutAll revokes every refresh token of the caller.
func AuthLogoutAll(svc auth.Service, cookies config.CookieConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		revoked, err := svc.LogoutAll(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		clearRefreshCookie(w, cookies)
		responses.WriteSuccess(w, map[string]int64{"revoked": revoked})
	}
}

// AuthChangePassword replaces the caller's password. Existing sessions are
// revoked, so the refresh cookie is cleared as well.
func AuthChangePassword(svc auth.Service, cookies config.CookieConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body auth.ChangePasswordRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ChangePassword(r.Context(), userID, body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		clearRefreshCookie(w, cookies)
		responses.WriteSuccess(w, map[string]string{"status": "password_changed"})
	}
}
