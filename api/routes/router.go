package routes

import (
	"context"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bizhub-backend/api/controllers"
	"github.com/angelmondragon/bizhub-backend/api/middleware"
	"github.com/angelmondragon/bizhub-backend/internal/audit"
	"github.com/angelmondragon/bizhub-backend/internal/auth"
	"github.com/angelmondragon/bizhub-backend/internal/categories"
	product "github.com/angelmondragon/bizhub-backend/internal/products"
	"github.com/angelmondragon/bizhub-backend/internal/roles"
	"github.com/angelmondragon/bizhub-backend/internal/users"
	"github.com/angelmondragon/bizhub-backend/pkg/config"
	"github.com/angelmondragon/bizhub-backend/pkg/enums"
	"github.com/angelmondragon/bizhub-backend/pkg/logger"
	"github.com/angelmondragon/bizhub-backend/pkg/pagination"
)

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Services are the domain services exposed over HTTP.
type Services struct {
	Auth       auth.Service
	Users      users.Service
	Products   product.Service
	Categories categories.Service
	Roles      roles.Service
	Audit      audit.Service
}

// RouterParams carry everything the router wires into handlers.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	RateLimiter rateLimiter
	ScopeGuard  *middleware.ScopeGuard
	Fields      *pagination.Registry
	Readiness   map[string]controllers.Pinger
	Metrics     http.Handler
	Services    Services
	// TrustedProxies are the peers allowed to report the client address.
	TrustedProxies []netip.Prefix
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg, svc := p.Config, p.Logger, p.Services
	guard := p.ScopeGuard
	metricsHandler := p.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RealIP(p.TrustedProxies),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	refreshPolicy := middleware.NewAuthRateLimitPolicy(
		"refresh",
		cfg.AuthRateLimit.RefreshWindow,
		cfg.AuthRateLimit.RefreshIPLimit,
		0,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Readiness))
	})
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, p.RateLimiter, logg)).Post("/login", controllers.AuthLogin(svc.Auth, cfg.Cookie, logg))
			r.With(middleware.AuthRateLimit(refreshPolicy, p.RateLimiter, logg)).Post("/refresh", controllers.AuthRefresh(svc.Auth, cfg.Cookie, logg))
			r.Post("/logout", controllers.AuthLogout(svc.Auth, cfg.Cookie, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, logg), guard.RequireActive())
				r.Post("/logout-all", controllers.AuthLogoutAll(svc.Auth, cfg.Cookie, logg))
				r.Post("/change-password", controllers.AuthChangePassword(svc.Auth, cfg.Cookie, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg), guard.RequireActive())
			r.Get("/users/me", controllers.UserMe(svc.Users, logg))
			r.Get("/meta/fields/{entity}", controllers.MetaFields(p.Fields, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.BusinessContext(logg))

				r.Route("/users", func(r chi.Router) {
					r.With(guard.RequireScope(enums.ScopeUsersRead)).Get("/", controllers.UserList(svc.Users, logg))
					r.With(guard.RequireScope(enums.ScopeUsersWrite)).Post("/", controllers.UserCreate(svc.Users, logg))
					r.With(guard.RequireScope(enums.ScopeUsersWrite)).Post("/{userId}/revoke-sessions", controllers.UserRevokeSessions(svc.Users, logg))
				})

				r.Route("/products", func(r chi.Router) {
					r.With(guard.RequireScope(enums.ScopeInventoryRead)).Get("/", controllers.ProductList(svc.Products, logg))
					r.With(guard.RequireScope(enums.ScopeInventoryWrite)).Post("/", controllers.ProductCreate(svc.Products, logg))
					r.With(guard.RequireScope(enums.ScopeInventoryRead)).Get("/{productId}", controllers.ProductGet(svc.Products, logg))
					r.With(guard.RequireScope(enums.ScopeInventoryWrite)).Patch("/{productId}", controllers.ProductUpdate(svc.Products, logg))
					r.With(guard.RequireScope(enums.ScopeInventoryWrite)).Delete("/{productId}", controllers.ProductDelete(svc.Products, logg))
				})

				r.Route("/categories", func(r chi.Router) {
					r.With(guard.RequireAnyScope(enums.ScopeMenuRead, enums.ScopeInventoryRead)).Get("/", controllers.CategoryList(svc.Categories, logg))
					r.With(guard.RequireScope(enums.ScopeMenuWrite)).Post("/", controllers.CategoryCreate(svc.Categories, logg))
					r.With(guard.RequireAllScopes(enums.ScopeMenuWrite, enums.ScopeInventoryWrite)).Delete("/{categoryId}", controllers.CategoryDelete(svc.Categories, logg))
				})

				r.Route("/roles", func(r chi.Router) {
					r.With(guard.RequireScope(enums.ScopeRolesRead)).Get("/", controllers.RoleList(svc.Roles, logg))
					r.With(guard.RequireScope(enums.ScopeRolesWrite)).Post("/", controllers.RoleCreate(svc.Roles, logg))
					r.With(guard.RequireScope(enums.ScopeRolesWrite)).Post("/{roleId}/assign", controllers.RoleAssign(svc.Roles, logg))
				})

				r.With(guard.RequireScope(enums.ScopeAuditRead)).Get("/audit-logs", controllers.AuditLogList(svc.Audit, logg))
			})
		})
	})

	return r
}
