package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lodestar-app/lodestar/internal/guard"
	"github.com/lodestar-app/lodestar/internal/identity"
	"github.com/lodestar-app/lodestar/internal/impersonation"
	"github.com/lodestar-app/lodestar/internal/observability"
	"github.com/lodestar-app/lodestar/internal/platform/httpx"
	"github.com/lodestar-app/lodestar/internal/shared"
	"github.com/lodestar-app/lodestar/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger               *slog.Logger
	Config               *Config
	SessionManager       *shared.SessionManager
	IdentityHandler      *identity.Handler
	ImpersonationHandler *impersonation.Handler
	GuardHandler         *guard.Handler
	Guard                guard.Middleware
	JobHandler           *jobs.Handler
	Metrics              *observability.Metrics
}

// NewRouter constructs the chi.Router with gateway defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/session", params.IdentityHandler.MountRoutes)
	// Impersonation routes authorize against the real snapshot inside the
	// service; see impersonation.Handler.
	r.Route("/impersonation", params.ImpersonationHandler.MountRoutes)
	params.GuardHandler.MountRoutes(r)

	// Protected surfaces. The real views live in the frontend; the gateway
	// exposes their access shells so every consumer shares one decision
	// pipeline and one set of redirect targets.
	r.Route(guard.PathDashboard, func(r chi.Router) {
		r.Use(params.Guard.Require(guard.Spec{EnforceOnboarding: true}))
		r.Get("/", surfaceHandler("dashboard"))
	})
	r.Route(guard.PathAdmin, func(r chi.Router) {
		r.Use(params.Guard.Require(guard.Spec{
			AllowedRoles: []identity.Role{identity.RoleAdmin, identity.RoleSuperAdmin},
		}))
		r.Get("/", surfaceHandler("admin"))
	})
	r.Route(guard.PathUniversity, func(r chi.Router) {
		// The student surface carries its own role set, so guards attach per
		// group instead of on the whole subtree.
		r.Group(func(r chi.Router) {
			r.Use(params.Guard.Require(guard.Spec{
				AllowedRoles: []identity.Role{identity.RoleUniversityAdmin, identity.RoleSuperAdmin},
			}))
			r.Get("/", surfaceHandler("university"))
		})
		r.Route("/student", func(r chi.Router) {
			r.Use(params.Guard.Require(guard.Spec{
				AllowedRoles: []identity.Role{identity.RoleStudent, identity.RoleUniversityAdmin, identity.RoleSuperAdmin},
			}))
			r.Get("/", surfaceHandler("university_student"))
		})
	})
	r.Route(guard.PathStaff, func(r chi.Router) {
		r.Use(params.Guard.Require(guard.Spec{
			AllowedRoles: []identity.Role{identity.RoleStaff, identity.RoleAdmin, identity.RoleSuperAdmin},
		}))
		r.Get("/", surfaceHandler("staff"))
	})
	r.Route("/advisor", func(r chi.Router) {
		r.Use(params.Guard.Require(guard.Spec{
			AllowedRoles: []identity.Role{identity.RoleAdvisor, identity.RoleUniversityAdmin, identity.RoleSuperAdmin},
			RequiredFlag: "advisor.dashboard",
		}))
		r.Get("/", surfaceHandler("advisor"))
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

func surfaceHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"surface": name})
	}
}
