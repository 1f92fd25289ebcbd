package guard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lodestar-app/lodestar/internal/identity"
	"github.com/lodestar-app/lodestar/internal/platform/httpx"
)

// Handler exposes the caller's effective identity for client bootstrap.
type Handler struct {
	logger *slog.Logger
	engine *Engine
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, engine *Engine) *Handler {
	return &Handler{logger: logger, engine: engine}
}

// MountRoutes registers identity introspection routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.me)
}

type meResponse struct {
	SubjectID      string `json:"subject_id"`
	Role           string `json:"role"`
	OrganizationID string `json:"organization_id,omitempty"`
	Plan           string `json:"plan,omitempty"`
	Impersonating  bool   `json:"impersonating"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	snapshot := h.engine.Snapshot(r.Context())
	switch snapshot.Status {
	case identity.StatusLoading:
		httpx.Pending(w)
		return
	case identity.StatusAbsent:
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in first")
		return
	}

	effective, ok := h.engine.EffectiveIdentity(r.Context())
	if !ok {
		httpx.Pending(w)
		return
	}
	httpx.JSON(w, http.StatusOK, meResponse{
		SubjectID:      effective.SubjectID,
		Role:           string(effective.Role),
		OrganizationID: effective.OrganizationID,
		Plan:           effective.Plan,
		Impersonating:  effective.Impersonating,
	})
}
