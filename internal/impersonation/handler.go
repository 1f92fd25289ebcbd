package impersonation

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lodestar-app/lodestar/internal/identity"
	"github.com/lodestar-app/lodestar/internal/platform/httpx"
	"github.com/lodestar-app/lodestar/internal/shared"
)

// Handler wires HTTP endpoints for the impersonation control surface. Role
// authorization happens in the store against the caller's real snapshot, so
// these routes are deliberately not behind a guard: an admin impersonating
// a student must still be able to stop.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	provider identity.Provider
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, provider identity.Provider) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		provider: provider,
		validate: validator.New(),
	}
}

// MountRoutes registers impersonation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.start)
	r.Delete("/", h.stop)
	r.Get("/", h.current)
}

type startRequest struct {
	Role           string `json:"role" validate:"required"`
	OrganizationID string `json:"organization_id"`
	Plan           string `json:"plan"`
}

type overlayResponse struct {
	ID             string    `json:"id"`
	ActingAdminID  string    `json:"acting_admin_id"`
	Role           string    `json:"role"`
	OrganizationID string    `json:"organization_id,omitempty"`
	Plan           string    `json:"plan,omitempty"`
	StartedAt      time.Time `json:"started_at"`
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no session")
		return
	}

	var req startRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "body must be JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := identity.ParseRole(req.Role)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Role", err.Error())
		return
	}

	snapshot := h.provider.Current(r.Context())
	if snapshot.Status == identity.StatusLoading {
		httpx.Pending(w)
		return
	}

	overlay, err := h.service.Start(r.Context(), sess.ID, snapshot, Target{
		Role:           role,
		OrganizationID: req.OrganizationID,
		Plan:           req.Plan,
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrUnauthorized):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "impersonation requires an administrator role")
		return
	case errors.Is(err, ErrAlreadyActive):
		httpx.Problem(w, http.StatusConflict, "Already Active", "stop the current impersonation first")
		return
	default:
		h.logger.Error("start impersonation", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	httpx.JSON(w, http.StatusCreated, toResponse(overlay))
}

func (h *Handler) stop(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no session")
		return
	}
	h.service.Stop(r.Context(), sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no session")
		return
	}
	overlay, active := h.service.Current(sess.ID)
	if !active {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no active impersonation")
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(overlay))
}

func toResponse(overlay Overlay) overlayResponse {
	return overlayResponse{
		ID:             overlay.ID,
		ActingAdminID:  overlay.ActingAdminID,
		Role:           string(overlay.Role),
		OrganizationID: overlay.OrganizationID,
		Plan:           overlay.Plan,
		StartedAt:      overlay.StartedAt,
	}
}
