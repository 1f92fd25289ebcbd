package identity

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lodestar-app/lodestar/internal/platform/httpx"
	"github.com/lodestar-app/lodestar/internal/shared"
)

// OverlayCloser releases impersonation state when a session ends.
type OverlayCloser interface {
	EndSession(sessionKey string)
}

// Handler bridges the external identity provider to cookie sessions. The
// provider authenticates the caller and posts the resulting subject here;
// token issuance and validation stay on the provider's side.
type Handler struct {
	logger   *slog.Logger
	provider *SessionProvider
	sessions *shared.SessionManager
	overlays OverlayCloser
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, provider *SessionProvider, sessions *shared.SessionManager, overlays OverlayCloser) *Handler {
	return &Handler{
		logger:   logger,
		provider: provider,
		sessions: sessions,
		overlays: overlays,
		validate: validator.New(),
	}
}

// MountRoutes registers session bridge routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/subject", h.bindSubject)
	r.Delete("/", h.signOut)
}

type bindSubjectRequest struct {
	SubjectID string `json:"subject_id" validate:"required"`
}

func (h *Handler) bindSubject(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Session Unavailable", "no session bound to request")
		return
	}

	var req bindSubjectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "body must be JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	// Rebinding a session to a different subject starts a fresh
	// authentication lifecycle: prior impersonation state must not carry over.
	if previous := sess.User(); previous != "" && previous != req.SubjectID {
		h.overlays.EndSession(sess.ID)
		h.provider.Invalidate(previous)
	}
	sess.SetUser(req.SubjectID)
	h.logger.Info("session subject bound", slog.String("subject", req.SubjectID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if subject := sess.User(); subject != "" {
		h.provider.Invalidate(subject)
	}
	h.overlays.EndSession(sess.ID)
	h.sessions.Destroy(sess)
	w.WriteHeader(http.StatusNoContent)
}
