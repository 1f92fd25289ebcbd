package impersonation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/lodestar-app/lodestar/internal/identity"
	"github.com/lodestar-app/lodestar/internal/observability"
	"github.com/lodestar-app/lodestar/jobs"
)

// Service layers audit and metrics over the overlay store. Audit delivery
// is best effort: losing an event never blocks or fails the impersonation
// operation itself.
type Service struct {
	store   *Store
	queue   *asynq.Client
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewService constructs a Service. Queue and metrics may be nil.
func NewService(store *Store, queue *asynq.Client, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, queue: queue, metrics: metrics, logger: logger}
}

// Start installs an overlay for the admin session and records the event.
func (s *Service) Start(ctx context.Context, sessionKey string, actor identity.Snapshot, target Target) (Overlay, error) {
	overlay, err := s.store.Start(sessionKey, actor, target)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) && s.logger != nil {
			s.logger.Warn("impersonation rejected",
				slog.String("subject", actor.SubjectID),
				slog.String("role", string(actor.Role)))
		}
		return Overlay{}, err
	}
	s.metrics.SetActiveImpersonations(s.store.ActiveCount())
	s.audit(ctx, "impersonation.start", overlay, map[string]any{
		"role":            string(overlay.Role),
		"organization_id": overlay.OrganizationID,
		"plan":            overlay.Plan,
	})
	return overlay, nil
}

// Stop removes the session's overlay. Idempotent.
func (s *Service) Stop(ctx context.Context, sessionKey string) {
	overlay, active := s.store.Current(sessionKey)
	s.store.Stop(sessionKey)
	if !active {
		return
	}
	s.metrics.SetActiveImpersonations(s.store.ActiveCount())
	s.audit(ctx, "impersonation.stop", overlay, nil)
}

// Current returns the active overlay for the session, if any.
func (s *Service) Current(sessionKey string) (Overlay, bool) {
	return s.store.Current(sessionKey)
}

// EndSession releases overlay state when the owning session terminates.
func (s *Service) EndSession(sessionKey string) {
	s.store.EndSession(sessionKey)
	s.metrics.SetActiveImpersonations(s.store.ActiveCount())
}

func (s *Service) audit(ctx context.Context, action string, overlay Overlay, meta map[string]any) {
	if s.queue == nil {
		return
	}
	task, err := jobs.NewRecordAuditTask(jobs.AuditPayload{
		EventID:  uuid.NewString(),
		ActorID:  overlay.ActingAdminID,
		Action:   action,
		Entity:   "impersonation_overlay",
		EntityID: overlay.ID,
		Meta:     meta,
		At:       time.Now().UTC(),
	})
	if err == nil {
		_, err = s.queue.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault))
	}
	if err != nil && s.logger != nil {
		s.logger.Warn("enqueue audit event", slog.String("action", action), slog.Any("error", err))
	}
}
