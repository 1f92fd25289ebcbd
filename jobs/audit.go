package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRecorder writes audit trail entries into audit_logs.
type AuditRecorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAuditRecorder constructs an AuditRecorder.
func NewAuditRecorder(pool *pgxpool.Pool, logger *slog.Logger) *AuditRecorder {
	return &AuditRecorder{pool: pool, logger: logger}
}

// HandleRecordAudit processes TaskTypeRecordAudit tasks. The insert is keyed
// by event ID, so a redelivered task is a no-op.
func (r *AuditRecorder) HandleRecordAudit(ctx context.Context, t *asynq.Task) error {
	var payload AuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.EventID == "" || payload.Action == "" {
		if r.logger != nil {
			r.logger.Warn("dropping malformed audit event", slog.String("action", payload.Action))
		}
		return asynq.SkipRetry
	}

	metaJSON, err := json.Marshal(payload.Meta)
	if err != nil {
		return asynq.SkipRetry
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_logs (event_id, actor_id, action, entity, entity_id, meta, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
		ON CONFLICT (event_id) DO NOTHING`,
		payload.EventID, payload.ActorID, payload.Action, payload.Entity, payload.EntityID, metaJSON, payload.At)
	return err
}
