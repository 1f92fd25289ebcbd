package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeRecordAudit persists one audit trail entry.
	TaskTypeRecordAudit = "audit:record"
	// TaskTypeFlagsSync nudges every gateway instance to reload the flag table.
	TaskTypeFlagsSync = "flags:sync"
)

// AuditPayload describes one auditable event. EventID keys idempotent
// inserts so a retried task never duplicates the trail.
type AuditPayload struct {
	EventID  string         `json:"event_id"`
	ActorID  string         `json:"actor_id"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
	At       time.Time      `json:"at"`
}

// NewRecordAuditTask constructs an Asynq task for one audit event.
func NewRecordAuditTask(payload AuditPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRecordAudit, data, asynq.MaxRetry(5)), nil
}

// NewFlagsSyncTask constructs the periodic flag sync task.
func NewFlagsSyncTask() *asynq.Task {
	return asynq.NewTask(TaskTypeFlagsSync, nil)
}
