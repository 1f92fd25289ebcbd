package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecordAuditTask(t *testing.T) {
	task, err := NewRecordAuditTask(AuditPayload{
		EventID: "evt-1",
		ActorID: "admin-1",
		Action:  "impersonation.start",
		At:      time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeRecordAudit, task.Type())
	assert.Contains(t, string(task.Payload()), "evt-1")
}

func TestHandleRecordAuditSkipsMalformedPayloads(t *testing.T) {
	recorder := NewAuditRecorder(nil, nil)

	// Unparseable and incomplete payloads are dropped, never retried. Both
	// return before any database access.
	err := recorder.HandleRecordAudit(context.Background(), asynq.NewTask(TaskTypeRecordAudit, []byte("{not json")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	err = recorder.HandleRecordAudit(context.Background(), asynq.NewTask(TaskTypeRecordAudit, []byte(`{"actor_id":"admin-1"}`)))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleFlagsSyncPublishesUpdate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sub := client.Subscribe(context.Background(), "flags:updates")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	job := NewFlagsSyncJob(client, nil)
	require.NoError(t, job.HandleFlagsSync(context.Background(), NewFlagsSyncTask()))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "flags:updates", msg.Channel)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a flags update message")
	}
}
