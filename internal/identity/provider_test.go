package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodestar-app/lodestar/internal/shared"
)

type stubRepository struct {
	mu    sync.Mutex
	users map[string]*User
	err   error
	calls int
}

func (r *stubRepository) FindBySubject(_ context.Context, subjectID string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	user, ok := r.users[subjectID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (r *stubRepository) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func subjectContext(t *testing.T, subject string) context.Context {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(context.Background(), req)
	require.NoError(t, err)
	if subject != "" {
		sess.SetUser(subject)
	}
	return shared.ContextWithSession(context.Background(), sess)
}

func TestCurrentAbsentWithoutSessionOrSubject(t *testing.T) {
	provider := NewSessionProvider(&stubRepository{}, nil, time.Minute)

	assert.Equal(t, StatusAbsent, provider.Current(context.Background()).Status)
	assert.Equal(t, StatusAbsent, provider.Current(subjectContext(t, "")).Status)
}

func TestCurrentLoadsThenReady(t *testing.T) {
	repo := &stubRepository{users: map[string]*User{
		"subj-1": {
			SubjectID:           "subj-1",
			Role:                RoleAdvisor,
			OrganizationID:      "org-1",
			OnboardingCompleted: true,
			CreatedAt:           time.Now().Add(-time.Hour),
		},
	}}
	provider := NewSessionProvider(repo, nil, time.Minute)
	ctx := subjectContext(t, "subj-1")

	// First read kicks off the fetch and reports Loading immediately.
	assert.Equal(t, StatusLoading, provider.Current(ctx).Status)

	require.Eventually(t, func() bool {
		return provider.Current(ctx).Status == StatusReady
	}, 2*time.Second, 5*time.Millisecond)

	snapshot := provider.Current(ctx)
	assert.Equal(t, "subj-1", snapshot.SubjectID)
	assert.Equal(t, RoleAdvisor, snapshot.Role)
	assert.Equal(t, "org-1", snapshot.OrganizationID)
	assert.True(t, snapshot.OnboardingCompleted)
}

func TestCurrentUnknownSubjectBecomesAbsent(t *testing.T) {
	provider := NewSessionProvider(&stubRepository{}, nil, time.Minute)
	ctx := subjectContext(t, "subj-gone")

	assert.Equal(t, StatusLoading, provider.Current(ctx).Status)
	require.Eventually(t, func() bool {
		return provider.Current(ctx).Status == StatusAbsent
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCurrentStaysLoadingWhileDirectoryDown(t *testing.T) {
	repo := &stubRepository{err: errors.New("directory unreachable")}
	provider := NewSessionProvider(repo, nil, time.Minute)
	ctx := subjectContext(t, "subj-1")

	assert.Equal(t, StatusLoading, provider.Current(ctx).Status)
	// The failed fetch must not be cached; subsequent reads keep reporting
	// Loading so guards pend instead of denying.
	require.Eventually(t, func() bool {
		return repo.callCount() >= 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, StatusLoading, provider.Current(ctx).Status)
}

func TestCurrentCachesAcrossReads(t *testing.T) {
	repo := &stubRepository{users: map[string]*User{
		"subj-1": {SubjectID: "subj-1", Role: RoleIndividual, CreatedAt: time.Now()},
	}}
	provider := NewSessionProvider(repo, nil, time.Minute)
	ctx := subjectContext(t, "subj-1")

	provider.Current(ctx)
	require.Eventually(t, func() bool {
		return provider.Current(ctx).Status == StatusReady
	}, 2*time.Second, 5*time.Millisecond)

	fetched := repo.callCount()
	for i := 0; i < 10; i++ {
		provider.Current(ctx)
	}
	assert.Equal(t, fetched, repo.callCount())
}

func TestInvalidateForcesRefetch(t *testing.T) {
	repo := &stubRepository{users: map[string]*User{
		"subj-1": {SubjectID: "subj-1", Role: RoleIndividual, CreatedAt: time.Now()},
	}}
	provider := NewSessionProvider(repo, nil, time.Minute)
	ctx := subjectContext(t, "subj-1")

	provider.Current(ctx)
	require.Eventually(t, func() bool {
		return provider.Current(ctx).Status == StatusReady
	}, 2*time.Second, 5*time.Millisecond)

	provider.Invalidate("subj-1")
	assert.Equal(t, StatusLoading, provider.Current(ctx).Status)
}
