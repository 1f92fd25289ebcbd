package impersonation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodestar-app/lodestar/internal/identity"
)

func adminSnapshot() identity.Snapshot {
	return identity.Snapshot{
		Status:    identity.StatusReady,
		SubjectID: "admin-1",
		Role:      identity.RoleSuperAdmin,
		CreatedAt: time.Now().Add(-time.Hour),
	}
}

func TestStoreStartRequiresAdministrativeRole(t *testing.T) {
	store := NewStore()

	for _, role := range []identity.Role{
		identity.RoleIndividual,
		identity.RoleStudent,
		identity.RoleAdvisor,
		identity.RoleStaff,
		identity.RoleUniversityAdmin,
	} {
		actor := adminSnapshot()
		actor.Role = role
		_, err := store.Start("sess-1", actor, Target{Role: identity.RoleStudent})
		assert.ErrorIs(t, err, ErrUnauthorized, "role %s must not impersonate", role)
	}

	_, err := store.Start("sess-1", adminSnapshot(), Target{Role: identity.RoleStudent})
	assert.NoError(t, err)
}

func TestStoreStartRequiresReadySnapshot(t *testing.T) {
	store := NewStore()

	loading := identity.LoadingSnapshot()
	_, err := store.Start("sess-1", loading, Target{Role: identity.RoleStudent})
	assert.ErrorIs(t, err, ErrUnauthorized)

	absent := identity.AbsentSnapshot()
	_, err = store.Start("sess-1", absent, Target{Role: identity.RoleStudent})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestStoreSecondStartKeepsFirstOverlay(t *testing.T) {
	store := NewStore()

	first, err := store.Start("sess-1", adminSnapshot(), Target{Role: identity.RoleStudent, OrganizationID: "org-uni"})
	require.NoError(t, err)

	_, err = store.Start("sess-1", adminSnapshot(), Target{Role: identity.RoleAdvisor})
	assert.ErrorIs(t, err, ErrAlreadyActive)

	current, active := store.Current("sess-1")
	require.True(t, active)
	assert.Equal(t, first, current)
}

func TestStoreStopIsIdempotent(t *testing.T) {
	store := NewStore()

	_, err := store.Start("sess-1", adminSnapshot(), Target{Role: identity.RoleStudent})
	require.NoError(t, err)

	store.Stop("sess-1")
	store.Stop("sess-1")

	_, active := store.Current("sess-1")
	assert.False(t, active)

	// The slot is reusable after stop.
	_, err = store.Start("sess-1", adminSnapshot(), Target{Role: identity.RoleAdvisor})
	assert.NoError(t, err)
}

func TestStoreScopesOverlaysBySession(t *testing.T) {
	store := NewStore()

	_, err := store.Start("sess-1", adminSnapshot(), Target{Role: identity.RoleStudent})
	require.NoError(t, err)

	_, active := store.Current("sess-2")
	assert.False(t, active)

	// A different session of the same admin gets its own slot.
	other, err := store.Start("sess-2", adminSnapshot(), Target{Role: identity.RoleAdvisor})
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdvisor, other.Role)
	assert.Equal(t, 2, store.ActiveCount())

	store.EndSession("sess-1")
	_, active = store.Current("sess-1")
	assert.False(t, active)
	assert.Equal(t, 1, store.ActiveCount())
}

func TestStoreOverlayRecordsActorAndStart(t *testing.T) {
	store := NewStore()
	started := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	store.now = func() time.Time { return started }

	overlay, err := store.Start("sess-1", adminSnapshot(), Target{
		Role:           identity.RoleStudent,
		OrganizationID: "org-uni",
		Plan:           "campus",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, overlay.ID)
	assert.Equal(t, "admin-1", overlay.ActingAdminID)
	assert.Equal(t, identity.RoleStudent, overlay.Role)
	assert.Equal(t, "org-uni", overlay.OrganizationID)
	assert.Equal(t, "campus", overlay.Plan)
	assert.Equal(t, started, overlay.StartedAt)
}
