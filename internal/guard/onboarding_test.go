package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lodestar-app/lodestar/internal/identity"
)

func TestRequiresOnboarding(t *testing.T) {
	now := time.Now()
	fresh := now.Add(-time.Minute)

	cases := []struct {
		name     string
		snapshot identity.Snapshot
		want     bool
	}{
		{
			name: "fresh individual owes onboarding",
			snapshot: identity.Snapshot{
				Status:    identity.StatusReady,
				Role:      identity.RoleIndividual,
				CreatedAt: fresh,
			},
			want: true,
		},
		{
			name: "completed onboarding is exempt",
			snapshot: identity.Snapshot{
				Status:              identity.StatusReady,
				Role:                identity.RoleIndividual,
				OnboardingCompleted: true,
				CreatedAt:           fresh,
			},
			want: false,
		},
		{
			name: "administrator is exempt",
			snapshot: identity.Snapshot{
				Status:    identity.StatusReady,
				Role:      identity.RoleSuperAdmin,
				CreatedAt: fresh,
			},
			want: false,
		},
		{
			name: "organization member is exempt",
			snapshot: identity.Snapshot{
				Status:         identity.StatusReady,
				Role:           identity.RoleStudent,
				OrganizationID: "org-uni",
				CreatedAt:      fresh,
			},
			want: false,
		},
		{
			name: "admin-created account is exempt",
			snapshot: identity.Snapshot{
				Status:         identity.StatusReady,
				Role:           identity.RoleIndividual,
				CreatedByAdmin: true,
				CreatedAt:      fresh,
			},
			want: false,
		},
		{
			name: "account older than the grace window is exempt even if never completed",
			snapshot: identity.Snapshot{
				Status:    identity.StatusReady,
				Role:      identity.RoleIndividual,
				CreatedAt: now.Add(-10 * time.Minute),
			},
			want: false,
		},
		{
			name: "loading snapshot never owes onboarding",
			snapshot: identity.Snapshot{
				Status:    identity.StatusLoading,
				CreatedAt: fresh,
			},
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RequiresOnboarding(tc.snapshot, OnboardingGraceWindow, now))
		})
	}
}

func TestRequiresOnboardingReadsRealSnapshotOnly(t *testing.T) {
	// An admin impersonating a fresh individual must not inherit the
	// impersonated account's onboarding obligation.
	now := time.Now()
	adminSnapshot := identity.Snapshot{
		Status:    identity.StatusReady,
		Role:      identity.RoleAdmin,
		CreatedAt: now.Add(-time.Minute),
	}
	assert.False(t, RequiresOnboarding(adminSnapshot, OnboardingGraceWindow, now))
}
