package guard

import (
	"time"

	"github.com/lodestar-app/lodestar/internal/identity"
)

// OnboardingGraceWindow is the default account age beyond which a caller is
// assumed pre-existing and exempt from onboarding, even if never explicitly
// marked complete. This is a best-effort UX heuristic, not an access
// guarantee: an account created during a slow sign-up flow can cross the
// boundary without completing onboarding.
const OnboardingGraceWindow = 5 * time.Minute

// RequiresOnboarding reports whether onboarding must be enforced for the
// caller. It reads the real, un-overlaid snapshot only: impersonation never
// triggers or suppresses onboarding for the administrator's own account.
func RequiresOnboarding(snapshot identity.Snapshot, grace time.Duration, now time.Time) bool {
	if snapshot.Status != identity.StatusReady {
		return false
	}
	switch {
	case snapshot.Role.Administrative():
		return false
	case snapshot.OnboardingCompleted:
		return false
	case snapshot.OrganizationID != "":
		return false
	case snapshot.CreatedByAdmin:
		return false
	case now.Sub(snapshot.CreatedAt) > grace:
		return false
	}
	return true
}
