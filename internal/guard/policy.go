package guard

import (
	"github.com/lodestar-app/lodestar/internal/flags"
	"github.com/lodestar-app/lodestar/internal/identity"
)

// Decide runs the access state machine for one evaluation. All inputs were
// read as a single logical snapshot by the caller; nothing is re-read here.
//
// Check order is significant and must be preserved: unresolved inputs win
// over everything, then unauthenticated over role mismatch, role mismatch
// over flag gating, flag gating over onboarding. Each earlier check owns
// the more actionable redirect, so a sign-in bounce always beats a generic
// dashboard bounce.
func Decide(spec Spec, snapshot identity.Snapshot, effective EffectiveIdentity, onboardingRequired bool, flag flags.State) Decision {
	if snapshot.Status == identity.StatusLoading {
		return Pending
	}
	if spec.RequiredFlag != "" && flag == flags.StateUnknown {
		return Pending
	}
	if snapshot.Status == identity.StatusAbsent {
		return Deny(PathSignIn)
	}
	if !roleAllowed(spec.AllowedRoles, effective.Role) {
		return Deny(RedirectFor(effective))
	}
	if spec.RequiredFlag != "" && flag == flags.StateDisabled {
		return Deny(PathDashboard)
	}
	if spec.EnforceOnboarding && onboardingRequired {
		return Deny(PathOnboarding)
	}
	return Allow
}

func roleAllowed(allowed []identity.Role, role identity.Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}
