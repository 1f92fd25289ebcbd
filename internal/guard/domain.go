// Package guard computes the access decision every protected view relies
// on. It reconciles three independently resolved signals, the caller's real
// identity, an optional impersonation overlay and feature flag state, into
// one effective identity and a deterministic Allow/Pending/Deny outcome.
package guard

import (
	"github.com/lodestar-app/lodestar/internal/identity"
)

// Spec declares a protected view's access requirements. Immutable, authored
// by each view and supplied at call time.
type Spec struct {
	// AllowedRoles lists the roles permitted through. Empty means any role.
	AllowedRoles []identity.Role
	// RequiredFlag names a feature flag that must be enabled. Empty skips
	// flag gating entirely.
	RequiredFlag string
	// EnforceOnboarding bounces callers who still owe onboarding.
	EnforceOnboarding bool
}

// Outcome enumerates terminal decision states.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeAllow
	OutcomeDeny
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeDeny:
		return "deny"
	default:
		return "pending"
	}
}

// Decision is the result of evaluating a Spec. RedirectPath is set only on
// deny.
type Decision struct {
	Outcome      Outcome
	RedirectPath string
}

var (
	// Allow admits the caller.
	Allow = Decision{Outcome: OutcomeAllow}
	// Pending means some input has not resolved yet; the caller shows a
	// loading state and retries. Never a false Allow.
	Pending = Decision{Outcome: OutcomePending}
)

// Deny produces a deny decision with its redirect target.
func Deny(path string) Decision {
	return Decision{Outcome: OutcomeDeny, RedirectPath: path}
}

// EffectiveIdentity is the identity a caller is treated as after applying
// any impersonation overlay. Derived on every resolution call, never cached
// across calls that might observe a changed overlay.
type EffectiveIdentity struct {
	SubjectID      string
	Role           identity.Role
	OrganizationID string
	Plan           string
	Impersonating  bool
}
