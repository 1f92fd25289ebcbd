package guard

import (
	"github.com/lodestar-app/lodestar/internal/identity"
	"github.com/lodestar-app/lodestar/internal/impersonation"
)

// ResolveEffective merges the caller's snapshot with an optional
// impersonation overlay. Overlaid fields fully replace the snapshot's;
// fields the overlay leaves empty fall back to the snapshot. Impersonating
// is true whenever an overlay is supplied, even if no field differs.
//
// Resolution is undefined for snapshots that are not Ready; callers must
// treat those as Pending before reaching this point.
func ResolveEffective(snapshot identity.Snapshot, overlay *impersonation.Overlay, realPlan string) EffectiveIdentity {
	effective := EffectiveIdentity{
		SubjectID:      snapshot.SubjectID,
		Role:           snapshot.Role,
		OrganizationID: snapshot.OrganizationID,
		Plan:           realPlan,
	}
	if overlay == nil {
		return effective
	}

	effective.Impersonating = true
	effective.Role = overlay.Role
	if overlay.OrganizationID != "" {
		effective.OrganizationID = overlay.OrganizationID
	}
	if overlay.Plan != "" {
		effective.Plan = overlay.Plan
	}
	return effective
}
