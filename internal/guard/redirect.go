package guard

import (
	"github.com/lodestar-app/lodestar/internal/identity"
)

// Canonical fallback paths emitted by deny decisions. The caller performs
// the actual navigation; the engine only names the target.
const (
	PathSignIn            = "/sign-in"
	PathDashboard         = "/dashboard"
	PathOnboarding        = "/onboarding"
	PathAdmin             = "/admin"
	PathUniversity        = "/university"
	PathStaff             = "/staff"
	PathUniversityStudent = "/university/student"
)

// RedirectFor maps a role-mismatch deny to the caller's home surface. The
// table is total over the role enum: roles without an explicit entry land
// on the dashboard.
func RedirectFor(effective EffectiveIdentity) string {
	switch effective.Role {
	case identity.RoleSuperAdmin, identity.RoleAdmin:
		return PathAdmin
	case identity.RoleUniversityAdmin:
		return PathUniversity
	case identity.RoleStaff:
		return PathStaff
	case identity.RoleStudent:
		if effective.OrganizationID != "" {
			return PathUniversityStudent
		}
		return PathDashboard
	default:
		return PathDashboard
	}
}
