package identity

import (
	"fmt"
	"strings"
	"time"
)

// Role classifies an account on the platform.
type Role string

const (
	RoleIndividual      Role = "individual"
	RoleStudent         Role = "student"
	RoleAdvisor         Role = "advisor"
	RoleStaff           Role = "staff"
	RoleUniversityAdmin Role = "university_admin"
	RoleAdmin           Role = "admin"
	RoleSuperAdmin      Role = "super_admin"
)

// Roles returns every role known to the platform.
func Roles() []Role {
	return []Role{
		RoleIndividual,
		RoleStudent,
		RoleAdvisor,
		RoleStaff,
		RoleUniversityAdmin,
		RoleAdmin,
		RoleSuperAdmin,
	}
}

// ParseRole validates a raw role string.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.TrimSpace(strings.ToLower(raw)))
	for _, known := range Roles() {
		if role == known {
			return role, nil
		}
	}
	return "", fmt.Errorf("identity: unknown role %q", raw)
}

// Administrative reports whether the role may operate admin tooling,
// including impersonation.
func (r Role) Administrative() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Status describes how far the identity handshake has progressed. Loading
// and Absent are distinct on purpose: Loading holds every decision at
// Pending while Absent is a definitive deny.
type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusAbsent
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusAbsent:
		return "absent"
	default:
		return "loading"
	}
}

// Snapshot is the immutable view of the authenticated caller as supplied by
// the identity provider. The gateway only reads it; a new snapshot is built
// per authentication session and becomes Absent on sign-out.
type Snapshot struct {
	Status              Status
	SubjectID           string
	Role                Role
	OrganizationID      string
	OnboardingCompleted bool
	CreatedAt           time.Time
	CreatedByAdmin      bool
}

// LoadingSnapshot marks a handshake still in flight.
func LoadingSnapshot() Snapshot {
	return Snapshot{Status: StatusLoading}
}

// AbsentSnapshot marks an unauthenticated caller.
func AbsentSnapshot() Snapshot {
	return Snapshot{Status: StatusAbsent}
}
