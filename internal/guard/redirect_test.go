package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lodestar-app/lodestar/internal/identity"
)

func TestRedirectForKnownRoles(t *testing.T) {
	cases := []struct {
		role identity.Role
		org  string
		want string
	}{
		{identity.RoleSuperAdmin, "", PathAdmin},
		{identity.RoleAdmin, "", PathAdmin},
		{identity.RoleUniversityAdmin, "", PathUniversity},
		{identity.RoleStaff, "", PathStaff},
		{identity.RoleStudent, "org-uni", PathUniversityStudent},
		{identity.RoleStudent, "", PathDashboard},
		{identity.RoleAdvisor, "", PathDashboard},
		{identity.RoleIndividual, "", PathDashboard},
	}
	for _, tc := range cases {
		got := RedirectFor(EffectiveIdentity{Role: tc.role, OrganizationID: tc.org})
		assert.Equal(t, tc.want, got, "role %s org %q", tc.role, tc.org)
	}
}

func TestRedirectForIsTotal(t *testing.T) {
	// Every enum value and even an unknown role must map somewhere.
	for _, role := range identity.Roles() {
		assert.NotEmpty(t, RedirectFor(EffectiveIdentity{Role: role}))
	}
	assert.Equal(t, PathDashboard, RedirectFor(EffectiveIdentity{Role: identity.Role("mystery")}))
}
