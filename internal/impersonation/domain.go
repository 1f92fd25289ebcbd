// Package impersonation holds the admin-initiated identity overlay: a
// temporary substitution of role, organization and plan used for support
// and testing. Overlays live in process memory only and never survive the
// owning session.
package impersonation

import (
	"errors"
	"time"

	"github.com/lodestar-app/lodestar/internal/identity"
)

var (
	// ErrUnauthorized rejects a start attempt from a caller whose real role
	// is not administrative. The check runs against the un-overlaid
	// snapshot, so chained impersonation cannot escalate.
	ErrUnauthorized = errors.New("impersonation: caller is not an administrator")

	// ErrAlreadyActive rejects nested impersonation. The existing overlay is
	// left untouched; stop it first.
	ErrAlreadyActive = errors.New("impersonation: overlay already active for this session")
)

// Target describes the identity an administrator wants to act as. An empty
// OrganizationID or Plan falls back to the administrator's own value.
type Target struct {
	Role           identity.Role
	OrganizationID string
	Plan           string
}

// Overlay is one active impersonation, scoped to a single admin session.
type Overlay struct {
	ID             string
	ActingAdminID  string
	Role           identity.Role
	OrganizationID string
	Plan           string
	StartedAt      time.Time
}
