package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lodestar-app/lodestar/internal/shared"
)

// User is a row from the user directory owned by the identity provider.
type User struct {
	SubjectID           string
	Role                Role
	OrganizationID      string
	OnboardingCompleted bool
	CreatedByAdmin      bool
	CreatedAt           time.Time
}

// Repository reads the user directory.
type Repository interface {
	FindBySubject(ctx context.Context, subjectID string) (*User, error)
}

// PostgresRepository resolves subjects against the users table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgresRepository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// FindBySubject returns the directory entry for a subject, or
// shared.ErrNotFound when the subject is unknown.
func (r *PostgresRepository) FindBySubject(ctx context.Context, subjectID string) (*User, error) {
	const query = `
		SELECT subject_id, role, COALESCE(organization_id, ''), onboarding_completed, created_by_admin, created_at
		FROM users
		WHERE subject_id = $1`

	var user User
	var rawRole string
	err := r.pool.QueryRow(ctx, query, subjectID).Scan(
		&user.SubjectID,
		&rawRole,
		&user.OrganizationID,
		&user.OnboardingCompleted,
		&user.CreatedByAdmin,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("identity: find subject %s: %w", subjectID, err)
	}
	role, err := ParseRole(rawRole)
	if err != nil {
		return nil, fmt.Errorf("identity: subject %s: %w", subjectID, err)
	}
	user.Role = role
	return &user, nil
}
