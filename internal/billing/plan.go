// Package billing reads the caller's real subscription tier from the
// billing service's tables. The gateway only consumes plans; it never
// mutates billing state.
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PlanFree is the tier assumed for subjects with no active subscription.
const PlanFree = "free"

// PlanSource reports the real subscription tier used as the non-overlaid
// plan fallback.
type PlanSource interface {
	PlanFor(ctx context.Context, subjectID string) (string, error)
}

// PostgresPlanSource resolves plans against the subscriptions table.
type PostgresPlanSource struct {
	pool *pgxpool.Pool
}

// NewPlanSource constructs a PostgresPlanSource.
func NewPlanSource(pool *pgxpool.Pool) *PostgresPlanSource {
	return &PostgresPlanSource{pool: pool}
}

// PlanFor returns the subject's active plan, or PlanFree when none exists.
func (s *PostgresPlanSource) PlanFor(ctx context.Context, subjectID string) (string, error) {
	const query = `
		SELECT plan
		FROM subscriptions
		WHERE subject_id = $1 AND status = 'active'
		ORDER BY started_at DESC
		LIMIT 1`

	var plan string
	err := s.pool.QueryRow(ctx, query, subjectID).Scan(&plan)
	if errors.Is(err, pgx.ErrNoRows) {
		return PlanFree, nil
	}
	if err != nil {
		return "", fmt.Errorf("billing: plan for %s: %w", subjectID, err)
	}
	return plan, nil
}

// StaticPlanSource serves fixed plans keyed by subject; used in tests and
// local development.
type StaticPlanSource map[string]string

// PlanFor implements PlanSource.
func (s StaticPlanSource) PlanFor(_ context.Context, subjectID string) (string, error) {
	if plan, ok := s[subjectID]; ok {
		return plan, nil
	}
	return PlanFree, nil
}
