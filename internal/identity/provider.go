package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lodestar-app/lodestar/internal/shared"
)

// Provider exposes the current caller's identity snapshot. Current never
// blocks: while the directory handshake is in flight the snapshot reports
// Loading, and callers treat that as Pending.
type Provider interface {
	Current(ctx context.Context) Snapshot
}

const (
	defaultCacheTTL     = time.Minute
	directoryCallBudget = 5 * time.Second
)

// SessionProvider resolves the session's subject against the user directory.
// Resolved snapshots are cached briefly so guard evaluations stay cheap;
// concurrent fetches for the same subject are collapsed.
type SessionProvider struct {
	repo   Repository
	logger *slog.Logger
	ttl    time.Duration

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedSnapshot
}

type cachedSnapshot struct {
	snap      Snapshot
	expiresAt time.Time
}

// NewSessionProvider constructs a SessionProvider. A non-positive ttl falls
// back to one minute.
func NewSessionProvider(repo Repository, logger *slog.Logger, ttl time.Duration) *SessionProvider {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &SessionProvider{
		repo:   repo,
		logger: logger,
		ttl:    ttl,
		cache:  make(map[string]cachedSnapshot),
	}
}

// Current returns the caller's snapshot without blocking. A session with no
// bound subject is Absent; a subject whose directory fetch has not finished
// yet is Loading.
func (p *SessionProvider) Current(ctx context.Context) Snapshot {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return AbsentSnapshot()
	}
	subject := sess.User()
	if subject == "" {
		return AbsentSnapshot()
	}
	if snap, ok := p.cached(subject); ok {
		return snap
	}
	p.fetch(subject)
	return LoadingSnapshot()
}

// Invalidate drops a cached snapshot, e.g. after sign-out.
func (p *SessionProvider) Invalidate(subjectID string) {
	p.mu.Lock()
	delete(p.cache, subjectID)
	p.mu.Unlock()
}

func (p *SessionProvider) cached(subjectID string) (Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.cache[subjectID]
	if !ok || time.Now().After(entry.expiresAt) {
		return Snapshot{}, false
	}
	return entry.snap, true
}

func (p *SessionProvider) store(subjectID string, snap Snapshot) {
	p.mu.Lock()
	p.cache[subjectID] = cachedSnapshot{snap: snap, expiresAt: time.Now().Add(p.ttl)}
	p.mu.Unlock()
}

func (p *SessionProvider) fetch(subjectID string) {
	go func() {
		_, _, _ = p.group.Do(subjectID, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), directoryCallBudget)
			defer cancel()

			user, err := p.repo.FindBySubject(ctx, subjectID)
			switch {
			case errors.Is(err, shared.ErrNotFound):
				p.store(subjectID, AbsentSnapshot())
			case err != nil:
				// Directory unavailable: leave the subject uncached so the
				// snapshot stays Loading and guards resolve to Pending
				// instead of a false deny.
				if p.logger != nil {
					p.logger.Warn("identity directory fetch failed", slog.String("subject", subjectID), slog.Any("error", err))
				}
			default:
				p.store(subjectID, Snapshot{
					Status:              StatusReady,
					SubjectID:           user.SubjectID,
					Role:                user.Role,
					OrganizationID:      user.OrganizationID,
					OnboardingCompleted: user.OnboardingCompleted,
					CreatedAt:           user.CreatedAt,
					CreatedByAdmin:      user.CreatedByAdmin,
				})
			}
			return nil, nil
		})
	}()
}
