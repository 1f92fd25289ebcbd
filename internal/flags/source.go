package flags

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	valuesKey      = "flags:values"
	updatesChannel = "flags:updates"

	defaultPollInterval = time.Minute
)

// Source keeps a process-local copy of the flag table stored in Redis. It
// refreshes on pub/sub notification with a polling fallback, so a dead
// subscription degrades to staleness rather than permanent Unknown.
type Source struct {
	client *redis.Client
	logger *slog.Logger
	poll   time.Duration

	mu     sync.RWMutex
	loaded bool
	values map[string]bool
}

// NewSource constructs a Source. A non-positive poll interval falls back to
// one minute.
func NewSource(client *redis.Client, logger *slog.Logger, poll time.Duration) *Source {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	return &Source{
		client: client,
		logger: logger,
		poll:   poll,
	}
}

// Run loads the table and keeps it fresh until ctx is cancelled.
func (s *Source) Run(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.warn("initial flag load failed", err)
	}

	sub := s.client.Subscribe(ctx, updatesChannel)
	defer func() { _ = sub.Close() }()
	updates := sub.Channel()

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-updates:
			if !ok {
				// Subscription lost; the poll ticker keeps us going.
				updates = nil
				continue
			}
			if err := s.Refresh(ctx); err != nil {
				s.warn("flag refresh after update failed", err)
			}
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.warn("flag poll refresh failed", err)
			}
		}
	}
}

// Refresh reloads the flag table from Redis.
func (s *Source) Refresh(ctx context.Context) error {
	raw, err := s.client.HGetAll(ctx, valuesKey).Result()
	if err != nil {
		return fmt.Errorf("flags: load %s: %w", valuesKey, err)
	}
	values := make(map[string]bool, len(raw))
	for name, v := range raw {
		values[name] = truthy(v)
	}

	s.mu.Lock()
	s.values = values
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// View returns the current snapshot. Guard evaluations hold one View for
// the whole decision so a concurrent refresh cannot tear the result.
func (s *Source) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return View{}
	}
	values := make(map[string]bool, len(s.values))
	for name, v := range s.values {
		values[name] = v
	}
	return View{loaded: true, values: values}
}

func (s *Source) warn(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, slog.Any("error", err))
	}
}

// Set writes one flag value and notifies every running gateway instance.
// Used by operational tooling and tests.
func Set(ctx context.Context, client *redis.Client, name string, enabled bool) error {
	value := "0"
	if enabled {
		value = "1"
	}
	if err := client.HSet(ctx, valuesKey, name, value).Err(); err != nil {
		return fmt.Errorf("flags: set %s: %w", name, err)
	}
	return Publish(ctx, client)
}

// Publish marks the flag table dirty for all subscribers.
func Publish(ctx context.Context, client *redis.Client) error {
	if err := client.Publish(ctx, updatesChannel, "sync").Err(); err != nil {
		return fmt.Errorf("flags: publish update: %w", err)
	}
	return nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "enabled":
		return true
	}
	return false
}
