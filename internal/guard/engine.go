package guard

import (
	"context"
	"log/slog"
	"time"

	"github.com/lodestar-app/lodestar/internal/billing"
	"github.com/lodestar-app/lodestar/internal/flags"
	"github.com/lodestar-app/lodestar/internal/identity"
	"github.com/lodestar-app/lodestar/internal/impersonation"
	"github.com/lodestar-app/lodestar/internal/observability"
	"github.com/lodestar-app/lodestar/internal/shared"
)

// FlagViewer supplies a consistent flag snapshot per evaluation.
type FlagViewer interface {
	View() flags.View
}

// OverlayReader exposes the active overlay for a session key.
type OverlayReader interface {
	Current(sessionKey string) (impersonation.Overlay, bool)
}

// Engine computes access decisions for protected views. It holds no mutable
// state of its own; the overlay store is the only shared mutable resource
// and is read once per evaluation.
type Engine struct {
	provider identity.Provider
	overlays OverlayReader
	flags    FlagViewer
	plans    billing.PlanSource
	logger   *slog.Logger
	metrics  *observability.Metrics
	grace    time.Duration
	now      func() time.Time
}

// EngineConfig collects engine dependencies.
type EngineConfig struct {
	Provider identity.Provider
	Overlays OverlayReader
	Flags    FlagViewer
	Plans    billing.PlanSource
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	// OnboardingGrace overrides OnboardingGraceWindow when positive.
	OnboardingGrace time.Duration
}

// NewEngine constructs an Engine.
func NewEngine(cfg EngineConfig) *Engine {
	grace := cfg.OnboardingGrace
	if grace <= 0 {
		grace = OnboardingGraceWindow
	}
	return &Engine{
		provider: cfg.Provider,
		overlays: cfg.Overlays,
		flags:    cfg.Flags,
		plans:    cfg.Plans,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		grace:    grace,
		now:      time.Now,
	}
}

// EvaluateGuard computes the decision for one protected view. Snapshot,
// overlay and flag view are each read exactly once up front, so a
// concurrent overlay or flag change cannot tear a result; the next
// evaluation observes the new state.
func (e *Engine) EvaluateGuard(ctx context.Context, spec Spec) Decision {
	start := time.Now()

	snapshot := e.provider.Current(ctx)
	overlay := e.currentOverlay(ctx)
	view := e.flags.View()

	// Plan is irrelevant to the decision itself; it is resolved lazily by
	// EffectiveIdentity for callers that need it.
	effective := ResolveEffective(snapshot, overlay, "")
	onboardingRequired := RequiresOnboarding(snapshot, e.grace, e.now())

	decision := Decide(spec, snapshot, effective, onboardingRequired, view.State(spec.RequiredFlag))
	e.metrics.ObserveGuardDecision(decision.Outcome.String(), time.Since(start))
	return decision
}

// EffectiveIdentity resolves the caller's full effective identity including
// the real plan fallback. The second return is false until the snapshot is
// Ready.
func (e *Engine) EffectiveIdentity(ctx context.Context) (EffectiveIdentity, bool) {
	snapshot := e.provider.Current(ctx)
	if snapshot.Status != identity.StatusReady {
		return EffectiveIdentity{}, false
	}
	overlay := e.currentOverlay(ctx)

	plan := ""
	if (overlay == nil || overlay.Plan == "") && e.plans != nil {
		resolved, err := e.plans.PlanFor(ctx, snapshot.SubjectID)
		if err != nil {
			if e.logger != nil {
				e.logger.Warn("resolve plan", slog.String("subject", snapshot.SubjectID), slog.Any("error", err))
			}
		} else {
			plan = resolved
		}
	}
	return ResolveEffective(snapshot, overlay, plan), true
}

// EffectiveRole is a convenience accessor over EffectiveIdentity that skips
// the plan lookup.
func (e *Engine) EffectiveRole(ctx context.Context) (identity.Role, bool) {
	snapshot := e.provider.Current(ctx)
	if snapshot.Status != identity.StatusReady {
		return "", false
	}
	return ResolveEffective(snapshot, e.currentOverlay(ctx), "").Role, true
}

// EffectivePlan is a convenience accessor for the overlaid-or-real plan.
func (e *Engine) EffectivePlan(ctx context.Context) (string, bool) {
	effective, ok := e.EffectiveIdentity(ctx)
	if !ok {
		return "", false
	}
	return effective.Plan, true
}

// Snapshot exposes the caller's raw identity snapshot for handlers that
// need to distinguish Loading from Absent.
func (e *Engine) Snapshot(ctx context.Context) identity.Snapshot {
	return e.provider.Current(ctx)
}

func (e *Engine) currentOverlay(ctx context.Context) *impersonation.Overlay {
	sess := shared.SessionFromContext(ctx)
	if sess == nil || e.overlays == nil {
		return nil
	}
	overlay, active := e.overlays.Current(sess.ID)
	if !active {
		return nil
	}
	return &overlay
}
