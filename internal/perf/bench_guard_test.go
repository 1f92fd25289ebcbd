package perf

import (
	"context"
	"testing"
	"time"

	"github.com/lodestar-app/lodestar/internal/flags"
	"github.com/lodestar-app/lodestar/internal/guard"
	"github.com/lodestar-app/lodestar/internal/identity"
	"github.com/lodestar-app/lodestar/internal/impersonation"
	"github.com/lodestar-app/lodestar/internal/shared"
)

type fixedProvider struct {
	snapshot identity.Snapshot
}

func (p fixedProvider) Current(context.Context) identity.Snapshot {
	return p.snapshot
}

type fixedFlags struct {
	view flags.View
}

func (f fixedFlags) View() flags.View {
	return f.view
}

func benchEngine() *guard.Engine {
	return guard.NewEngine(guard.EngineConfig{
		Provider: fixedProvider{snapshot: identity.Snapshot{
			Status:              identity.StatusReady,
			SubjectID:           "subj-bench",
			Role:                identity.RoleAdvisor,
			OnboardingCompleted: true,
			CreatedAt:           time.Now().Add(-time.Hour),
		}},
		Overlays: impersonation.NewStore(),
		Flags:    fixedFlags{view: flags.ViewOf(map[string]bool{"advisor.dashboard": true})},
	})
}

// Guard decisions sit on every protected request, so they have to stay
// allocation-light and well under a millisecond.
func BenchmarkEvaluateGuard(b *testing.B) {
	engine := benchEngine()
	ctx := shared.ContextWithSession(context.Background(), &shared.Session{ID: "sess-bench"})
	spec := guard.Spec{
		AllowedRoles: []identity.Role{identity.RoleAdvisor, identity.RoleUniversityAdmin, identity.RoleSuperAdmin},
		RequiredFlag: "advisor.dashboard",
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if decision := engine.EvaluateGuard(ctx, spec); decision.Outcome != guard.OutcomeAllow {
			b.Fatalf("unexpected outcome %s", decision.Outcome)
		}
	}
}

func BenchmarkEvaluateGuardParallel(b *testing.B) {
	engine := benchEngine()
	ctx := shared.ContextWithSession(context.Background(), &shared.Session{ID: "sess-bench"})
	spec := guard.Spec{AllowedRoles: []identity.Role{identity.RoleAdvisor}}

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = engine.EvaluateGuard(ctx, spec)
		}
	})
}
