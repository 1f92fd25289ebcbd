package guard

import (
	"log/slog"
	"net/http"
)

// Middleware adapts engine decisions to HTTP effects. Decision logic lives
// entirely in Decide; this layer only passes through, redirects, or
// withholds content.
type Middleware struct {
	Engine *Engine
	Logger *slog.Logger
}

// Require guards a route subtree with the given spec. Deny never writes
// protected content, not even transiently; Pending withholds content and
// asks the caller to retry.
func (m Middleware) Require(spec Spec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := m.Engine.EvaluateGuard(r.Context(), spec)
			switch decision.Outcome {
			case OutcomeAllow:
				next.ServeHTTP(w, r)
			case OutcomeDeny:
				if m.Logger != nil {
					m.Logger.Info("guard deny",
						slog.String("path", r.URL.Path),
						slog.String("redirect", decision.RedirectPath))
				}
				http.Redirect(w, r, decision.RedirectPath, http.StatusSeeOther)
			default:
				w.Header().Set("Retry-After", "1")
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			}
		})
	}
}
