// Package flags resolves named feature flags to a tri-state result. Flags
// are Unknown until the backing source has loaded at least once; treating
// "not loaded yet" and "off" as distinct states keeps guards at Pending
// instead of bouncing callers during startup.
package flags

// State is the tri-state result of evaluating a feature flag.
type State int

const (
	StateUnknown State = iota
	StateEnabled
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateEnabled:
		return "enabled"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// View is a consistent snapshot of the flag table taken once per guard
// evaluation. A flag observed as Enabled through a View can never flip to
// Disabled within the same decision.
type View struct {
	loaded bool
	values map[string]bool
}

// State resolves a named flag. Until the source has loaded, every flag is
// Unknown. After load, a flag missing from the table is Disabled so a
// mistyped or unprovisioned flag denies instead of holding guards at
// Pending forever.
func (v View) State(name string) State {
	if !v.loaded {
		return StateUnknown
	}
	if v.values[name] {
		return StateEnabled
	}
	return StateDisabled
}

// Loaded reports whether the view was taken after at least one successful
// source load.
func (v View) Loaded() bool {
	return v.loaded
}

// ViewOf builds a loaded view from a literal table. Used by fixtures and
// tooling; production views come from Source.View.
func ViewOf(values map[string]bool) View {
	copied := make(map[string]bool, len(values))
	for name, enabled := range values {
		copied[name] = enabled
	}
	return View{loaded: true, values: copied}
}
