package assess

import (
	"context"
)

// NavigationGuard intercepts exit attempts while a session can still lose
// work. An intercepted exit surfaces a modal with exactly two outcomes:
// stay (no state change) or confirm, which routes through a forced
// submission before the exit proceeds. There is no abandon-without-penalty
// path; that is a product rule, not an oversight.
//
// The guard is inert once the session reaches a terminal phase, and it
// holds no resources of its own, so screen teardown cannot leak it.
type NavigationGuard struct {
	engine     *Engine
	confirming bool
}

// NewNavigationGuard wraps the given engine.
func NewNavigationGuard(engine *Engine) *NavigationGuard {
	return &NavigationGuard{engine: engine}
}

// active reports whether the session is in a phase worth guarding.
func (g *NavigationGuard) active() bool {
	switch g.engine.Phase() {
	case PhaseIntro, PhaseMemorize, PhaseInProgress:
		return true
	}
	return false
}

// Intercept is called on an exit attempt. It returns true when the exit
// must be confirmed first (and arms the modal); false lets the exit
// proceed untouched.
func (g *NavigationGuard) Intercept() bool {
	if !g.active() {
		return false
	}
	g.confirming = true
	return true
}

// Confirming reports whether the stay-or-exit modal is up.
func (g *NavigationGuard) Confirming() bool {
	return g.confirming && g.active()
}

// Stay dismisses the modal with no state change.
func (g *NavigationGuard) Stay() {
	g.confirming = false
}

// ConfirmExit converts the attempted exit into a forced submission. The
// partial answer map is scored against the full question set; the exit may
// proceed once this returns.
func (g *NavigationGuard) ConfirmExit(ctx context.Context) (*Result, error) {
	g.confirming = false
	if !g.active() {
		return g.engine.Result(), nil
	}
	return g.engine.ForceSubmit(ctx, TriggerExit)
}
