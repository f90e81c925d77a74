package runner

import (
	"context"
	"errors"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/phantom040901/devpath-cli/internal/assess"
	"github.com/phantom040901/devpath-cli/internal/router"
	"github.com/phantom040901/devpath-cli/internal/screen"
	"github.com/phantom040901/devpath-cli/internal/screens/result"
	"github.com/phantom040901/devpath-cli/internal/store"
	"github.com/phantom040901/devpath-cli/internal/ui/components"
	"github.com/phantom040901/devpath-cli/internal/ui/layout"
)

// RunnerScreen drives one assessment session. All session semantics live in
// the engine; this screen translates key presses and the 1-second tick into
// engine calls and renders whatever phase the engine reports.
type RunnerScreen struct {
	engine *assess.Engine
	guard  *assess.NavigationGuard

	options   components.OptionList
	started   bool
	submitErr string
}

var _ screen.Screen = (*RunnerScreen)(nil)
var _ screen.KeyHintProvider = (*RunnerScreen)(nil)
var _ screen.BackInterceptor = (*RunnerScreen)(nil)

// New creates a runner for one (collection, subject) scope.
func New(st *store.Store, userID, collection, subjectID string) *RunnerScreen {
	return NewWithPorts(st.Definitions(), st.Attempts(), st.SessionCache(), userID, collection, subjectID)
}

// NewWithPorts wires a runner over explicit engine ports. Tests use this to
// drive the screen against in-memory fakes.
func NewWithPorts(defs assess.DefinitionStore, attempts assess.AttemptStore, cache assess.KV, userID, collection, subjectID string) *RunnerScreen {
	eng := assess.NewEngine(defs, attempts, cache, assess.Config{
		Collection: collection,
		SubjectID:  subjectID,
		UserID:     userID,
	})
	return &RunnerScreen{
		engine: eng,
		guard:  assess.NewNavigationGuard(eng),
	}
}

func (s *RunnerScreen) Init() tea.Cmd {
	eng := s.engine
	return func() tea.Msg {
		_, err := eng.Start(context.Background())
		return sessionStartedMsg{Err: err}
	}
}

func (s *RunnerScreen) Title() string {
	if def := s.engine.Definition(); def != nil {
		return def.Title
	}
	return "Assessment"
}

// InterceptBack routes the back key through the navigation guard. A live
// session consumes the key and raises the stay-or-leave modal; a settled
// one lets the app pop the screen.
func (s *RunnerScreen) InterceptBack() bool {
	return s.guard.Intercept()
}

func (s *RunnerScreen) KeyHints() []layout.KeyHint {
	if s.guard.Confirming() {
		return []layout.KeyHint{
			{Key: "Y", Description: "Submit and leave"},
			{Key: "N", Description: "Stay"},
		}
	}
	switch s.engine.Phase() {
	case assess.PhaseIntro:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Begin"},
			{Key: "Esc", Description: "Leave"},
		}
	case assess.PhaseMemorize:
		hints := []layout.KeyHint{
			{Key: "Esc", Description: "Leave"},
		}
		if def := s.engine.Definition(); def != nil && def.Variant == assess.VariantTechnical {
			hints = append([]layout.KeyHint{{Key: "Enter", Description: "I'm ready"}}, hints...)
		}
		return hints
	case assess.PhaseInProgress:
		hints := []layout.KeyHint{
			{Key: "↑↓", Description: "Choose"},
			{Key: "←→", Description: "Question"},
		}
		if s.engine.CanSubmit() {
			hints = append(hints, layout.KeyHint{Key: "S", Description: "Submit"})
		}
		return append(hints, layout.KeyHint{Key: "Esc", Description: "Leave"})
	case assess.PhaseSubmitting:
		return []layout.KeyHint{
			{Key: "R", Description: "Retry"},
			{Key: "Esc", Description: "Back"},
		}
	}
	return []layout.KeyHint{
		{Key: "Esc", Description: "Back"},
	}
}

func (s *RunnerScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionStartedMsg:
		return s.handleStarted(msg)

	case timerTickMsg:
		return s.handleTick()

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *RunnerScreen) handleStarted(msg sessionStartedMsg) (screen.Screen, tea.Cmd) {
	s.started = true
	if msg.Err != nil {
		// The refused view renders from the engine's refusal phase.
		return s, nil
	}
	s.rebuildOptions()
	return s, tickCmd()
}

func (s *RunnerScreen) handleTick() (screen.Screen, tea.Cmd) {
	ev := s.engine.Tick(context.Background())

	if ev.MemorizeDone {
		s.rebuildOptions()
	}
	if ev.Expired {
		if ev.Err != nil {
			s.submitErr = ev.Err.Error()
		} else {
			return s, s.settled(ev.Result)
		}
	}
	if s.engine.Phase().Terminal() {
		return s, nil
	}
	return s, tickCmd()
}

func (s *RunnerScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.guard.Confirming() {
		switch key {
		case "y", "Y":
			res, err := s.guard.ConfirmExit(context.Background())
			if err != nil {
				return s, s.settleError(err)
			}
			return s, s.settled(res)
		case "n", "N", "esc":
			s.guard.Stay()
		}
		return s, nil
	}

	switch s.engine.Phase() {
	case assess.PhaseIntro:
		if key == "enter" {
			s.engine.Acknowledge()
			s.rebuildOptions()
		}

	case assess.PhaseMemorize:
		if key == "enter" {
			s.engine.Ready()
			s.rebuildOptions()
		}

	case assess.PhaseInProgress:
		return s.handleQuestionKey(msg)

	case assess.PhaseSubmitting:
		if key == "r" || key == "R" {
			res, err := s.engine.RetrySubmit(context.Background())
			if err != nil {
				return s, s.settleError(err)
			}
			if res != nil {
				return s, s.settled(res)
			}
		}

	case assess.PhaseRefused:
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}

	return s, nil
}

func (s *RunnerScreen) handleQuestionKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "left", "h":
		if s.engine.Prev() {
			s.rebuildOptions()
		}
		return s, nil
	case "right", "l":
		if s.engine.Next() {
			s.rebuildOptions()
		}
		return s, nil
	case "s", "S":
		res, err := s.engine.Submit(context.Background())
		if err != nil {
			if errors.Is(err, assess.ErrSubmitNotReady) {
				return s, nil
			}
			return s, s.settleError(err)
		}
		if res != nil {
			return s, s.settled(res)
		}
		return s, nil
	}

	var cmd tea.Cmd
	s.options, cmd = s.options.Update(msg)
	return s, cmd
}

// rebuildOptions resyncs the option list with the question under the
// engine's cursor.
func (s *RunnerScreen) rebuildOptions() {
	st := s.engine.State()
	if st == nil {
		return
	}
	q := st.Current()
	if q == nil {
		return
	}
	items := make([]components.OptionItem, len(q.Options))
	for i, o := range q.Options {
		items[i] = components.OptionItem{ID: o.ID, Label: o.Label}
	}
	eng := s.engine
	s.options = components.NewOptionList(items, st.Answers[q.ID], func(optionID string) tea.Cmd {
		eng.Select(optionID)
		return nil
	})
}

// settled swaps this screen for the result view. Replace, not push, so
// backing out of the result lands on the catalog rather than a finished
// session.
func (s *RunnerScreen) settled(res *assess.Result) tea.Cmd {
	def := s.engine.Definition()
	attempt := s.engine.AttemptNumber()
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: result.New(def, res, attempt)}
	}
}

// settleError records a submission failure. Retryable write failures keep
// the session in the submitting phase, where the live tick loop stays armed
// for the retry; the refused outcome renders its own view from the engine
// phase. No new tick command: the heartbeat from handleTick is still
// running.
func (s *RunnerScreen) settleError(err error) tea.Cmd {
	s.submitErr = err.Error()
	return nil
}

// tickCmd returns a 1-second tick command.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return timerTickMsg(t)
	})
}
