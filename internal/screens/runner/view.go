package runner

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/phantom040901/devpath-cli/internal/assess"
	"github.com/phantom040901/devpath-cli/internal/ui/components"
	"github.com/phantom040901/devpath-cli/internal/ui/layout"
	"github.com/phantom040901/devpath-cli/internal/ui/theme"
)

const lowTimeThreshold = 60 // seconds left before the timer turns red

func (s *RunnerScreen) View(width, height int) string {
	if !s.started {
		return centered(width, theme.TextDim, "\n\n\n  Preparing assessment...")
	}
	if s.guard.Confirming() {
		return s.renderLeaveConfirm(width)
	}

	switch s.engine.Phase() {
	case assess.PhaseIntro:
		return s.renderIntro(width)
	case assess.PhaseMemorize:
		return s.renderMemorize(width)
	case assess.PhaseInProgress:
		return s.renderQuestion(width)
	case assess.PhaseSubmitting:
		return s.renderSubmitting(width)
	case assess.PhaseRefused:
		return s.renderRefused(width)
	}
	return centered(width, theme.TextDim, "\n\n\n  Working...")
}

func (s *RunnerScreen) renderIntro(width int) string {
	def := s.engine.Definition()

	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(centered(width, theme.Primary, def.Title))
	if def.Description != "" {
		b.WriteString("\n")
		b.WriteString(centered(width, theme.TextDim, def.Description))
	}
	b.WriteString("\n\n")

	passage := lipgloss.NewStyle().
		Width(min(width-8, 72)).
		Foreground(theme.Text).
		Render(def.Passage)
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, passage))
	b.WriteString("\n\n")

	if def.PassageSecs > 0 {
		b.WriteString(centered(width, theme.TextDim,
			fmt.Sprintf("You will have %s to study this before the questions begin.",
				layout.FormatClock(def.PassageSecs))))
		b.WriteString("\n")
	}
	b.WriteString(centered(width, theme.TextDim, "Press Enter to begin."))
	return b.String()
}

func (s *RunnerScreen) renderMemorize(width int) string {
	def := s.engine.Definition()
	remaining := int(s.engine.MemorizeRemaining().Seconds())

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(centered(width, theme.Secondary,
		fmt.Sprintf("Memorize — %s left", layout.FormatClock(remaining))))
	b.WriteString("\n\n")

	passage := lipgloss.NewStyle().
		Width(min(width-8, 72)).
		Foreground(theme.Text).
		Render(def.Passage)
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, passage))
	b.WriteString("\n\n")

	if def.Variant == assess.VariantTechnical {
		b.WriteString(centered(width, theme.TextDim, "Press Enter when you're ready."))
	} else {
		b.WriteString(centered(width, theme.TextDim, "The questions begin when the timer runs out."))
	}
	return b.String()
}

func (s *RunnerScreen) renderQuestion(width int) string {
	st := s.engine.State()
	q := st.Current()
	if q == nil {
		return centered(width, theme.Error, "\n\n  No question under cursor.")
	}

	remaining := int(s.engine.Remaining().Seconds())
	timerStyle := theme.TimerNormal
	if remaining <= lowTimeThreshold {
		timerStyle = theme.TimerLow
	}

	infoLeft := lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render(fmt.Sprintf("  Question %d/%d", st.Index+1, len(st.Questions)))
	infoRight := timerStyle.Render("⏱ "+layout.FormatClock(remaining)) + "  "

	infoLine := infoLeft
	rightPad := width - lipgloss.Width(infoLeft) - lipgloss.Width(infoRight) - 2
	if rightPad > 0 {
		infoLine += strings.Repeat(" ", rightPad) + infoRight
	}

	var b strings.Builder
	b.WriteString(infoLine)
	b.WriteString("\n")

	answered := len(st.Answers)
	bar := components.NewProgressBar(
		fmt.Sprintf("  Answered %d/%d", answered, len(st.Questions)),
		float64(answered)/float64(len(st.Questions)),
		false,
		min(width-4, 60),
	)
	b.WriteString(bar.View())
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-4, 0))))
	b.WriteString("\n\n")

	prompt := lipgloss.NewStyle().
		Width(min(width-8, 72)).
		Foreground(theme.Text).
		Bold(true).
		Render(q.Prompt)
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, prompt))
	b.WriteString("\n\n")

	if q.Image != "" {
		b.WriteString(centered(width, theme.TextDim, "[figure: "+q.Image+"]"))
		b.WriteString("\n\n")
	}

	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, s.options.View()))

	if s.engine.CanSubmit() {
		b.WriteString("\n")
		b.WriteString(centered(width, theme.Success, "Press S to submit."))
	}
	return b.String()
}

func (s *RunnerScreen) renderLeaveConfirm(width int) string {
	var b strings.Builder
	b.WriteString("\n\n\n")
	b.WriteString(centered(width, theme.Text, "Leave this assessment?"))
	b.WriteString("\n")
	b.WriteString(centered(width, theme.TextDim,
		"Leaving submits your answers as they stand and uses up an attempt."))
	b.WriteString("\n\n")
	b.WriteString(centered(width, theme.Warning, "[Y] Submit and leave"))
	b.WriteString("\n")
	b.WriteString(centered(width, theme.Primary, "[N] Stay"))
	return b.String()
}

func (s *RunnerScreen) renderSubmitting(width int) string {
	var b strings.Builder
	b.WriteString("\n\n\n")
	if s.submitErr == "" {
		b.WriteString(centered(width, theme.TextDim, "Submitting..."))
		return b.String()
	}
	b.WriteString(centered(width, theme.Error, "Could not save your result."))
	b.WriteString("\n")
	b.WriteString(centered(width, theme.TextDim, s.submitErr))
	b.WriteString("\n\n")
	b.WriteString(centered(width, theme.Text, "Your answers are safe. Press R to retry."))
	return b.String()
}

func (s *RunnerScreen) renderRefused(width int) string {
	msg := "This assessment can't be started."
	switch {
	case errors.Is(s.engine.Refusal(), assess.ErrAttemptLimitReached):
		msg = fmt.Sprintf("You have used all %d attempts for this assessment.", assess.MaxAttempts)
	case errors.Is(s.engine.Refusal(), assess.ErrDefinitionNotFound):
		msg = "This assessment could not be loaded."
	case errors.Is(s.engine.Refusal(), assess.ErrAttemptsUnavailable):
		msg = "Your attempt records could not be read. Please try again."
	case errors.Is(s.engine.Refusal(), assess.ErrEmptyQuestionPool):
		msg = "This assessment has no questions."
	}

	var b strings.Builder
	b.WriteString("\n\n\n")
	b.WriteString(centered(width, theme.Warning, msg))
	b.WriteString("\n\n")
	b.WriteString(centered(width, theme.TextDim, "Press any key to go back."))
	return b.String()
}

func centered(width int, fg color.Color, text string) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(fg).
		Render(text)
}
