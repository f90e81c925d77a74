package result

import (
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/phantom040901/devpath-cli/internal/assess"
	"github.com/phantom040901/devpath-cli/internal/router"
	"github.com/phantom040901/devpath-cli/internal/screen"
	"github.com/phantom040901/devpath-cli/internal/ui/components"
	"github.com/phantom040901/devpath-cli/internal/ui/layout"
	"github.com/phantom040901/devpath-cli/internal/ui/theme"
)

// ResultScreen shows the graded outcome of a submitted session.
type ResultScreen struct {
	def     *assess.TestDefinition
	res     *assess.Result
	attempt int
}

var _ screen.Screen = (*ResultScreen)(nil)
var _ screen.KeyHintProvider = (*ResultScreen)(nil)

// New creates a result screen.
func New(def *assess.TestDefinition, res *assess.Result, attempt int) *ResultScreen {
	return &ResultScreen{def: def, res: res, attempt: attempt}
}

func (r *ResultScreen) Init() tea.Cmd {
	return nil
}

func (r *ResultScreen) Title() string {
	return "Result"
}

func (r *ResultScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Done"},
	}
}

func (r *ResultScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		return r, func() tea.Msg { return router.PopScreenMsg{} }
	}
	return r, nil
}

func (r *ResultScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(centered(width, theme.Primary, r.def.Title))
	b.WriteString("\n")
	b.WriteString(centered(width, theme.TextDim,
		fmt.Sprintf("Attempt %d of %d", r.attempt, assess.MaxAttempts)))
	b.WriteString("\n\n")

	b.WriteString(centered(width, headlineColor(r.res), headline(r.res)))
	b.WriteString("\n\n")

	if r.res.Total > 0 {
		bar := components.NewProgressBar(
			fmt.Sprintf("Correct %d/%d", r.res.Correct, r.res.Total),
			float64(r.res.Correct)/float64(r.res.Total),
			true,
			min(width-8, 56),
		)
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, bar.View()))
		b.WriteString("\n\n")
	}

	b.WriteString(centered(width, theme.TextDim, "Press Enter to continue."))
	return b.String()
}

// headline formats the score the way its scoring mode reads it.
func headline(res *assess.Result) string {
	switch res.Mode {
	case assess.ScoreScale1to9:
		return fmt.Sprintf("Level %.0f / 9", res.Score)
	case assess.ScoreTiered:
		return strings.ToUpper(string(res.Label))
	default:
		return fmt.Sprintf("%.0f%%", res.Score)
	}
}

func headlineColor(res *assess.Result) color.Color {
	switch res.Label {
	case assess.TierExcellent:
		return theme.Success
	case assess.TierPoor:
		return theme.Error
	case assess.TierMedium:
		return theme.Accent
	}
	if res.Mode == assess.ScorePercentage && res.Score >= 80 {
		return theme.Success
	}
	return theme.Secondary
}

func centered(width int, fg color.Color, text string) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(fg).
		Render(text)
}
