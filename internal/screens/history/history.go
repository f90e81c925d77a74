package history

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"charm.land/lipgloss/v2"

	"github.com/phantom040901/devpath-cli/internal/assess"
	"github.com/phantom040901/devpath-cli/internal/screen"
	"github.com/phantom040901/devpath-cli/internal/store"
	"github.com/phantom040901/devpath-cli/internal/ui/layout"
	"github.com/phantom040901/devpath-cli/internal/ui/theme"
)

type historyLoadedMsg struct {
	Records []assess.AttemptRecord
	Err     error
}

// HistoryScreen lists the user's graded attempts, newest first.
type HistoryScreen struct {
	attempts *store.AttemptRepo
	userID   string
	records  []assess.AttemptRecord
	selected int
	loaded   bool
	errMsg   string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a new HistoryScreen.
func New(attempts *store.AttemptRepo, userID string) *HistoryScreen {
	return &HistoryScreen{
		attempts: attempts,
		userID:   userID,
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	attempts, userID := s.attempts, s.userID
	return func() tea.Msg {
		recs, err := attempts.ListByUser(context.Background(), userID)
		if err != nil {
			return historyLoadedMsg{Err: err}
		}
		return historyLoadedMsg{Records: recs}
	}
}

func (s *HistoryScreen) Title() string {
	return "History"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.records = msg.Records
			s.loaded = true
		}
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.records)-1 {
				s.selected++
			}
		}
	}
	return s, nil
}

func (s *HistoryScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.Error).
			Render("\n\n  Error: " + s.errMsg)
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.TextDim).
			Render("\n\n  Loading history...")
	}
	if len(s.records) == 0 {
		return lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.TextDim).
			Render("\n\n  No attempts yet. Pick an assessment to get started.")
	}

	var b strings.Builder
	b.WriteString("\n")
	for i, rec := range s.records {
		prefix := "    "
		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			prefix = "  ▸ "
			style = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
		}

		line := fmt.Sprintf("%s%s / %s", prefix, rec.Collection, rec.SubjectID)
		b.WriteString(style.Render(line) + "\n")

		detail := fmt.Sprintf("      attempt %d · %s · %d/%d correct · %s",
			rec.Attempt,
			formatOutcome(rec),
			rec.Correct, rec.Total,
			rec.SubmittedAt.Local().Format("2006-01-02 15:04"))
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Render(detail) + "\n")
	}
	return b.String()
}

func formatOutcome(rec assess.AttemptRecord) string {
	if rec.Label != "" {
		return string(rec.Label)
	}
	return fmt.Sprintf("%.0f", rec.Score)
}
