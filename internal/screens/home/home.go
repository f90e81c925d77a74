package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/phantom040901/devpath-cli/internal/assess"
	"github.com/phantom040901/devpath-cli/internal/router"
	"github.com/phantom040901/devpath-cli/internal/screen"
	"github.com/phantom040901/devpath-cli/internal/screens/catalog"
	"github.com/phantom040901/devpath-cli/internal/screens/history"
	"github.com/phantom040901/devpath-cli/internal/store"
	"github.com/phantom040901/devpath-cli/internal/ui/components"
	"github.com/phantom040901/devpath-cli/internal/ui/theme"
)

// HomeScreen is the main entry screen of the application.
type HomeScreen struct {
	menu           components.Menu
	subjectCount   int
	attemptCount   int
	bestScoreLabel string
}

var _ screen.Screen = (*HomeScreen)(nil)

// New creates a new HomeScreen.
func New(st *store.Store, userID string) *HomeScreen {
	// Headline stats, best effort: a read failure just leaves them at zero.
	ctx := context.Background()
	var subjectCount, attemptCount int
	var best *assess.AttemptRecord
	if defs, err := st.Definitions().List(ctx, ""); err == nil {
		subjectCount = len(defs)
	}
	if recs, err := st.Attempts().ListByUser(ctx, userID); err == nil {
		attemptCount = len(recs)
		for i := range recs {
			if best == nil || recs[i].Score > best.Score {
				best = &recs[i]
			}
		}
	}

	bestLabel := "—"
	if best != nil {
		bestLabel = fmt.Sprintf("%s (%s)", formatScore(best), best.SubjectID)
	}

	items := []components.MenuItem{
		{Label: "ASSESSMENTS", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: catalog.New(st, userID)}
			}
		}},
		{Label: "HISTORY", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: history.New(st.Attempts(), userID)}
			}
		}},
		{Label: "QUIT", Action: func() tea.Cmd {
			return tea.Quit
		}},
	}

	return &HomeScreen{
		menu:           components.NewMenu(items),
		subjectCount:   subjectCount,
		attemptCount:   attemptCount,
		bestScoreLabel: bestLabel,
	}
}

func (h *HomeScreen) Init() tea.Cmd {
	return nil
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	var b strings.Builder

	b.WriteString("\n\n")
	b.WriteString(theme.Title.Width(width).Render("DevPath"))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Width(width).Render("Timed career assessments, in your terminal"))
	b.WriteString("\n\n")

	stats := fmt.Sprintf("%d assessments   %d attempts   best: %s",
		h.subjectCount, h.attemptCount, h.bestScoreLabel)
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render(stats))
	b.WriteString("\n\n")

	menu := h.menu.View()
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, menu))

	return b.String()
}

func (h *HomeScreen) Title() string {
	return "Home"
}

func formatScore(rec *assess.AttemptRecord) string {
	if rec.Label != "" {
		return string(rec.Label)
	}
	return fmt.Sprintf("%.0f", rec.Score)
}
