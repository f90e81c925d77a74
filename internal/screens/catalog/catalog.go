package catalog

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/phantom040901/devpath-cli/internal/assess"
	"github.com/phantom040901/devpath-cli/internal/router"
	"github.com/phantom040901/devpath-cli/internal/screen"
	"github.com/phantom040901/devpath-cli/internal/screens/runner"
	"github.com/phantom040901/devpath-cli/internal/store"
	"github.com/phantom040901/devpath-cli/internal/ui/components"
	"github.com/phantom040901/devpath-cli/internal/ui/layout"
	"github.com/phantom040901/devpath-cli/internal/ui/theme"
)

// catalogLoadedMsg delivers the definition list and per-subject attempt
// counts once loading finishes.
type catalogLoadedMsg struct {
	Defs     []assess.TestDefinition
	Attempts map[string]int // "collection_subjectID" -> attempts used
	Err      error
}

// CatalogScreen lists the available assessments and launches the runner.
type CatalogScreen struct {
	st     *store.Store
	userID string

	defs     []assess.TestDefinition
	attempts map[string]int
	loaded   bool
	errMsg   string

	cursor    int
	filter    components.TextInput
	filtering bool
}

var _ screen.Screen = (*CatalogScreen)(nil)
var _ screen.KeyHintProvider = (*CatalogScreen)(nil)

// New creates a new CatalogScreen.
func New(st *store.Store, userID string) *CatalogScreen {
	return &CatalogScreen{
		st:     st,
		userID: userID,
		filter: components.NewTextInput("filter...", 40),
	}
}

func (c *CatalogScreen) Init() tea.Cmd {
	return c.load()
}

func (c *CatalogScreen) Title() string {
	return "Assessments"
}

func (c *CatalogScreen) KeyHints() []layout.KeyHint {
	if c.filtering {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Apply"},
			{Key: "Esc", Description: "Clear"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Start"},
		{Key: "/", Description: "Filter"},
		{Key: "Esc", Description: "Back"},
	}
}

// load fetches the catalog and the user's attempt usage.
func (c *CatalogScreen) load() tea.Cmd {
	st, userID := c.st, c.userID
	return func() tea.Msg {
		ctx := context.Background()
		defs, err := st.Definitions().List(ctx, "")
		if err != nil {
			return catalogLoadedMsg{Err: err}
		}

		used := make(map[string]int)
		recs, err := st.Attempts().ListByUser(ctx, userID)
		if err != nil {
			return catalogLoadedMsg{Err: err}
		}
		for _, r := range recs {
			used[r.Collection+"_"+r.SubjectID]++
		}

		return catalogLoadedMsg{Defs: defs, Attempts: used}
	}
}

func (c *CatalogScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case catalogLoadedMsg:
		if msg.Err != nil {
			c.errMsg = msg.Err.Error()
			return c, nil
		}
		c.defs = msg.Defs
		c.attempts = msg.Attempts
		c.loaded = true
		return c, nil

	case tea.KeyMsg:
		return c.handleKey(msg)
	}

	if c.filtering {
		var cmd tea.Cmd
		c.filter, cmd = c.filter.Update(msg)
		return c, cmd
	}
	return c, nil
}

func (c *CatalogScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if c.filtering {
		switch key {
		case "enter":
			c.filtering = false
			c.filter.Blur()
			c.cursor = 0
		case "esc":
			c.filtering = false
			c.filter.Blur()
			c.filter.Reset()
			c.cursor = 0
		default:
			var cmd tea.Cmd
			c.filter, cmd = c.filter.Update(msg)
			c.cursor = 0
			return c, cmd
		}
		return c, nil
	}

	visible := c.visibleDefs()
	switch key {
	case "/":
		c.filtering = true
		return c, c.filter.Focus()
	case "up", "k":
		if c.cursor > 0 {
			c.cursor--
		}
	case "down", "j":
		if c.cursor < len(visible)-1 {
			c.cursor++
		}
	case "enter":
		if c.cursor >= 0 && c.cursor < len(visible) {
			def := visible[c.cursor]
			return c, func() tea.Msg {
				return router.PushScreenMsg{
					Screen: runner.New(c.st, c.userID, def.Collection, def.SubjectID),
				}
			}
		}
	}
	return c, nil
}

// visibleDefs applies the filter to title, collection, and subject id.
func (c *CatalogScreen) visibleDefs() []assess.TestDefinition {
	q := strings.ToLower(strings.TrimSpace(c.filter.Value()))
	if q == "" {
		return c.defs
	}
	var out []assess.TestDefinition
	for _, d := range c.defs {
		hay := strings.ToLower(d.Title + " " + d.Collection + " " + d.SubjectID)
		if strings.Contains(hay, q) {
			out = append(out, d)
		}
	}
	return out
}

func (c *CatalogScreen) View(width, height int) string {
	if c.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.Error).
			Render("\n\n  Error: " + c.errMsg)
	}
	if !c.loaded {
		return lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.TextDim).
			Render("\n\n  Loading assessments...")
	}

	var b strings.Builder
	b.WriteString("\n")

	if c.filtering || c.filter.Value() != "" {
		b.WriteString("  Filter: " + c.filter.View() + "\n\n")
	}

	visible := c.visibleDefs()
	if len(visible) == 0 {
		b.WriteString(lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.TextDim).
			Render("\n  No assessments found.\n  Use `devpath import <file>` to load definitions."))
		return b.String()
	}

	for i, d := range visible {
		used := c.attempts[d.Collection+"_"+d.SubjectID]
		detail := fmt.Sprintf("%s · %s · %s · attempts %d/%d",
			d.Collection, d.Variant, layout.FormatClock(d.DurationSecs), used, assess.MaxAttempts)

		prefix := "    "
		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == c.cursor {
			prefix = "  ▸ "
			style = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
		}
		if used >= assess.MaxAttempts {
			style = style.Foreground(theme.TextDim)
		}

		b.WriteString(style.Render(prefix+d.Title) + "\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Render("      "+detail) + "\n")
	}

	return b.String()
}
