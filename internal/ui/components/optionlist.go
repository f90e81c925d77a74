package components

import (
	"fmt"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/phantom040901/devpath-cli/internal/ui/theme"
)

// OptionItem is one answer choice as presented, identified by the option id
// recorded in the answer map.
type OptionItem struct {
	ID    string
	Label string
}

// OptionList is the answer selector for one question. It highlights the
// cursor row and marks the saved answer, and never reveals correctness —
// grading happens only at submission.
type OptionList struct {
	Options  []OptionItem
	Cursor   int
	SavedID  string
	OnSelect func(optionID string) tea.Cmd
}

// NewOptionList creates an option list with the cursor on the saved answer,
// or the first option when nothing is saved yet.
func NewOptionList(options []OptionItem, savedID string, onSelect func(optionID string) tea.Cmd) OptionList {
	cursor := 0
	for i, o := range options {
		if savedID != "" && o.ID == savedID {
			cursor = i
			break
		}
	}
	return OptionList{
		Options:  options,
		Cursor:   cursor,
		SavedID:  savedID,
		OnSelect: onSelect,
	}
}

// Update handles keyboard navigation and selection. Number keys pick an
// option directly.
func (l OptionList) Update(msg tea.Msg) (OptionList, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return l, nil
	}

	switch key := kmsg.String(); key {
	case "up", "k":
		if l.Cursor > 0 {
			l.Cursor--
		}
	case "down", "j":
		if l.Cursor < len(l.Options)-1 {
			l.Cursor++
		}
	case "enter", " ":
		return l.choose(l.Cursor)
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			idx := int(key[0] - '1')
			if idx < len(l.Options) {
				l.Cursor = idx
				return l.choose(idx)
			}
		}
	}

	return l, nil
}

func (l OptionList) choose(idx int) (OptionList, tea.Cmd) {
	if idx < 0 || idx >= len(l.Options) {
		return l, nil
	}
	l.SavedID = l.Options[idx].ID
	if l.OnSelect == nil {
		return l, nil
	}
	return l, l.OnSelect(l.SavedID)
}

// View renders the option list.
func (l OptionList) View() string {
	var s string
	for i, opt := range l.Options {
		prefix := "  "
		if i == l.Cursor {
			prefix = "▸ "
		}
		marker := " "
		if l.SavedID != "" && opt.ID == l.SavedID {
			marker = "●"
		}
		line := fmt.Sprintf("%s%s %d) %s", prefix, marker, i+1, opt.Label)

		switch {
		case i == l.Cursor:
			s += lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render(line) + "\n"
		case opt.ID == l.SavedID:
			s += lipgloss.NewStyle().Foreground(theme.Success).Render(line) + "\n"
		default:
			s += lipgloss.NewStyle().Foreground(theme.Text).Render(line) + "\n"
		}
	}
	return s
}
