package palette

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	indicatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	categoryStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	successStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failureStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errTextStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	spinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	boxStyle       = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// maxVisibleItems caps the browse list height.
const maxVisibleItems = 10

// View renders the current phase.
func (m Model) View() string {
	switch m.phase {
	case phaseArgs:
		return m.viewArgs()
	case phaseConfirm:
		return m.viewConfirm()
	case phaseRunning:
		return m.viewRunning()
	case phaseResult:
		return m.viewResult()
	default:
		return m.viewBrowse()
	}
}

func (m Model) viewBrowse() string {
	var b strings.Builder

	title := titleStyle.Render("Command Palette")
	hints := mutedStyle.Render("↑/↓ move • enter run • esc quit")
	b.WriteString(title + "  " + hints + "\n")
	b.WriteString(mutedStyle.Render(" > ") + m.search.View() + "\n\n")

	if len(m.filtered) == 0 {
		b.WriteString(mutedStyle.Italic(true).Render("No matching commands") + "\n")
		if feed := m.viewActivity(); feed != "" {
			b.WriteString("\n" + feed)
		}
		return boxStyle.Render(b.String())
	}

	start, end := m.visibleRange()
	for i := start; i < end; i++ {
		item := m.filtered[i]

		indicator := "  "
		nameStyle := lipgloss.NewStyle()
		if i == m.cursor {
			indicator = indicatorStyle.Render("> ")
			nameStyle = selectedStyle
		}

		line := indicator + nameStyle.Render(item.Name)
		if item.Category != "" {
			line += "  " + categoryStyle.Render("["+item.Category+"]")
		}
		if item.Destructive {
			line += "  " + failureStyle.Render("!")
		} else if item.Mutation {
			line += "  " + warnStyle.Render("*")
		}
		b.WriteString(line + "\n")

		if item.Description != "" {
			b.WriteString("    " + mutedStyle.Render(truncate(item.Description, m.contentWidth()-4)) + "\n")
		}
	}

	if end < len(m.filtered) {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  ↓ %d more", len(m.filtered)-end)) + "\n")
	}

	if feed := m.viewActivity(); feed != "" {
		b.WriteString("\n" + feed)
	}

	return boxStyle.Render(b.String())
}

// viewActivity renders the most recent executions, newest last.
func (m Model) viewActivity() string {
	if len(m.activity) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(mutedStyle.Render("Recent") + "\n")
	for _, event := range m.activity {
		mark := successStyle.Render("✓")
		detail := fmt.Sprintf("%.1fms", event.DurationMs)
		if !event.Success {
			mark = failureStyle.Render("✗")
			if event.ErrorCode != "" {
				detail = event.ErrorCode
			}
		}
		b.WriteString(fmt.Sprintf("  %s %s  %s\n", mark, event.Command, mutedStyle.Render(detail)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) viewRunning() string {
	var b strings.Builder
	b.WriteString(m.spinner.View() + " Running " + titleStyle.Render(m.selected.Name) + "...")
	if m.lastLog != "" {
		b.WriteString("\n" + mutedStyle.Render(truncate(m.lastLog, m.contentWidth())))
	}
	return boxStyle.Render(b.String())
}

func (m Model) visibleRange() (int, int) {
	start := 0
	if m.cursor >= maxVisibleItems {
		start = m.cursor - maxVisibleItems + 1
	}
	end := min(start+maxVisibleItems, len(m.filtered))
	return start, end
}

func (m Model) viewArgs() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.selected.Name) + "\n")
	if m.selected.Description != "" {
		b.WriteString(renderMarkdown(m.selected.Description, m.contentWidth()))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("Arguments (JSON): "+strings.Join(m.selected.ArgNames, ", ")) + "\n")
	b.WriteString(mutedStyle.Render(" > ") + m.argInput.View() + "\n")
	if m.argErr != "" {
		b.WriteString(errTextStyle.Render(m.argErr) + "\n")
	}
	b.WriteString("\n" + mutedStyle.Render("enter run • esc back"))

	return boxStyle.Render(b.String())
}

func (m Model) viewConfirm() string {
	prompt := m.selected.ConfirmPrompt
	if prompt == "" {
		prompt = "This action cannot be undone. Continue?"
	}

	var b strings.Builder
	b.WriteString(failureStyle.Render("Confirm: ") + titleStyle.Render(m.selected.Name) + "\n\n")
	b.WriteString(prompt + "\n\n")
	b.WriteString(mutedStyle.Render("y/enter confirm • n/esc cancel"))
	return boxStyle.Render(b.String())
}

func (m Model) viewResult() string {
	var b strings.Builder

	if m.result.Success {
		b.WriteString(successStyle.Render("✓ "+m.selected.Name) + "\n")
	} else {
		b.WriteString(failureStyle.Render("✗ "+m.selected.Name) + "\n")
	}

	if m.ready {
		b.WriteString(m.viewport.View() + "\n")
	} else {
		b.WriteString(m.resultContent() + "\n")
	}
	b.WriteString(mutedStyle.Render("↑/↓ scroll • enter/esc back"))
	return boxStyle.Render(b.String())
}

// resultContent formats the result body: reasoning and warnings first,
// then the pretty-printed JSON.
func (m Model) resultContent() string {
	if m.result == nil {
		return ""
	}

	var b strings.Builder
	if m.result.Reasoning != "" {
		b.WriteString(mutedStyle.Render(m.result.Reasoning) + "\n")
	}
	for _, warning := range m.result.Warnings {
		b.WriteString(warnStyle.Render("⚠ "+warning.Message) + "\n")
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}

	pretty, err := json.MarshalIndent(m.result, "", "  ")
	if err != nil {
		return b.String() + errTextStyle.Render("failed to render result: "+err.Error())
	}
	b.Write(pretty)
	return b.String()
}

func (m Model) contentWidth() int {
	if m.width > 4 {
		return m.width - 4
	}
	return 76
}

func truncate(s string, width int) string {
	if width <= 3 || len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}
