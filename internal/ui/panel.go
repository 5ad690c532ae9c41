package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var panelBorderColor = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

// RenderPanel draws content in a rounded box with title set into the top
// border. width is the outer width; 0 fits the content.
func RenderPanel(title, content string, width int) string {
	lines := strings.Split(content, "\n")

	inner := 0
	for _, line := range lines {
		inner = max(inner, lipgloss.Width(line))
	}
	if width > 0 {
		// two border columns plus one space of padding on each side
		inner = max(width-4, 1)
	}

	styledTitle := ""
	if title != "" {
		styledTitle = " " + TitleStyle.Render(title) + " "
	}

	fill := inner + 2 - 1 - lipgloss.Width(styledTitle)
	if fill < 1 {
		fill = 1
	}

	var b strings.Builder
	b.WriteString(panelBorderColor.Render("╭─"))
	b.WriteString(styledTitle)
	b.WriteString(panelBorderColor.Render(strings.Repeat("─", fill) + "╮"))
	b.WriteString("\n")

	side := panelBorderColor.Render("│")
	for _, line := range lines {
		pad := inner - lipgloss.Width(line)
		if pad < 0 {
			pad = 0
		}
		b.WriteString(side + " " + line + strings.Repeat(" ", pad) + " " + side + "\n")
	}

	b.WriteString(panelBorderColor.Render("╰" + strings.Repeat("─", inner+2) + "╯"))
	return b.String()
}
