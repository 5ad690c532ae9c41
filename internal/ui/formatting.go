package ui

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cdstail/cdstail/internal/api"
)

var titleCaser = cases.Title(language.English)

// ColorizeStatus applies color styling to a CDS pipeline status
func ColorizeStatus(status string) string {
	if status == "" {
		return PendingStyle.Render("Pending")
	}
	displayStatus := titleCaser.String(strings.ToLower(status))

	switch status {
	case api.StatusSuccess:
		return GreenStyle.Render(displayStatus)
	case api.StatusFail:
		return RedStyle.Render(displayStatus)
	case api.StatusBuilding:
		return CyanStyle.Render(displayStatus)
	case api.StatusWaiting:
		return YellowStyle.Render(displayStatus)
	case api.StatusStopped:
		return MagentaStyle.Render(displayStatus)
	case api.StatusSkipped, api.StatusDisabled, api.StatusNeverBuilt:
		return PendingStyle.Render(displayStatus)
	default:
		return BoldStyle.Render(displayStatus)
	}
}

// StatusIcon returns a one-rune marker for a step status
func StatusIcon(status string) string {
	switch status {
	case api.StatusSuccess:
		return GreenStyle.Render("✓")
	case api.StatusFail:
		return RedStyle.Render("✗")
	case api.StatusBuilding:
		return CyanStyle.Render("●")
	case api.StatusWaiting:
		return YellowStyle.Render("○")
	case api.StatusStopped:
		return MagentaStyle.Render("■")
	default:
		return PendingStyle.Render("·")
	}
}

// FormatError formats an error message with styling
// NOTE: Adds a new line manually. Use strings.TrimSpace if you want to strip it.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	// The last line of a bubbletea program is sometimes overwritten on exit,
	// see https://github.com/charmbracelet/bubbletea/issues/304
	return ErrorStyle.Render(fmt.Sprintf("✗ Error: %s", err.Error())) + "\n"
}
