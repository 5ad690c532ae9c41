package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// FormatDuration renders the span between start and end the way the CDS console
// does: the largest non-zero unit first, then every smaller unit down to seconds.
// Negative spans render as "0s".
func FormatDuration(start, end time.Time) string {
	d := end.Sub(start)
	if d < time.Second {
		return "0s"
	}

	total := int64(d / time.Second)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	switch {
	case days > 0:
		parts = append(parts, fmt.Sprintf("%dd", days), fmt.Sprintf("%dh", hours), fmt.Sprintf("%dm", minutes))
	case hours > 0:
		parts = append(parts, fmt.Sprintf("%dh", hours), fmt.Sprintf("%dm", minutes))
	case minutes > 0:
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
