package output

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/devsweep/internal/classify"
)

// SizeBar renders a bar showing part as a share of total.
// Example: "████████░░ 80%"
func SizeBar(part, total int64, width int) string {
	if width <= 0 {
		width = 20
	}
	var ratio float64
	if total > 0 {
		ratio = float64(part) / float64(total)
	}
	filled := int(ratio * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	var style func(string) string
	switch {
	case ratio >= 0.5:
		style = func(s string) string { return StyleError.Render(s) }
	case ratio >= 0.2:
		style = func(s string) string { return StyleWarning.Render(s) }
	default:
		style = func(s string) string { return StyleSuccess.Render(s) }
	}

	return fmt.Sprintf("%s %s", style(bar), StyleMuted.Render(fmt.Sprintf("%.0f%%", ratio*100)))
}

// StatusBadge returns a styled label for an activity status. Dormant and
// stale projects are the cleanup candidates and stand out.
func StatusBadge(s classify.Status) string {
	label := strings.ToUpper(string(s))
	switch s {
	case classify.Active:
		return StyleSuccess.Render(label)
	case classify.Recent:
		return StyleMuted.Render(label)
	case classify.Stale:
		return StyleWarning.Render(label)
	case classify.Dormant:
		return StyleError.Render(label)
	}
	return label
}

// ProtectedBadge marks a protected project with its reason.
func ProtectedBadge(reason string) string {
	if reason == "" {
		return StyleProtected.Render("protected")
	}
	return StyleProtected.Render("protected: " + reason)
}

// Section prints a styled section header with a horizontal rule.
func Section(title string) string {
	header := StyleHeader.Render(title)
	rule := StyleMuted.Render(strings.Repeat("─", 66))
	return fmt.Sprintf("\n %s\n %s", header, rule)
}
