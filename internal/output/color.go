package output

import (
	"os"

	"golang.org/x/term"

	"github.com/dshills/reviewdeck/internal/review"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// ShouldUseColor determines if stdout output should include ANSI colors.
// NO_COLOR disables color, CLICOLOR_FORCE forces it, CLICOLOR=0 disables it,
// otherwise color is used when stdout is a terminal.
func ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("CLICOLOR_FORCE") != "" {
		return true
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func paint(enabled bool, code, s string) string {
	if !enabled || code == "" {
		return s
	}
	return code + s + ansiReset
}

func statusColor(s review.Status) string {
	switch s {
	case review.StatusApproved:
		return ansiGreen
	case review.StatusReviewing:
		return ansiYellow
	case review.StatusPending:
		return ansiCyan
	case review.StatusSubmitted, review.StatusAbandoned:
		return ansiDim
	default:
		return ""
	}
}

func siteStatusColor(s review.SiteStatus) string {
	switch s {
	case review.SiteSuccess:
		return ansiGreen
	case review.SiteFailure, review.SiteMisconfigured:
		return ansiRed
	case review.SiteLoading:
		return ansiYellow
	default:
		return ""
	}
}
