package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/reviewdeck/internal/review"
)

// TextWriter outputs a human-readable dashboard.
type TextWriter struct {
	opts Options
}

// NewTextWriter returns a text writer with the given options.
func NewTextWriter(opts Options) *TextWriter {
	return &TextWriter{opts: opts}
}

func (t *TextWriter) Write(w io.Writer, res *review.Result) error {
	ew := &errWriter{w: w}
	color := t.opts.Color
	now := t.opts.now()

	total := res.Dashboard.Total()
	ew.printf("Review dashboard (cycle %s)\n", res.CycleID)
	ew.println(strings.Repeat("─", 60))
	ew.printf("Changes: %d total across %d site(s)", total, len(res.Sites))
	if failed := res.Failed(); failed > 0 {
		ew.printf(", %s", paint(color, ansiRed, pluralize(failed, "site failed", "sites failed")))
	}
	ew.println("")
	ew.println(strings.Repeat("─", 60))

	if total == 0 {
		ew.println("\nNothing to review.")
	}

	for _, cat := range review.Categories {
		changes := res.Dashboard.Get(cat)
		if len(changes) == 0 {
			continue
		}

		ew.printf("\n%s (%d)\n", paint(color, ansiBold, cat.Caption()), len(changes))
		ew.println(strings.Repeat("─", 40))

		for _, c := range changes {
			ew.printf("\n  %s\n", c.Subject)
			ew.printf("  %s | %s | %s | %s\n",
				paint(color, statusColor(c.Status), string(c.Status)),
				c.OwnerName, c.Repository, PrettyTime(c.Updated, now))
			ew.printf("  %s\n", paint(color, ansiDim, c.URL))
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.println("Sites:")
	for _, s := range res.Sites {
		ew.printf("  %-20s %s", s.Site.Label, paint(color, siteStatusColor(s.Status), string(s.Status)))
		switch s.Status {
		case review.SiteSuccess:
			ew.printf("  %s  %dms", pluralize(len(s.Changes), "change", "changes"), s.DurationMs)
		case review.SiteFailure, review.SiteMisconfigured:
			ew.printf("  %s", s.Error)
		}
		ew.println("")
	}
	ew.printf("Completed in %dms\n", res.TotalMs)

	return ew.err
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return fmt.Sprintf("%d %s", n, plural)
}
