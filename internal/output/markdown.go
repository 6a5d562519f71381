package output

import (
	"io"
	"strings"

	"github.com/dshills/reviewdeck/internal/review"
)

// MarkdownWriter outputs one table per non-empty category.
type MarkdownWriter struct {
	opts Options
}

func (m *MarkdownWriter) Write(w io.Writer, res *review.Result) error {
	ew := &errWriter{w: w}
	now := m.opts.now()

	ew.printf("## Review dashboard\n\n")

	// Summary table
	ew.printf("| Category | Count |\n")
	ew.printf("|----------|-------|\n")
	for _, cat := range review.Categories {
		ew.printf("| %s | %d |\n", cat.Caption(), len(res.Dashboard.Get(cat)))
	}
	ew.printf("| **Total** | **%d** |\n\n", res.Dashboard.Total())

	if res.Dashboard.Total() == 0 {
		ew.println("Nothing to review. :white_check_mark:")
		ew.println("")
	}

	for _, cat := range review.Categories {
		changes := res.Dashboard.Get(cat)
		if len(changes) == 0 {
			continue
		}

		ew.printf("### %s\n\n", cat.Caption())
		ew.printf("| Subject | Status | Owner | Repository | Updated |\n")
		ew.printf("|---------|--------|-------|------------|---------|\n")
		for _, c := range changes {
			ew.printf("| [%s](%s) | %s | %s | %s | %s |\n",
				mdEscape(c.Subject), c.URL, c.Status, mdEscape(c.OwnerName),
				mdEscape(c.Repository), PrettyTime(c.Updated, now))
		}
		ew.println("")
	}

	var failed []review.SiteResult
	for _, s := range res.Sites {
		if s.Status != review.SiteSuccess {
			failed = append(failed, s)
		}
	}
	if len(failed) > 0 {
		ew.printf("<details>\n<summary>:red_circle: %d site(s) failed</summary>\n\n", len(failed))
		for _, s := range failed {
			ew.printf("- **%s** (%s): %s\n", mdEscape(s.Site.Label), s.Status, mdEscape(s.Error))
		}
		ew.printf("\n</details>\n\n")
	}

	ew.printf("*Fetched %d site(s) in %dms*\n", len(res.Sites), res.TotalMs)

	return ew.err
}

var mdReplacer = strings.NewReplacer("|", `\|`, "[", `\[`, "]", `\]`, "\n", " ")

func mdEscape(s string) string {
	return mdReplacer.Replace(s)
}
