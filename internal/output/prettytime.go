package output

import (
	"fmt"
	"time"
)

// PrettyTime renders an Updated timestamp relative to now: the clock time
// within the last 20 hours, the month and day within 340 days, and the full
// date beyond that. Timestamps after now render as "future".
func PrettyTime(updated int64, now time.Time) string {
	t := time.UnixMilli(updated).In(now.Location())
	delta := now.Sub(t)
	switch {
	case delta < 0:
		return "future"
	case delta < 20*time.Hour:
		return fmt.Sprintf("%d:%02d", t.Hour(), t.Minute())
	case delta < 340*24*time.Hour:
		return t.Format("Jan 2")
	default:
		return t.Format("Jan 2 2006")
	}
}
