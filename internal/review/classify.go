package review

import (
	"sort"
	"time"
)

// SubmittedWindow is how long an owned, submitted change stays visible.
const SubmittedWindow = 7 * 24 * time.Hour

// Classify returns the display category of a change. The second result is
// false when the change belongs to no category: owned changes that are
// abandoned, unknown, or submitted longer than SubmittedWindow ago are
// dropped.
func Classify(c Change, now time.Time) (Category, bool) {
	if c.Owned {
		switch c.Status {
		case StatusPending:
			return CategoryPending, true
		case StatusReviewing, StatusApproved:
			return CategoryOutgoing, true
		case StatusSubmitted:
			if now.UnixMilli()-c.Updated < SubmittedWindow.Milliseconds() {
				return CategorySubmitted, true
			}
		}
		return "", false
	}
	if c.Reviewing {
		return CategoryIncoming, true
	}
	return CategoryCCed, true
}

// Categorize classifies changes into a Dashboard. Every category is sorted
// by Updated, most recent first.
func Categorize(changes []Change, now time.Time) Dashboard {
	d := Dashboard{
		Pending:   []Change{},
		Outgoing:  []Change{},
		Submitted: []Change{},
		Incoming:  []Change{},
		CCed:      []Change{},
	}
	for _, c := range changes {
		cat, ok := Classify(c, now)
		if !ok {
			continue
		}
		slot := d.slot(cat)
		*slot = append(*slot, c)
	}
	for _, cat := range Categories {
		list := d.Get(cat)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Updated > list[j].Updated
		})
	}
	return d
}
