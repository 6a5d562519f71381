package review

import (
	"testing"
	"time"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func daysAgo(d float64) int64 {
	return testNow.Add(-time.Duration(d * float64(24*time.Hour))).UnixMilli()
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		change Change
		want   Category
		wantOK bool
	}{
		{"owned pending", Change{Owned: true, Reviewing: true, Status: StatusPending}, CategoryPending, true},
		{"owned reviewing", Change{Owned: true, Status: StatusReviewing}, CategoryOutgoing, true},
		{"owned approved", Change{Owned: true, Status: StatusApproved}, CategoryOutgoing, true},
		{"owned submitted 6 days", Change{Owned: true, Status: StatusSubmitted, Updated: daysAgo(6)}, CategorySubmitted, true},
		{"owned submitted 8 days", Change{Owned: true, Status: StatusSubmitted, Updated: daysAgo(8)}, "", false},
		{"owned abandoned", Change{Owned: true, Status: StatusAbandoned}, "", false},
		{"owned unknown", Change{Owned: true, Status: StatusUnknown}, "", false},
		{"incoming", Change{Reviewing: true, Status: StatusPending}, CategoryIncoming, true},
		{"incoming submitted", Change{Reviewing: true, Status: StatusSubmitted, Updated: daysAgo(30)}, CategoryIncoming, true},
		{"cced", Change{Status: StatusApproved}, CategoryCCed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.change, testNow)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Classify() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestClassify_PendingTakesPrecedence(t *testing.T) {
	// Owned and reviewing could match incoming too; pending wins.
	c := Change{Owned: true, Reviewing: true, Status: StatusPending, Updated: testNow.UnixMilli()}
	got, ok := Classify(c, testNow)
	if !ok || got != CategoryPending {
		t.Errorf("Classify() = (%q, %v), want pending", got, ok)
	}
}

func TestCategorize_SortsByUpdatedDescending(t *testing.T) {
	t0 := testNow.UnixMilli()
	changes := []Change{
		{URL: "a", Reviewing: true, Status: StatusReviewing, Updated: t0},
		{URL: "b", Reviewing: true, Status: StatusReviewing, Updated: t0 - 1000},
		{URL: "c", Reviewing: true, Status: StatusReviewing, Updated: t0 - 500},
	}

	d := Categorize(changes, testNow)
	if len(d.Incoming) != 3 {
		t.Fatalf("incoming = %d, want 3", len(d.Incoming))
	}
	want := []int64{t0, t0 - 500, t0 - 1000}
	for i, c := range d.Incoming {
		if c.Updated != want[i] {
			t.Errorf("incoming[%d].Updated = %d, want %d", i, c.Updated, want[i])
		}
	}
}

func TestCategorize_EmptyCategoriesAreNonNil(t *testing.T) {
	d := Categorize(nil, testNow)
	for _, cat := range Categories {
		if d.Get(cat) == nil {
			t.Errorf("category %s is nil, want empty slice", cat)
		}
	}
	if d.Total() != 0 {
		t.Errorf("Total() = %d, want 0", d.Total())
	}
}

func TestCategorize_DropsStaleSubmitted(t *testing.T) {
	changes := []Change{
		{URL: "fresh", Owned: true, Status: StatusSubmitted, Updated: daysAgo(1)},
		{URL: "stale", Owned: true, Status: StatusSubmitted, Updated: daysAgo(8)},
	}
	d := Categorize(changes, testNow)
	if len(d.Submitted) != 1 || d.Submitted[0].URL != "fresh" {
		t.Errorf("submitted = %+v, want only fresh", d.Submitted)
	}
	if d.Total() != 1 {
		t.Errorf("Total() = %d, want 1", d.Total())
	}
}
