package backends

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/reviewdeck/internal/apperrors"
	"github.com/dshills/reviewdeck/internal/review"
)

// demoEntry is a canned change whose Updated time is an age relative to now.
type demoEntry struct {
	change review.Change
	age    time.Duration
}

var demoEntries = map[string][]demoEntry{
	"chromium": {
		{review.Change{Owned: true, Subject: "Clean up ARC file system unit tests.", URL: "chromium/1",
			Status: review.StatusPending, Repository: "chromium: chromium", OwnerName: "Shuhei Takahashi"}, 28 * time.Minute},
		{review.Change{Owned: true, Subject: "Defer ARC file system operations while ARC is booting.", URL: "chromium/2",
			Status: review.StatusApproved, Repository: "chromium: chromium", OwnerName: "Shuhei Takahashi"}, 25 * time.Hour},
		{review.Change{Owned: true, Subject: "arc: Abort booting ARC if the device is critically low on disk space.", URL: "chromium/3",
			Status: review.StatusSubmitted, Repository: "chromium: chromium", OwnerName: "Shuhei Takahashi"}, 4 * 24 * time.Hour},
		{review.Change{Reviewing: true, Subject: "Move free disk space check to session_manager.", URL: "chromium/4",
			Status: review.StatusReviewing, Repository: "chromium: chromium", OwnerName: "Hidehiko Abe"}, 2 * 24 * time.Hour},
		{review.Change{Subject: "ARC is not allowed for incognito profile.", URL: "chromium/5",
			Status: review.StatusApproved, Repository: "chromium: chromium", OwnerName: "Hidehiko Abe"}, 17 * time.Hour},
	},
	"chromium-os": {
		{review.Change{Owned: true, Subject: "target-chromium-os-sdk: Add relocation_packer from Android.", URL: "chromiumos/1",
			Status: review.StatusReviewing, Repository: "chromium-os: chromiumos-overlay", OwnerName: "Shuhei Takahashi"}, 21 * time.Hour},
		{review.Change{Owned: true, Subject: `login: Consistently mention "account ID".`, URL: "chromiumos/2",
			Status: review.StatusReviewing, Repository: "chromium-os: platform2", OwnerName: "Shuhei Takahashi"}, 17 * 24 * time.Hour},
		{review.Change{Reviewing: true, Subject: "login: Add free-disk-size check on StartArcInstance().", URL: "chromiumos/3",
			Status: review.StatusApproved, Repository: "chromium-os: platform2", OwnerName: "Hidehiko Abe"}, 23 * time.Hour},
	},
}

// Demo serves canned changes keyed by the site label.
type Demo struct {
	site  review.Site
	clock func() time.Time
}

// NewDemo creates a Demo backend. A nil clock means time.Now.
func NewDemo(site review.Site, clock func() time.Time) *Demo {
	if clock == nil {
		clock = time.Now
	}
	return &Demo{site: site, clock: clock}
}

func (d *Demo) Site() review.Site { return d.site }

func (d *Demo) Fetch(ctx context.Context) ([]review.Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, ok := demoEntries[d.site.Label]
	if !ok {
		return nil, apperrors.Config(d.site.Label, fmt.Errorf("unknown demo label %q", d.site.Label))
	}
	now := d.clock()
	changes := make([]review.Change, len(entries))
	for i, e := range entries {
		changes[i] = e.change
		changes[i].Updated = now.Add(-e.age).UnixMilli()
	}
	return changes, nil
}

// DemoLabels returns the labels the Demo backend has changes for.
func DemoLabels() []string {
	return []string{"chromium", "chromium-os"}
}
