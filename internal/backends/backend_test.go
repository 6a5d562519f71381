package backends

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/reviewdeck/internal/apperrors"
	"github.com/dshills/reviewdeck/internal/permission"
	"github.com/dshills/reviewdeck/internal/review"
)

func TestNew(t *testing.T) {
	tests := []struct {
		typ     review.SiteType
		wantErr bool
	}{
		{review.SiteTypeGerrit, false},
		{review.SiteTypeRietveld, false},
		{review.SiteTypeDemo, false},
		{"phabricator", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			site := review.Site{Label: "x", URL: "https://review.example.com", Type: tt.typ}
			b, err := New(site, Deps{})
			if tt.wantErr {
				if !apperrors.IsConfig(err) {
					t.Fatalf("err = %v, want Config error", err)
				}
				if !errors.Is(err, ErrUnknownSiteType) {
					t.Errorf("err = %v, want ErrUnknownSiteType", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New error: %v", err)
			}
			if b.Site() != site {
				t.Errorf("Site() = %+v, want %+v", b.Site(), site)
			}
		})
	}
}

func TestNew_RejectsRelativeSiteURL(t *testing.T) {
	for _, typ := range []review.SiteType{review.SiteTypeGerrit, review.SiteTypeRietveld} {
		for _, raw := range []string{"codereview.example.com", "", "ftp://review.example.com", "https://"} {
			_, err := New(review.Site{Label: "bad", URL: raw, Type: typ}, Deps{})
			if !apperrors.IsConfig(err) {
				t.Errorf("%s %q: err = %v, want Config error", typ, raw, err)
			}
		}
	}
}

type stubBackend struct {
	site    review.Site
	changes []review.Change
}

func (s stubBackend) Site() review.Site { return s.site }

func (s stubBackend) Fetch(context.Context) ([]review.Change, error) { return s.changes, nil }

func TestAggregator_MalformedSiteURLIsMisconfigured(t *testing.T) {
	good := review.Site{Label: "good", URL: "https://good.example.com", Type: review.SiteTypeGerrit}
	bad := review.Site{Label: "bad", URL: "codereview.example.com", Type: review.SiteTypeRietveld}

	factory := func(_ *review.Cycle, site review.Site) (review.Fetcher, error) {
		if site.Label == good.Label {
			return stubBackend{site: site, changes: []review.Change{{URL: "https://good.example.com/c/1", Owned: true, Status: review.StatusPending}}}, nil
		}
		return New(site, Deps{})
	}
	gate := permission.NewGate([]string{"https://good.example.com/"}, nil)
	agg := review.NewAggregator(factory, gate, review.NopObserver{})

	cycle, err := review.NewCycle(time.Now, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewCycle error: %v", err)
	}
	res, err := agg.Run(context.Background(), cycle, []review.Site{good, bad})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(res.Sites) != 2 {
		t.Fatalf("got %d site results, want 2", len(res.Sites))
	}
	if res.Sites[0].Status != review.SiteSuccess {
		t.Errorf("good site = %+v, want success", res.Sites[0])
	}
	if res.Sites[1].Status != review.SiteMisconfigured {
		t.Errorf("bad site = %+v, want misconfigured", res.Sites[1])
	}
	if res.Sites[1].ErrorCode != string(apperrors.CodeConfig) {
		t.Errorf("bad site code = %q, want %q", res.Sites[1].ErrorCode, apperrors.CodeConfig)
	}
}

func TestDemo_Fetch(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	changes, err := NewDemo(review.Site{Label: "chromium", Type: review.SiteTypeDemo}, clock).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(changes) != 5 {
		t.Fatalf("got %d changes, want 5", len(changes))
	}
	if changes[0].Updated != now.Add(-28*time.Minute).UnixMilli() {
		t.Errorf("Updated = %d, want 28 minutes ago", changes[0].Updated)
	}

	d := review.Categorize(changes, now)
	counts := map[review.Category]int{
		review.CategoryPending:   1,
		review.CategoryOutgoing:  1,
		review.CategorySubmitted: 1,
		review.CategoryIncoming:  1,
		review.CategoryCCed:      1,
	}
	for cat, want := range counts {
		if got := len(d.Get(cat)); got != want {
			t.Errorf("%s: got %d, want %d", cat, got, want)
		}
	}
}

func TestDemo_ChromiumOS(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	changes, err := NewDemo(review.Site{Label: "chromium-os"}, func() time.Time { return now }).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(changes) != 3 {
		t.Fatalf("got %d changes, want 3", len(changes))
	}
	if changes[1].Updated != now.Add(-17*24*time.Hour).UnixMilli() {
		t.Errorf("Updated = %d", changes[1].Updated)
	}
}

func TestDemo_UnknownLabel(t *testing.T) {
	_, err := NewDemo(review.Site{Label: "webkit"}, nil).Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for unknown label")
	}
}

func TestDemo_DoesNotShareEntries(t *testing.T) {
	d := NewDemo(review.Site{Label: "chromium"}, nil)
	first, _ := d.Fetch(context.Background())
	first[0].Subject = "mutated"
	second, _ := d.Fetch(context.Background())
	if second[0].Subject == "mutated" {
		t.Error("Fetch returned shared backing data")
	}
}
