package review

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/reviewdeck/internal/apperrors"
)

// Fetcher retrieves the changes of one site. Backends implement it.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Change, error)
	Site() Site
}

// FetcherFactory builds the fetcher for a site within a cycle.
type FetcherFactory func(cycle *Cycle, site Site) (Fetcher, error)

// PermissionChecker reports whether the user allowed access to every site.
type PermissionChecker interface {
	CheckGranted(ctx context.Context, sites []Site) (bool, error)
}

// Observer is notified of cycle progress. Calls for one cycle are never
// concurrent.
type Observer interface {
	SiteStarted(cycle *Cycle, site Site)
	SiteFinished(cycle *Cycle, res SiteResult)
	CycleFinished(cycle *Cycle, res *Result)
	PermissionRequired(cycle *Cycle, sites []Site)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) SiteStarted(*Cycle, Site) {}
func (NopObserver) SiteFinished(*Cycle, SiteResult) {}
func (NopObserver) CycleFinished(*Cycle, *Result) {}
func (NopObserver) PermissionRequired(*Cycle, []Site) {}

// Observers fans notifications out to several observers in order.
type Observers []Observer

func (o Observers) SiteStarted(c *Cycle, s Site) {
	for _, ob := range o {
		ob.SiteStarted(c, s)
	}
}

func (o Observers) SiteFinished(c *Cycle, r SiteResult) {
	for _, ob := range o {
		ob.SiteFinished(c, r)
	}
}

func (o Observers) CycleFinished(c *Cycle, r *Result) {
	for _, ob := range o {
		ob.CycleFinished(c, r)
	}
}

func (o Observers) PermissionRequired(c *Cycle, s []Site) {
	for _, ob := range o {
		ob.PermissionRequired(c, s)
	}
}

// ErrPermissionRequired is wrapped by the PermissionDenied error Run returns
// when the user has not granted access to all sites.
var ErrPermissionRequired = errors.New("host permission required for configured sites")

// Aggregator runs fetch cycles across all configured sites.
type Aggregator struct {
	factory     FetcherFactory
	permissions PermissionChecker
	observer    Observer
}

// NewAggregator creates an Aggregator. permissions and observer may be nil.
func NewAggregator(factory FetcherFactory, permissions PermissionChecker, observer Observer) *Aggregator {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Aggregator{
		factory:     factory,
		permissions: permissions,
		observer:    observer,
	}
}

// Run fetches every site concurrently and categorizes the union of their
// changes. A failing site is recorded in the result and never cancels the
// others. The only errors returned are a missing permission and a failed
// permission check.
func (a *Aggregator) Run(ctx context.Context, cycle *Cycle, sites []Site) (*Result, error) {
	log := cycle.Log

	if a.permissions != nil {
		granted, err := a.permissions.CheckGranted(ctx, sites)
		if err != nil {
			return nil, fmt.Errorf("checking permissions: %w", err)
		}
		if !granted {
			log.Warnw("permission required", "sites", len(sites))
			a.observer.PermissionRequired(cycle, sites)
			return nil, apperrors.PermissionDenied(ErrPermissionRequired)
		}
	}

	result := &Result{
		CycleID:   cycle.ID,
		StartedAt: cycle.StartedAt.UnixMilli(),
		Sites:     make([]SiteResult, len(sites)),
	}

	// mu serializes result updates and observer notifications.
	var mu sync.Mutex
	finish := func(i int, res SiteResult) {
		mu.Lock()
		defer mu.Unlock()
		result.Sites[i] = res
		a.observer.SiteFinished(cycle, res)
	}

	mu.Lock()
	for i, site := range sites {
		result.Sites[i] = SiteResult{Site: site, Status: SiteLoading}
		a.observer.SiteStarted(cycle, site)
	}
	mu.Unlock()

	var wg sync.WaitGroup
	for i, site := range sites {
		fetcher, err := a.factory(cycle, site)
		if err != nil {
			log.Warnw("site misconfigured", "site", site.Label, "type", site.Type, "error", err)
			finish(i, failedSite(site, SiteMisconfigured, err, 0))
			continue
		}

		wg.Add(1)
		go func(i int, site Site, f Fetcher) {
			defer wg.Done()

			start := cycle.Now()
			changes, err := f.Fetch(ctx)
			elapsed := cycle.Now().Sub(start).Milliseconds()

			if err != nil {
				log.Warnw("site failed", "site", site.Label, "code", apperrors.CodeOf(err), "error", err)
				finish(i, failedSite(site, SiteFailure, err, elapsed))
				return
			}
			if changes == nil {
				changes = []Change{}
			}
			log.Infow("site fetched", "site", site.Label, "changes", len(changes), "duration_ms", elapsed)
			finish(i, SiteResult{
				Site:       site,
				Status:     SiteSuccess,
				Changes:    changes,
				DurationMs: elapsed,
			})
		}(i, site, fetcher)
	}
	wg.Wait()

	var all []Change
	for _, s := range result.Sites {
		if s.Status == SiteSuccess {
			all = append(all, s.Changes...)
		}
	}
	result.Dashboard = Categorize(all, cycle.Now())
	result.TotalMs = cycle.Now().Sub(cycle.StartedAt).Milliseconds()

	log.Infow("cycle finished",
		"sites", len(sites),
		"failed", result.Failed(),
		"changes", result.Dashboard.Total(),
		"duration_ms", result.TotalMs,
	)
	a.observer.CycleFinished(cycle, result)
	return result, nil
}

func failedSite(site Site, status SiteStatus, err error, elapsed int64) SiteResult {
	return SiteResult{
		Site:       site,
		Status:     status,
		Error:      err.Error(),
		ErrorCode:  string(apperrors.CodeOf(err)),
		DurationMs: elapsed,
	}
}
