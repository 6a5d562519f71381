package review

import "sync"

// Snapshot is the dashboard state at one point in time.
type Snapshot struct {
	CycleID            string       `json:"cycleId,omitempty"`
	Running            bool         `json:"running"`
	PermissionRequired bool         `json:"permissionRequired"`
	Sites              []SiteResult `json:"sites"`
	Dashboard          *Dashboard   `json:"dashboard,omitempty"`
	UpdatedAt          int64        `json:"updatedAt,omitempty"`
}

// Tracker is an Observer that keeps the latest state for display. Starting
// a new cycle marks every site loading and clears its changes; the last
// complete dashboard stays visible until the new one is ready.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Sites: []SiteResult{}}}
}

func (t *Tracker) SiteStarted(c *Cycle, site Site) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snap.CycleID != c.ID {
		t.snap.CycleID = c.ID
		t.snap.Running = true
		t.snap.PermissionRequired = false
		t.snap.Sites = []SiteResult{}
	}
	t.snap.Sites = append(t.snap.Sites, SiteResult{Site: site, Status: SiteLoading})
}

func (t *Tracker) SiteFinished(c *Cycle, res SiteResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snap.CycleID != c.ID {
		return
	}
	for i := range t.snap.Sites {
		if t.snap.Sites[i].Site == res.Site {
			t.snap.Sites[i] = res
			return
		}
	}
}

func (t *Tracker) CycleFinished(c *Cycle, res *Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.CycleID = c.ID
	t.snap.Running = false
	t.snap.Sites = append([]SiteResult(nil), res.Sites...)
	d := res.Dashboard
	t.snap.Dashboard = &d
	t.snap.UpdatedAt = c.Now().UnixMilli()
}

func (t *Tracker) PermissionRequired(c *Cycle, _ []Site) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.CycleID = c.ID
	t.snap.Running = false
	t.snap.PermissionRequired = true
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.snap
	s.Sites = append([]SiteResult(nil), t.snap.Sites...)
	if s.Sites == nil {
		s.Sites = []SiteResult{}
	}
	return s
}
