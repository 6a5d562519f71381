package review

import "strings"

// SiteType selects the backend implementation for a site.
type SiteType string

const (
	SiteTypeGerrit   SiteType = "gerrit"
	SiteTypeRietveld SiteType = "rietveld"
	SiteTypeDemo     SiteType = "demo"
)

// KnownSiteTypes lists every site type the backend factory understands.
var KnownSiteTypes = []SiteType{SiteTypeGerrit, SiteTypeRietveld, SiteTypeDemo}

// Site is one configured review server.
type Site struct {
	Label string   `json:"label" toml:"label"`
	URL   string   `json:"url" toml:"url"`
	Type  SiteType `json:"type" toml:"type"`
}

// Normalize returns the site with surrounding whitespace and trailing
// slashes removed from its fields.
func (s Site) Normalize() Site {
	s.Label = strings.TrimSpace(s.Label)
	s.URL = strings.TrimRight(strings.TrimSpace(s.URL), "/")
	s.Type = SiteType(strings.ToLower(strings.TrimSpace(string(s.Type))))
	return s
}

// Status is the derived review state of a change.
type Status string

const (
	// StatusUnknown is any server state not mapped below.
	StatusUnknown Status = "Unknown"
	// StatusAbandoned means the change was abandoned.
	StatusAbandoned Status = "Abandoned"
	// StatusPending means the change is uploaded but nobody reviews it yet.
	StatusPending Status = "Pending"
	// StatusReviewing means the change is under review.
	StatusReviewing Status = "Reviewing"
	// StatusApproved means the change may be submitted.
	StatusApproved Status = "Approved"
	// StatusSubmitted means the change landed in the repository.
	StatusSubmitted Status = "Submitted"
)

// Change is the normalized review item produced by every backend.
type Change struct {
	Owned      bool   `json:"owned"`
	Reviewing  bool   `json:"reviewing"`
	Subject    string `json:"subject"`
	URL        string `json:"url"`
	Status     Status `json:"status"`
	Repository string `json:"repository"`
	OwnerName  string `json:"ownerName"`
	// Updated is milliseconds since the Unix epoch, UTC.
	Updated int64 `json:"updated"`
}

// Identity is the current user's address on one server. It is recomputed
// every cycle and never persisted.
type Identity string

// Category is a display bucket.
type Category string

const (
	CategoryPending   Category = "pending"
	CategoryOutgoing  Category = "outgoing"
	CategorySubmitted Category = "submitted"
	CategoryIncoming  Category = "incoming"
	CategoryCCed      Category = "cced"
)

// Categories lists the display buckets in presentation order.
var Categories = []Category{
	CategoryIncoming,
	CategoryOutgoing,
	CategoryCCed,
	CategoryPending,
	CategorySubmitted,
}

// Caption returns the heading shown above the category.
func (c Category) Caption() string {
	switch c {
	case CategoryIncoming:
		return "Incoming reviews"
	case CategoryOutgoing:
		return "Outgoing reviews"
	case CategoryCCed:
		return "CC'ed reviews"
	case CategoryPending:
		return "Pending reviews"
	case CategorySubmitted:
		return "Recently submitted"
	default:
		return string(c)
	}
}

// Dashboard holds the categorized changes of one cycle.
type Dashboard struct {
	Pending   []Change `json:"pending"`
	Outgoing  []Change `json:"outgoing"`
	Submitted []Change `json:"submitted"`
	Incoming  []Change `json:"incoming"`
	CCed      []Change `json:"cced"`
}

// Get returns the changes of the given category.
func (d *Dashboard) Get(c Category) []Change {
	switch c {
	case CategoryPending:
		return d.Pending
	case CategoryOutgoing:
		return d.Outgoing
	case CategorySubmitted:
		return d.Submitted
	case CategoryIncoming:
		return d.Incoming
	case CategoryCCed:
		return d.CCed
	default:
		return nil
	}
}

func (d *Dashboard) slot(c Category) *[]Change {
	switch c {
	case CategoryPending:
		return &d.Pending
	case CategoryOutgoing:
		return &d.Outgoing
	case CategorySubmitted:
		return &d.Submitted
	case CategoryIncoming:
		return &d.Incoming
	case CategoryCCed:
		return &d.CCed
	default:
		return nil
	}
}

// Total returns the number of changes across all categories.
func (d *Dashboard) Total() int {
	return len(d.Pending) + len(d.Outgoing) + len(d.Submitted) + len(d.Incoming) + len(d.CCed)
}

// SiteStatus is the per-site progress flag shown next to each site.
type SiteStatus string

const (
	SiteLoading       SiteStatus = "loading"
	SiteSuccess       SiteStatus = "success"
	SiteFailure       SiteStatus = "failure"
	SiteMisconfigured SiteStatus = "misconfigured"
)

// SiteResult is the outcome of fetching one site.
type SiteResult struct {
	Site    Site       `json:"site"`
	Status  SiteStatus `json:"status"`
	Changes []Change   `json:"changes,omitempty"`
	Error   string     `json:"error,omitempty"`

	// ErrorCode is the apperrors code of a failure, if classified.
	ErrorCode  string `json:"errorCode,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// Result is the output of one complete fetch cycle.
type Result struct {
	CycleID   string       `json:"cycleId"`
	StartedAt int64        `json:"startedAt"`
	Sites     []SiteResult `json:"sites"`
	Dashboard Dashboard    `json:"dashboard"`
	TotalMs   int64        `json:"totalMs"`
}

// Failed returns the number of sites that did not succeed.
func (r *Result) Failed() int {
	var n int
	for _, s := range r.Sites {
		if s.Status != SiteSuccess {
			n++
		}
	}
	return n
}
