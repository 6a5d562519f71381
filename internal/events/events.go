// Package events publishes fetch-cycle progress so other tools can follow a
// dashboard refresh as it happens.
package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/reviewdeck/internal/review"
)

// Event topic constants
const (
	TopicSiteStarted        = "reviewdeck.site.started"
	TopicSiteFinished       = "reviewdeck.site.finished"
	TopicCycleFinished      = "reviewdeck.cycle.finished"
	TopicPermissionRequired = "reviewdeck.permission.required"
)

// Event types

type SiteStarted struct {
	CycleID string      `json:"cycle_id"`
	Site    review.Site `json:"site"`
}

type SiteFinished struct {
	CycleID    string            `json:"cycle_id"`
	Site       review.Site       `json:"site"`
	Status     review.SiteStatus `json:"status"`
	Changes    int               `json:"changes"`
	Error      string            `json:"error,omitempty"`
	ErrorCode  string            `json:"error_code,omitempty"`
	DurationMs int64             `json:"duration_ms"`
}

type CycleFinished struct {
	CycleID string                  `json:"cycle_id"`
	Sites   int                     `json:"sites"`
	Failed  int                     `json:"failed"`
	Counts  map[review.Category]int `json:"counts"`
	TotalMs int64                   `json:"total_ms"`
}

type PermissionRequired struct {
	CycleID string        `json:"cycle_id"`
	Sites   []review.Site `json:"sites"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// publishTimeout bounds a single publish so a slow broker cannot stall a cycle.
const publishTimeout = 2 * time.Second

// Observer adapts a Publisher to review.Observer. Publish failures are
// logged and otherwise ignored.
type Observer struct {
	pub Publisher
	log *zap.SugaredLogger
}

var _ review.Observer = (*Observer)(nil)

// NewObserver creates an Observer publishing through pub.
func NewObserver(pub Publisher, log *zap.SugaredLogger) *Observer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Observer{pub: pub, log: log}
}

func (o *Observer) publish(topic string, event any) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := o.pub.Publish(ctx, topic, event); err != nil {
		o.log.Warnw("publishing event", "topic", topic, "error", err)
	}
}

func (o *Observer) SiteStarted(c *review.Cycle, site review.Site) {
	o.publish(TopicSiteStarted, SiteStarted{CycleID: c.ID, Site: site})
}

func (o *Observer) SiteFinished(c *review.Cycle, res review.SiteResult) {
	o.publish(TopicSiteFinished, SiteFinished{
		CycleID:    c.ID,
		Site:       res.Site,
		Status:     res.Status,
		Changes:    len(res.Changes),
		Error:      res.Error,
		ErrorCode:  res.ErrorCode,
		DurationMs: res.DurationMs,
	})
}

func (o *Observer) CycleFinished(c *review.Cycle, res *review.Result) {
	counts := make(map[review.Category]int, len(review.Categories))
	for _, cat := range review.Categories {
		counts[cat] = len(res.Dashboard.Get(cat))
	}
	o.publish(TopicCycleFinished, CycleFinished{
		CycleID: c.ID,
		Sites:   len(res.Sites),
		Failed:  res.Failed(),
		Counts:  counts,
		TotalMs: res.TotalMs,
	})
}

func (o *Observer) PermissionRequired(c *review.Cycle, sites []review.Site) {
	o.publish(TopicPermissionRequired, PermissionRequired{CycleID: c.ID, Sites: sites})
}
