package review

import (
	"time"

	"go.uber.org/zap"

	"github.com/dshills/reviewdeck/internal/idgen"
)

// Cycle carries the per-run context of one fetch cycle. It is passed
// explicitly to everything that takes part in the cycle.
type Cycle struct {
	ID        string
	StartedAt time.Time
	Now       func() time.Time
	Log       *zap.SugaredLogger
}

// NewCycle starts a cycle. A nil clock means time.Now; a nil logger
// discards output.
func NewCycle(clock func() time.Time, log *zap.SugaredLogger) (*Cycle, error) {
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	id, err := idgen.NewCycleID()
	if err != nil {
		return nil, err
	}
	return &Cycle{
		ID:        id,
		StartedAt: clock(),
		Now:       clock,
		Log:       log.With("cycle", id),
	}, nil
}
