// Package retention deletes entries whose return lies beyond the retention
// horizon. Open-ended and still-running entries are never touched.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/logging"
	"github.com/dmitrijs2005/awaykeeper/internal/timex"
)

const DefaultHorizon = 90 * 24 * time.Hour

type Deleter interface {
	DeleteReturnedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Recorder receives the number of rows removed by a sweep.
type Recorder interface {
	Swept(n int64)
}

type Sweeper struct {
	repo     Deleter
	clock    timex.Clock
	horizon  time.Duration
	log      logging.Logger
	recorder Recorder
}

func NewSweeper(repo Deleter, clock timex.Clock, horizon time.Duration, logger logging.Logger, recorder Recorder) *Sweeper {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return &Sweeper{
		repo:     repo,
		clock:    clock,
		horizon:  horizon,
		log:      logger.With("module", "retention"),
		recorder: recorder,
	}
}

// Sweep removes entries returned before now minus the horizon.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.horizon)

	n, err := s.repo.DeleteReturnedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}

	if s.recorder != nil {
		s.recorder.Swept(n)
	}
	if n > 0 {
		s.log.Info(ctx, "expired entries removed", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
