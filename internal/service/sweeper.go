package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper periodically destroys documents whose expiry has passed. It runs
// in-process as a single goroutine; SweepExpired itself is idempotent, so
// overlapping runs (or other replicas sweeping concurrently) are harmless.
type Sweeper struct {
	docs     DocumentService
	interval time.Duration
	log      *logrus.Entry
}

// NewSweeper constructs a Sweeper running at the given interval.
func NewSweeper(docs DocumentService, interval time.Duration) *Sweeper {
	return &Sweeper{
		docs:     docs,
		interval: interval,
		log:      logrus.WithField("component", "sweeper"),
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	tkr := time.NewTicker(s.interval)
	defer tkr.Stop()

	s.log.WithField("interval", s.interval.String()).Info("sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopping")
			return
		case <-tkr.C:
			count, err := s.docs.SweepExpired(ctx)
			if err != nil {
				s.log.WithError(err).Error("sweep failed")
				continue
			}
			if count > 0 {
				s.log.WithField("count", count).Info("sweep removed expired documents")
			}
		}
	}
}
