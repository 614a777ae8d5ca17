package remoteconfig

import (
	"context"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	minIntervalSec = 30
	maxIntervalSec = 6 * 60 * 60
)

// resolveIntervalSec clamps a checkConfigIntervalSec value to the allowed
// range, defaulting when absent or invalid.
func resolveIntervalSec(v int) int {
	if v <= 0 {
		return defaultCheckIntervalSec
	}
	if v < minIntervalSec {
		return minIntervalSec
	}
	if v > maxIntervalSec {
		return maxIntervalSec
	}
	return v
}

// Scheduler drives periodic config refreshes for the app's lifetime. It
// re-arms its timer when a published config changes the interval and fires
// an immediate refresh when the app returns to the foreground. At most one
// refresh is in flight at a time; extra triggers are dropped.
type Scheduler struct {
	store      *Store
	logger     *log.Entry
	refreshing atomic.Bool
	foreground chan struct{}
}

func NewScheduler(store *Store) *Scheduler {
	return &Scheduler{
		store:      store,
		foreground: make(chan struct{}, 1),
		logger: log.WithFields(log.Fields{
			"module": "scheduler",
		}),
	}
}

// Foreground signals that the application returned to the foreground,
// triggering an immediate refresh.
func (s *Scheduler) Foreground() {
	select {
	case s.foreground <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	updates := s.store.Subscribe()

	interval := s.interval()
	timer := time.NewTimer(interval)
	defer timer.Stop()

	s.logger.Debugf("auto-refresh armed at %s", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.safeRefresh(ctx)
			interval = s.interval()
			timer.Reset(interval)
		case <-updates:
			if next := s.interval(); next != interval {
				interval = next
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(interval)
				s.logger.Debugf("auto-refresh re-armed at %s", interval)
			}
		case <-s.foreground:
			s.logger.Debug("app foregrounded, refreshing config")
			s.safeRefresh(ctx)
		}
	}
}

// safeRefresh starts a refresh unless one is already in flight, in which
// case the trigger is dropped.
func (s *Scheduler) safeRefresh(ctx context.Context) bool {
	if !s.refreshing.CompareAndSwap(false, true) {
		s.logger.Debug("refresh already in flight, dropping trigger")
		return false
	}
	go func() {
		defer s.refreshing.Store(false)
		if err := s.store.Refresh(ctx); err != nil {
			s.logger.Warnf("scheduled refresh failed: %v", err)
		}
	}()
	return true
}

func (s *Scheduler) interval() time.Duration {
	sec := resolveIntervalSec(s.store.Config().Features.CheckConfigIntervalSec)
	return time.Duration(sec) * time.Second
}
