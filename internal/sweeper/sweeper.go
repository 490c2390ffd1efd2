// Package sweeper runs an optional periodic expiry pass. The eager sweep on
// every validation call is the primary cleanup mechanism; this ticker only
// covers deployments where an idle classroom would otherwise sit in the
// store until the next validation arrives.
package sweeper

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/speechrelay/api/internal/middleware"
	"github.com/speechrelay/api/internal/store"
)

type Sweeper struct {
	store    *store.SessionStore
	expiry   time.Duration
	interval time.Duration
	log      *zap.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}

	lastRun     time.Time
	lastRemoved int64
}

func New(st *store.SessionStore, expiry, interval time.Duration, log *zap.Logger) *Sweeper {
	return &Sweeper{
		store:    st,
		expiry:   expiry,
		interval: interval,
		log:      log,
		stopChan: make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.log.Info("session sweeper starting", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("session sweeper stopping: context cancelled")
			return
		case <-s.stopChan:
			s.log.Info("session sweeper stopping: stop signal")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		close(s.stopChan)
		s.running = false
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	removed, err := s.store.SweepExpired(ctx, s.expiry)
	if err != nil {
		s.log.Error("periodic sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		middleware.RecordSessionsSwept(removed)
		s.log.Info("periodic sweep removed sessions", zap.Int64("removed", removed))
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastRemoved = removed
	s.mu.Unlock()
}

// GetStatus reports the sweeper state for the status endpoint.
func (s *Sweeper) GetStatus() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]interface{}{
		"running":      s.running,
		"interval":     s.interval.String(),
		"expiry":       s.expiry.String(),
		"last_run":     s.lastRun,
		"last_removed": s.lastRemoved,
	}
}
