package registry

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SiteNotifier receives change notifications for sites whose presence view
// must be recomputed.
type SiteNotifier interface {
	NotifySiteChanged(siteID string)
}

// ExpiryScheduler periodically purges stale registry entries and notifies
// affected sites. A failed tick is logged and skipped; the next tick retries.
type ExpiryScheduler struct {
	registry *Registry
	notifier SiteNotifier
	interval time.Duration
	now      func() time.Time
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewExpiryScheduler creates an ExpiryScheduler.
func NewExpiryScheduler(registry *Registry, notifier SiteNotifier, interval time.Duration) *ExpiryScheduler {
	return &ExpiryScheduler{
		registry: registry,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (s *ExpiryScheduler) Start() {
	logrus.Debug("Starting ExpiryScheduler...")
	s.wg.Add(1)
	go s.runLoop()
}

// Stop stops the sweep loop, respecting the context for shutdown timeout.
func (s *ExpiryScheduler) Stop(ctx context.Context) {
	close(s.stopChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Info("ExpiryScheduler stopped gracefully.")
	case <-ctx.Done():
		logrus.Warn("ExpiryScheduler stop timed out.")
	}
}

func (s *ExpiryScheduler) runLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopChan:
			return
		}
	}
}

// sweep runs one purge pass. A panic in a tick must never take down the
// service, so it is recovered and logged.
func (s *ExpiryScheduler) sweep() {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("ExpiryScheduler: sweep failed, skipping tick: %v", r)
		}
	}()

	removed := s.registry.PurgeStale(s.now())
	if len(removed) == 0 {
		return
	}

	sites := make(map[string]struct{}, len(removed))
	for _, key := range removed {
		sites[key.SiteID] = struct{}{}
	}
	for siteID := range sites {
		s.notifier.NotifySiteChanged(siteID)
	}

	logrus.WithFields(logrus.Fields{
		"removed": len(removed),
		"sites":   len(sites),
	}).Debug("ExpiryScheduler: purged stale presence entries")
}
