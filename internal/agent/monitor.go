package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PermissionState is the location permission state of the monitor.
type PermissionState int

const (
	PermissionUnknown PermissionState = iota
	RequestingPermission
	PermissionGranted
	PermissionDenied
	Monitoring
)

func (s PermissionState) String() string {
	switch s {
	case PermissionUnknown:
		return "unknown"
	case RequestingPermission:
		return "requesting"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	case Monitoring:
		return "monitoring"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	defaultPollInterval  = 5 * time.Second
	defaultHelloCooldown = 60 * time.Second
)

// Helloer issues presence signals for entered sites.
type Helloer interface {
	Hello(ctx context.Context, siteID string) error
}

// LocationMonitor watches the device position against site geofences and
// issues hellos on entry. Permission handling is an explicit state machine;
// an invalid transition is an error, never silently coerced.
type LocationMonitor struct {
	locator  Locator
	helloer  Helloer
	interval time.Duration
	cooldown time.Duration
	now      func() time.Time

	mu        sync.Mutex
	state     PermissionState
	circles   []GeoCircle
	inside    map[string]bool
	lastHello map[string]time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLocationMonitor creates a monitor in the PermissionUnknown state.
func NewLocationMonitor(locator Locator, helloer Helloer) *LocationMonitor {
	return &LocationMonitor{
		locator:   locator,
		helloer:   helloer,
		interval:  defaultPollInterval,
		cooldown:  defaultHelloCooldown,
		now:       time.Now,
		state:     PermissionUnknown,
		inside:    make(map[string]bool),
		lastHello: make(map[string]time.Time),
	}
}

// State returns the current permission state.
func (m *LocationMonitor) State() PermissionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetGeofences replaces the watched geofences. Safe while monitoring; a
// removed site's entered flag is dropped so re-adding it signals entry again.
func (m *LocationMonitor) SetGeofences(circles []GeoCircle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	known := make(map[string]bool, len(circles))
	for _, c := range circles {
		known[c.SiteID] = true
	}
	for siteID := range m.inside {
		if !known[siteID] {
			delete(m.inside, siteID)
		}
	}
	m.circles = append([]GeoCircle(nil), circles...)
}

// RequestPermission moves to RequestingPermission. Valid from
// PermissionUnknown, and from PermissionDenied only as an explicit user
// re-trigger.
func (m *LocationMonitor) RequestPermission() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case PermissionUnknown, PermissionDenied:
		m.state = RequestingPermission
		return nil
	default:
		return fmt.Errorf("cannot request permission from state %s", m.state)
	}
}

// PermissionResult records the outcome of a permission request.
func (m *LocationMonitor) PermissionResult(granted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != RequestingPermission {
		return fmt.Errorf("no permission request pending in state %s", m.state)
	}
	if granted {
		m.state = PermissionGranted
	} else {
		m.state = PermissionDenied
	}
	return nil
}

// Start begins the polling loop. Valid only from PermissionGranted.
func (m *LocationMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state != PermissionGranted {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("cannot start monitoring from state %s", state)
	}
	m.state = Monitoring
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go m.runLoop(runCtx)
	return nil
}

// Stop halts the polling loop and returns the state to PermissionGranted.
func (m *LocationMonitor) Stop() {
	m.mu.Lock()
	if m.state != Monitoring {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	m.mu.Lock()
	m.state = PermissionGranted
	m.mu.Unlock()
}

func (m *LocationMonitor) runLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evaluate(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// evaluate runs one geofence pass. A missing location fix skips the tick;
// crossing flags only change on a definite answer.
func (m *LocationMonitor) evaluate(ctx context.Context) {
	position, err := m.locator.CurrentLocation(ctx)
	if err != nil {
		logrus.WithError(err).Debug("LocationMonitor: no location fix, skipping tick")
		return
	}

	m.mu.Lock()
	circles := append([]GeoCircle(nil), m.circles...)
	m.mu.Unlock()

	for _, circle := range circles {
		nowInside := circle.Contains(position)

		m.mu.Lock()
		wasInside := m.inside[circle.SiteID]
		m.inside[circle.SiteID] = nowInside
		m.mu.Unlock()

		switch {
		case nowInside && !wasInside:
			m.onEntered(ctx, circle.SiteID)
		case !nowInside && wasInside:
			logrus.WithField("site", circle.SiteID).Info("LocationMonitor: exited site geofence")
		case nowInside:
			// Still inside. Re-hello once the cooldown lapses so the
			// server-side TTL never expires while we are on site.
			m.onEntered(ctx, circle.SiteID)
		}
	}
}

func (m *LocationMonitor) onEntered(ctx context.Context, siteID string) {
	now := m.now()

	m.mu.Lock()
	last, ok := m.lastHello[siteID]
	if ok && now.Sub(last) < m.cooldown {
		m.mu.Unlock()
		return
	}
	m.lastHello[siteID] = now
	m.mu.Unlock()

	if err := m.helloer.Hello(ctx, siteID); err != nil {
		logrus.WithError(err).WithField("site", siteID).Warn("LocationMonitor: hello failed")
		// Allow a retry before the cooldown lapses.
		m.mu.Lock()
		delete(m.lastHello, siteID)
		m.mu.Unlock()
		return
	}

	logrus.WithField("site", siteID).Info("LocationMonitor: hello sent")
}
