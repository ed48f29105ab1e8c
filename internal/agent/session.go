package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"presence-hub/internal/models"

	"github.com/sirupsen/logrus"
)

// SessionState is the connection state of a sync session.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionLive
	SessionOffline
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionLive:
		return "live"
	case SessionOffline:
		return "offline"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	reconnectBaseDelay = 500 * time.Millisecond
	reconnectMaxDelay  = 30 * time.Second
)

// Session keeps a local read model of one site's presence view in sync with
// the server. Every received view fully replaces the previous one; views are
// delivered to the callbacks on a single dispatcher goroutine, so the UI
// never sees concurrent updates.
type Session struct {
	client  *Client
	onView  func(siteID string, view []models.Presence)
	onState func(SessionState)

	mu         sync.Mutex
	state      SessionState
	siteCancel context.CancelFunc
	streamWG   sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	views      chan siteView
	dispatchWG sync.WaitGroup
}

type siteView struct {
	siteID string
	view   []models.Presence
}

// NewSession creates a session. onState may be nil.
func NewSession(client *Client, onView func(siteID string, view []models.Presence), onState func(SessionState)) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		client:  client,
		onView:  onView,
		onState: onState,
		state:   SessionIdle,
		ctx:     ctx,
		cancel:  cancel,
		views:   make(chan siteView, 16),
	}

	s.dispatchWG.Add(1)
	go s.dispatchLoop()
	return s
}

// State returns the current connection state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SelectSite switches the session to a site, replacing any previous
// subscription.
func (s *Session) SelectSite(siteID string) {
	s.mu.Lock()
	if s.state == SessionClosed {
		s.mu.Unlock()
		return
	}
	if s.siteCancel != nil {
		s.siteCancel()
	}
	siteCtx, cancel := context.WithCancel(s.ctx)
	s.siteCancel = cancel
	s.mu.Unlock()

	s.streamWG.Add(1)
	go s.run(siteCtx, siteID)
}

// Hello signals presence at a site. The client's bounded retry applies; on
// final failure the session flips to Offline rather than looping.
func (s *Session) Hello(ctx context.Context, siteID string) error {
	if err := s.client.Hello(ctx, siteID); err != nil {
		s.setState(SessionOffline)
		return err
	}
	return nil
}

// Close terminates the session and all in-flight work.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == SessionClosed {
		s.mu.Unlock()
		return
	}
	s.state = SessionClosed
	s.mu.Unlock()

	s.cancel()
	s.streamWG.Wait()
	close(s.views)
	s.dispatchWG.Wait()
}

func (s *Session) dispatchLoop() {
	defer s.dispatchWG.Done()
	for update := range s.views {
		s.onView(update.siteID, update.view)
	}
}

func (s *Session) deliver(ctx context.Context, siteID string, view []models.Presence) {
	select {
	case s.views <- siteView{siteID: siteID, view: view}:
	case <-ctx.Done():
	}
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	if s.state == SessionClosed || s.state == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.mu.Unlock()

	if s.onState != nil {
		s.onState(state)
	}
}

// run maintains the SSE subscription for one site until the context ends.
// Stream failures reconnect with exponential backoff; after a reconnect one
// explicit pull reconciles anything missed while disconnected.
func (s *Session) run(ctx context.Context, siteID string) {
	defer s.streamWG.Done()

	delay := reconnectBaseDelay
	reconnecting := false

	for {
		if ctx.Err() != nil {
			return
		}

		resp, err := s.client.openStream(ctx, siteID)
		if err != nil {
			s.setState(SessionOffline)
			logrus.WithError(err).WithField("site", siteID).Debugf("Session: stream connect failed, retrying in %v", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
			delay *= 2
			if delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			reconnecting = true
			continue
		}

		delay = reconnectBaseDelay
		s.setState(SessionLive)

		if reconnecting {
			// Events sent while disconnected are gone; one pull closes
			// the gap.
			if view, err := s.client.GetPresence(ctx, siteID); err == nil {
				s.deliver(ctx, siteID, view)
			} else {
				logrus.WithError(err).WithField("site", siteID).Warn("Session: reconcile pull failed")
			}
		}

		err = s.consumeStream(ctx, siteID, resp.Body)
		resp.Body.Close()
		if ctx.Err() != nil {
			return
		}
		logrus.WithError(err).WithField("site", siteID).Debug("Session: stream ended, reconnecting")
		s.setState(SessionOffline)
		reconnecting = true

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

// consumeStream reads SSE events until the stream breaks. Each data payload
// is a full presence view.
func (s *Session) consumeStream(ctx context.Context, siteID string, body interface{ Read([]byte) (int, error) }) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if data.Len() > 0 {
				var view []models.Presence
				if err := json.Unmarshal([]byte(data.String()), &view); err != nil {
					logrus.WithError(err).Warn("Session: discarding malformed event")
				} else {
					s.deliver(ctx, siteID, view)
				}
				data.Reset()
			}
			continue
		}

		if payload, ok := strings.CutPrefix(line, "data:"); ok {
			data.WriteString(strings.TrimPrefix(payload, " "))
		}
	}
	return scanner.Err()
}
