// Package broadcast fans presence view updates out to subscribed clients.
// Change notifications travel through the shared store's pub/sub fabric, so
// with a redis store every node sees mutations made on any node.
package broadcast

import (
	"context"
	"sync"
	"time"

	"presence-hub/internal/models"
	"presence-hub/internal/services"
	"presence-hub/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// dirtySiteChannel is the pub/sub channel carrying site ids whose presence
// view must be recomputed.
const dirtySiteChannel = "presence:site:dirty"

// Subscriber receives recomputed presence views for one site, assembled for
// one requesting user.
type Subscriber struct {
	ID    string
	Query services.PresenceQuery

	broadcaster *Broadcaster
	updates     chan []models.Presence
	closeOnce   sync.Once
}

// Updates returns the stream of recomputed views. It is closed when the
// subscriber is removed, whether by Close or by falling behind.
func (s *Subscriber) Updates() <-chan []models.Presence {
	return s.updates
}

// Close removes the subscriber. Idempotent.
func (s *Subscriber) Close() {
	s.broadcaster.remove(s)
}

// Broadcaster maintains per-site subscriber sets and recomputes views when a
// site is marked dirty. Producers never block: a subscriber whose buffer is
// full is dropped and its channel closed.
type Broadcaster struct {
	store    store.Store
	presence *services.PresenceService
	now      func() time.Time
	buffer   int

	mu          sync.RWMutex
	subscribers map[string]map[string]*Subscriber

	subscription store.Subscription
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

// NewBroadcaster creates a Broadcaster. bufferSize is the per-subscriber
// channel capacity.
func NewBroadcaster(st store.Store, presence *services.PresenceService, bufferSize int) *Broadcaster {
	return &Broadcaster{
		store:       st,
		presence:    presence,
		now:         time.Now,
		buffer:      bufferSize,
		subscribers: make(map[string]map[string]*Subscriber),
		stopChan:    make(chan struct{}),
	}
}

// Start subscribes to the dirty-site channel and begins the consume loop.
func (b *Broadcaster) Start() error {
	logrus.Debug("Starting Broadcaster...")
	sub, err := b.store.Subscribe(dirtySiteChannel)
	if err != nil {
		return err
	}
	b.subscription = sub

	b.wg.Add(1)
	go b.consumeLoop()
	return nil
}

// Stop shuts the consume loop down, respecting the context for timeout.
func (b *Broadcaster) Stop(ctx context.Context) {
	close(b.stopChan)
	if b.subscription != nil {
		b.subscription.Close()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Info("Broadcaster stopped gracefully.")
	case <-ctx.Done():
		logrus.Warn("Broadcaster stop timed out.")
	}

	b.mu.Lock()
	for _, siteSubs := range b.subscribers {
		for _, sub := range siteSubs {
			sub.closeOnce.Do(func() { close(sub.updates) })
		}
	}
	b.subscribers = make(map[string]map[string]*Subscriber)
	b.mu.Unlock()
}

// NotifySiteChanged marks a site's presence view as dirty. Publish failures
// are logged; a lost notification is reconciled by the next client pull.
func (b *Broadcaster) NotifySiteChanged(siteID string) {
	if err := b.store.Publish(dirtySiteChannel, []byte(siteID)); err != nil {
		logrus.WithFields(logrus.Fields{
			"site":  siteID,
			"error": err,
		}).Error("Broadcaster: failed to publish site change")
	}
}

// Subscribe registers a new subscriber for the query's site.
func (b *Broadcaster) Subscribe(query services.PresenceQuery) *Subscriber {
	sub := &Subscriber{
		ID:          uuid.NewString(),
		Query:       query,
		broadcaster: b,
		updates:     make(chan []models.Presence, b.buffer),
	}

	b.mu.Lock()
	siteSubs, ok := b.subscribers[query.SiteID]
	if !ok {
		siteSubs = make(map[string]*Subscriber)
		b.subscribers[query.SiteID] = siteSubs
	}
	siteSubs[sub.ID] = sub
	b.mu.Unlock()

	return sub
}

// SubscribedSites returns the sites that currently have subscribers.
func (b *Broadcaster) SubscribedSites() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sites := make([]string, 0, len(b.subscribers))
	for siteID := range b.subscribers {
		sites = append(sites, siteID)
	}
	return sites
}

// SubscriberCount returns the number of subscribers for a site.
func (b *Broadcaster) SubscriberCount(siteID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[siteID])
}

func (b *Broadcaster) remove(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	siteSubs := b.subscribers[sub.Query.SiteID]
	if _, ok := siteSubs[sub.ID]; ok {
		delete(siteSubs, sub.ID)
		if len(siteSubs) == 0 {
			delete(b.subscribers, sub.Query.SiteID)
		}
	}

	// The channel is closed under the same lock that guards fanOut's sends,
	// so a send can never hit a closed channel.
	sub.closeOnce.Do(func() { close(sub.updates) })
}

func (b *Broadcaster) consumeLoop() {
	defer b.wg.Done()

	for {
		select {
		case msg, ok := <-b.subscription.Channel():
			if !ok {
				return
			}
			b.fanOut(string(msg.Payload))
		case <-b.stopChan:
			return
		}
	}
}

// fanOut recomputes the site view for every subscriber and enqueues it.
// Views are per-subscriber because is_self, is_favorite and self promotion
// depend on the requesting user.
func (b *Broadcaster) fanOut(siteID string) {
	b.mu.RLock()
	subs := make([]*Subscriber, 0, len(b.subscribers[siteID]))
	for _, sub := range b.subscribers[siteID] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	now := b.now()
	var slow []*Subscriber
	for _, sub := range subs {
		view, err := b.presence.Assemble(sub.Query, now)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"site":  siteID,
				"error": err,
			}).Error("Broadcaster: failed to assemble view, skipping update")
			continue
		}

		// The send happens under the read lock, after re-checking that the
		// subscriber is still registered. A concurrent Close takes the write
		// lock before closing the channel, so the two cannot interleave.
		b.mu.RLock()
		if b.subscribers[siteID][sub.ID] == sub {
			select {
			case sub.updates <- view:
			default:
				slow = append(slow, sub)
			}
		}
		b.mu.RUnlock()
	}

	for _, sub := range slow {
		// Subscriber is not draining. Dropping it keeps every producer
		// non-blocking.
		logrus.WithFields(logrus.Fields{
			"site":       siteID,
			"subscriber": sub.ID,
		}).Warn("Broadcaster: subscriber buffer full, dropping subscriber")
		b.remove(sub)
	}
}
