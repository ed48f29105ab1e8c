package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"presence-hub/internal/httpclient"
	"presence-hub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionTestServer struct {
	*httptest.Server
	streamConnects atomic.Int32
	pulls          atomic.Int32
	helloFails     bool
}

func newSessionTestServer(t *testing.T, streamView []models.Presence) *sessionTestServer {
	t.Helper()
	s := &sessionTestServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sites/hq/presence/stream", func(w http.ResponseWriter, r *http.Request) {
		s.streamConnects.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		payload, err := json.Marshal(streamView)
		require.NoError(t, err)
		fmt.Fprintf(w, "event:presence\ndata:%s\n\n", payload)
		w.(http.Flusher).Flush()

		// Returning closes the stream, forcing the client to reconnect.
	})
	mux.HandleFunc("GET /api/sites/hq/presence", func(w http.ResponseWriter, r *http.Request) {
		s.pulls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"code":0,"message":"success","data":[{"user_id":"pulled","display_name":"Pulled","is_self":false,"currently_present":true,"is_favorite":false,"announcements":[]}]}`)
	})
	mux.HandleFunc("POST /api/sites/hq/hello", func(w http.ResponseWriter, r *http.Request) {
		if s.helloFails {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, `{"code":0,"message":"accepted"}`)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newTestClient(baseURL string) *Client {
	return NewClient(httpclient.NewHTTPClientManager(), baseURL, "viewer", "Viewer")
}

func TestSessionDeliversStreamedViews(t *testing.T) {
	view := []models.Presence{{
		UserID:           "alice",
		DisplayName:      "Alice",
		CurrentlyPresent: true,
		Announcements:    []models.AnnouncementDTO{},
	}}
	server := newSessionTestServer(t, view)

	var mu sync.Mutex
	var received [][]models.Presence
	session := NewSession(newTestClient(server.URL), func(siteID string, v []models.Presence) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "hq", siteID)
		received = append(received, v)
	}, nil)
	defer session.Close()

	session.SelectSite("hq")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received[0], 1)
	assert.Equal(t, "alice", received[0][0].UserID)
}

func TestSessionReconnectsAndReconciles(t *testing.T) {
	server := newSessionTestServer(t, []models.Presence{})

	var states []SessionState
	var mu sync.Mutex
	session := NewSession(newTestClient(server.URL),
		func(string, []models.Presence) {},
		func(state SessionState) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, state)
		})
	defer session.Close()

	session.SelectSite("hq")

	// The server drops every stream after one event; the session must keep
	// reconnecting and pull the view once per reconnect.
	require.Eventually(t, func() bool {
		return server.streamConnects.Load() >= 3
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return server.pulls.Load() >= 1
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, states, SessionLive)
	assert.Contains(t, states, SessionOffline)
}

func TestSessionHelloOfflineOnFailure(t *testing.T) {
	server := newSessionTestServer(t, nil)
	server.helloFails = true

	session := NewSession(newTestClient(server.URL), func(string, []models.Presence) {}, nil)
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := session.Hello(ctx, "hq")
	require.Error(t, err)
	assert.Equal(t, SessionOffline, session.State())
}

func TestSessionCloseStopsDelivery(t *testing.T) {
	server := newSessionTestServer(t, []models.Presence{})

	session := NewSession(newTestClient(server.URL), func(string, []models.Presence) {}, nil)
	session.SelectSite("hq")

	require.Eventually(t, func() bool {
		return server.streamConnects.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	session.Close()
	assert.Equal(t, SessionClosed, session.State())

	// Close twice is safe.
	session.Close()
}
