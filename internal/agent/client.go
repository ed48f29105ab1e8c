package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"presence-hub/internal/httpclient"
	"presence-hub/internal/models"

	"github.com/sirupsen/logrus"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxRequestAttempts    = 3
	retryBaseDelay        = 500 * time.Millisecond
)

// Client talks to the presence hub API on behalf of one user.
type Client struct {
	baseURL     string
	userID      string
	displayName string
	http        *http.Client
	// streamHTTP has no overall timeout; SSE connections are long-lived.
	streamHTTP *http.Client
}

// NewClient creates an API client. The identity headers carry the
// pre-validated user; token verification happens upstream of this client.
func NewClient(manager *httpclient.HTTPClientManager, baseURL, userID, displayName string) *Client {
	return &Client{
		baseURL:     baseURL,
		userID:      userID,
		displayName: displayName,
		http: manager.GetClient(&httpclient.Config{
			ConnectTimeout:      5 * time.Second,
			RequestTimeout:      defaultRequestTimeout,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
		}),
		streamHTTP: manager.GetClient(&httpclient.Config{
			ConnectTimeout:      5 * time.Second,
			RequestTimeout:      0,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			DisableCompression:  true,
		}),
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-User-Id", c.userID)
	req.Header.Set("X-User-Name", c.displayName)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// doWithRetry runs the request up to maxRequestAttempts times with
// exponential backoff. Only transport errors and 5xx responses retry;
// client errors are final.
func (c *Client) doWithRetry(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	delay := retryBaseDelay

	for attempt := 1; attempt <= maxRequestAttempts; attempt++ {
		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if err == nil {
			lastErr = fmt.Errorf("server error: %s", resp.Status)
			resp.Body.Close()
		} else {
			lastErr = err
		}

		if attempt == maxRequestAttempts {
			break
		}
		logrus.WithError(lastErr).Debugf("Client: request failed, retrying in %v", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay *= 2
	}

	return nil, lastErr
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("request failed: %s: %s", resp.Status, bytes.TrimSpace(body))
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return json.Unmarshal(env.Data, out)
}

// GetSites fetches all known sites.
func (c *Client) GetSites(ctx context.Context) ([]models.Site, error) {
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, "/api/sites", nil)
	})
	if err != nil {
		return nil, err
	}

	var sites []models.Site
	if err := decodeEnvelope(resp, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

// GetPresence fetches the current presence view for a site.
func (c *Client) GetPresence(ctx context.Context, siteID string) ([]models.Presence, error) {
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, "/api/sites/"+siteID+"/presence", nil)
	})
	if err != nil {
		return nil, err
	}

	var view []models.Presence
	if err := decodeEnvelope(resp, &view); err != nil {
		return nil, err
	}
	return view, nil
}

// Hello signals presence at a site.
func (c *Client) Hello(ctx context.Context, siteID string) error {
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, "/api/sites/"+siteID+"/hello", nil)
	})
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, nil)
}

// Announce replaces the caller's announcements for a site.
func (c *Client) Announce(ctx context.Context, siteID string, announcements []models.AnnouncementDTO) error {
	payload, err := json.Marshal(map[string]any{"announcements": announcements})
	if err != nil {
		return err
	}

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPut, "/api/sites/"+siteID+"/announce", bytes.NewReader(payload))
	})
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, nil)
}

// openStream opens the SSE presence stream for a site. The caller owns the
// response body.
func (c *Client) openStream(ctx context.Context, siteID string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/sites/"+siteID+"/presence/stream", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamHTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream request failed: %s", resp.Status)
	}
	return resp, nil
}
