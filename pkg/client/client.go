// Package client is the HTTP implementation of the session backend: it
// fetches and replaces the three documents against a running server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/astromechza/ticktrack/pkg/model"
)

// DefaultTimeout bounds every round trip so a hung request surfaces as an
// ordinary failure instead of leaving a mutation pending forever.
const DefaultTimeout = 10 * time.Second

type Client struct {
	baseUrl    *url.URL
	httpClient *http.Client
}

func New(addr string, timeout time.Duration) (*Client, error) {
	baseUrl, err := url.Parse("http://" + addr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse address: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{baseUrl: baseUrl, httpClient: &http.Client{Timeout: timeout}}, nil
}

// BaseURL returns the server base, e.g. for the websocket watch dialer.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseUrl
	return &u
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseUrl.JoinPath(path).String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", path, err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	default:
		return fmt.Errorf("unexpected status code from %s: %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) put(ctx context.Context, path string, in interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseUrl.JoinPath(path).String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", path, err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil
	default:
		var out struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(raw, &out); err == nil && out.Error != "" {
			return fmt.Errorf("server rejected %s: %s", path, out.Error)
		}
		return fmt.Errorf("unexpected status code from %s: %d", path, resp.StatusCode)
	}
}

func (c *Client) FetchEntries(ctx context.Context) ([]model.HistoricalEntry, error) {
	var entries []model.HistoricalEntry
	if err := c.get(ctx, "api/entries", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) FetchActive(ctx context.Context) (map[string]model.ActiveTimer, error) {
	var timers map[string]model.ActiveTimer
	if err := c.get(ctx, "api/active", &timers); err != nil {
		return nil, err
	}
	return timers, nil
}

func (c *Client) FetchSuggestions(ctx context.Context) ([]string, error) {
	var suggestions []string
	if err := c.get(ctx, "api/suggestions", &suggestions); err != nil {
		return nil, err
	}
	return suggestions, nil
}

func (c *Client) ReplaceEntries(ctx context.Context, entries []model.HistoricalEntry) error {
	if entries == nil {
		entries = []model.HistoricalEntry{}
	}
	return c.put(ctx, "api/entries", entries)
}

func (c *Client) ReplaceActive(ctx context.Context, timers map[string]model.ActiveTimer) error {
	if timers == nil {
		timers = map[string]model.ActiveTimer{}
	}
	return c.put(ctx, "api/active", timers)
}
