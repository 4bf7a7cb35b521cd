package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astromechza/ticktrack/pkg/httpapi"
	"github.com/astromechza/ticktrack/pkg/model"
	"github.com/astromechza/ticktrack/pkg/store"
)

func newClientAgainstServer(t *testing.T) *Client {
	t.Helper()
	st, err := store.New(t.TempDir(), 0)
	require.NoError(t, err)
	ts := httptest.NewServer(httpapi.New(st).Router())
	t.Cleanup(ts.Close)
	c, err := New(strings.TrimPrefix(ts.URL, "http://"), time.Second)
	require.NoError(t, err)
	return c
}

func TestFetchDefaultsOnFreshServer(t *testing.T) {
	c := newClientAgainstServer(t)
	ctx := context.Background()

	entries, err := c.FetchEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	timers, err := c.FetchActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, timers)

	suggestions, err := c.FetchSuggestions(ctx)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestReplaceAndFetchRoundTrip(t *testing.T) {
	c := newClientAgainstServer(t)
	ctx := context.Background()

	start := int64(1700000000000)
	timers := map[string]model.ActiveTimer{
		"a": {Project: "Work", Task: "Email", StartTime: &start, CreatedAt: start},
	}
	require.NoError(t, c.ReplaceActive(ctx, timers))

	got, err := c.FetchActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, timers, got)

	entries := []model.HistoricalEntry{{
		Project: "Work", Task: "Email",
		TotalDurationMs: 420000, DurationSeconds: 420,
		EndTime: start + 420000, CreatedAt: start, Notes: "n",
	}}
	require.NoError(t, c.ReplaceEntries(ctx, entries))

	gotEntries, err := c.FetchEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, gotEntries)
}

func TestServerRejectionSurfacesMessage(t *testing.T) {
	c := newClientAgainstServer(t)
	// an inconsistent timer is rejected by the store's validation
	err := c.ReplaceActive(context.Background(), map[string]model.ActiveTimer{
		"a": {Project: "p", Task: "t", IsPaused: false, StartTime: nil},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

func TestTransportFailureIsAnError(t *testing.T) {
	c, err := New("127.0.0.1:1", 200*time.Millisecond)
	require.NoError(t, err)
	_, err = c.FetchEntries(context.Background())
	require.Error(t, err)
}
