package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astromechza/ticktrack/pkg/store"
)

func newTestServer(t *testing.T, maxPayload int64) (*httptest.Server, *store.FileStore) {
	t.Helper()
	st, err := store.New(t.TempDir(), maxPayload)
	require.NoError(t, err)
	ts := httptest.NewServer(New(st).Router())
	t.Cleanup(ts.Close)
	return ts, st
}

func doPut(t *testing.T, ts *httptest.Server, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, ts.URL+path, bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestGetReturnsDefaultsOnFirstRun(t *testing.T) {
	ts, _ := newTestServer(t, 0)
	for path, want := range map[string]string{
		"/api/entries":     "[]",
		"/api/active":      "{}",
		"/api/suggestions": "[]",
	} {
		resp, err := ts.Client().Get(ts.URL + path)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		assert.Equal(t, want, string(body))
	}
}

func TestReplaceThenFetchRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t, 0)
	doc := `[{"project":"Work","task":"Email","totalDurationMs":420000,"durationSeconds":420,"endTime":1700000420000,"createdAt":1700000000000,"notes":"n"}]`

	resp := doPut(t, ts, "/api/entries", doc)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	got, err := ts.Client().Get(ts.URL + "/api/entries")
	require.NoError(t, err)
	defer got.Body.Close()
	body, _ := io.ReadAll(got.Body)
	assert.JSONEq(t, doc, string(body))
}

func TestReplaceRejectsNonArrayAndKeepsDisk(t *testing.T) {
	ts, st := newTestServer(t, 0)
	original := `[{"project":"p","task":"t","totalDurationMs":1,"durationSeconds":1,"endTime":2,"createdAt":1,"notes":""}]`
	require.Equal(t, http.StatusNoContent, doPut(t, ts, "/api/entries", original).StatusCode)

	resp := doPut(t, ts, "/api/entries", `{"not":"an array"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var out struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Contains(t, out.Error, "array")

	onDisk, err := st.Read(store.KindEntries)
	require.NoError(t, err)
	assert.JSONEq(t, original, string(onDisk))
}

func TestReplaceRejectsOversizePayload(t *testing.T) {
	ts, st := newTestServer(t, 256)
	resp := doPut(t, ts, "/api/active", `{"pad":"`+strings.Repeat("x", 1024)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.False(t, st.Exists(store.KindActive))
}

func TestSuggestionsAreReadOnlyOverHTTP(t *testing.T) {
	ts, _ := newTestServer(t, 0)
	resp := doPut(t, ts, "/api/suggestions", `["Work / Email"]`)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts, st := newTestServer(t, 0)
	require.NoError(t, st.Write(store.KindEntries, []byte(`[]`)))

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Status        string          `json:"status"`
		UptimeSeconds int64           `json:"uptimeSeconds"`
		Documents     map[string]bool `json:"documents"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out.Status)
	assert.True(t, out.Documents["entries"])
	assert.False(t, out.Documents["activeTimers"])
	assert.False(t, out.Documents["suggestions"])
}

func TestWatchAnnouncesCommittedReplacements(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/watch"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// give the handler a beat to register the connection with the hub
	time.Sleep(100 * time.Millisecond)

	resp := doPut(t, ts, "/api/active", `{}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, store.KindActive, event.Kind)
	assert.WithinDuration(t, time.Now(), event.At, time.Minute)
}
