// Package httpapi exposes the document store over HTTP: fetch and replace
// per document, a health surface, and a websocket feed announcing committed
// replacements so front ends can refresh without polling.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/astromechza/ticktrack/pkg/store"
)

type Server struct {
	store   *store.FileStore
	hub     *Hub
	started time.Time
}

func New(st *store.FileStore) *Server {
	return &Server{store: st, hub: NewHub(), started: time.Now()}
}

// Router builds the full route table with the request logging middleware.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			m := httpsnoop.CaptureMetrics(handler, writer, request)
			slog.Info("handled", "method", request.Method, "url", request.URL, "duration", m.Duration, "status", m.Code)
		})
	})

	r.Methods(http.MethodGet).Path("/api/entries").HandlerFunc(s.getDocument(store.KindEntries))
	r.Methods(http.MethodPut).Path("/api/entries").HandlerFunc(s.replaceDocument(store.KindEntries))
	r.Methods(http.MethodGet).Path("/api/active").HandlerFunc(s.getDocument(store.KindActive))
	r.Methods(http.MethodPut).Path("/api/active").HandlerFunc(s.replaceDocument(store.KindActive))
	// Suggestions are edited out-of-band, so the HTTP surface is read-only.
	r.Methods(http.MethodGet).Path("/api/suggestions").HandlerFunc(s.getDocument(store.KindSuggestions))
	r.Methods(http.MethodGet).Path("/api/watch").HandlerFunc(s.watch)
	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(s.healthz)
	return r
}

func writeError(writer http.ResponseWriter, status int, err error) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(map[string]string{"error": err.Error()})
}

func (s *Server) getDocument(kind store.Kind) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		raw, err := s.store.Read(kind)
		if err != nil {
			slog.Error("failed to read document", "kind", kind, "err", err)
			writeError(writer, http.StatusInternalServerError, err)
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		if _, err := writer.Write(raw); err != nil {
			slog.Error("failed to write response", "kind", kind, "err", err)
		}
	}
}

func (s *Server) replaceDocument(kind store.Kind) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		// The +1 lets the store's own cap check report the overflow while
		// MaxBytesReader stops unbounded bodies from being buffered at all.
		limited := http.MaxBytesReader(writer, request.Body, s.store.MaxPayloadBytes()+1)
		raw, err := io.ReadAll(limited)
		if err != nil {
			writeError(writer, http.StatusRequestEntityTooLarge, store.ErrPayloadTooLarge)
			return
		}
		if err := s.store.Write(kind, raw); err != nil {
			switch {
			case errors.Is(err, store.ErrPayloadTooLarge):
				writeError(writer, http.StatusRequestEntityTooLarge, err)
			case errors.Is(err, store.ErrValidation), errors.Is(err, store.ErrUnknownKind):
				writeError(writer, http.StatusBadRequest, err)
			default:
				slog.Error("failed to write document", "kind", kind, "err", err)
				writeError(writer, http.StatusInternalServerError, err)
			}
			return
		}
		s.hub.Broadcast(Event{Kind: kind, At: time.Now().UTC()})
		writer.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) healthz(writer http.ResponseWriter, request *http.Request) {
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(map[string]interface{}{
		"status":        "ok",
		"uptimeSeconds": int64(time.Since(s.started).Seconds()),
		"documents": map[string]bool{
			"entries":      s.store.Exists(store.KindEntries),
			"activeTimers": s.store.Exists(store.KindActive),
			"suggestions":  s.store.Exists(store.KindSuggestions),
		},
	}); err != nil {
		slog.Error("failed to encode health response", "err", err)
	}
}

func (s *Server) watch(writer http.ResponseWriter, request *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	conn, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		slog.Error("failed to upgrade", "err", err)
		return
	}
	s.hub.Add(conn)
	defer s.hub.Remove(conn)

	// Reads only serve to notice the peer going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
