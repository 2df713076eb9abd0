package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zjrosen/dispatch/internal/log"
	"github.com/zjrosen/dispatch/internal/pubsub"
)

// HTTPServer exposes the adapter over HTTP: JSON-RPC on POST
// /mcp/messages, a tool-call event stream on GET /mcp/sse and a health
// probe on GET /health.
type HTTPServer struct {
	adapter *Adapter
	events  *pubsub.Broker[ToolCallEvent]
	server  *http.Server
}

// NewHTTPServer creates a server listening on addr. events may be nil,
// which disables the SSE stream.
func NewHTTPServer(adapter *Adapter, addr string, events *pubsub.Broker[ToolCallEvent]) *HTTPServer {
	s := &HTTPServer{adapter: adapter, events: events}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /mcp/messages", s.handleMessages)
	mux.HandleFunc("GET /mcp/sse", s.handleSSE)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks until the server stops.
func (s *HTTPServer) ListenAndServe() error {
	log.Info(log.CatMCP, "http server started", "addr", s.server.Addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	log.Info(log.CatMCP, "http server stopping")
	return s.server.Shutdown(ctx)
}

// Handler returns the underlying handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleMessages(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxLineSize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	resp := s.adapter.HandleMessage(r.Context(), body)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(resp)
}

// handleSSE streams tool-call events until the client disconnects.
func (s *HTTPServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		http.Error(w, "event stream not configured", http.StatusNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	events := s.events.Subscribe(r.Context())
	for event := range events {
		payload, err := json.Marshal(event.Payload)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
		flusher.Flush()
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"name":    s.adapter.info.Name,
		"version": s.adapter.info.Version,
	})
}
