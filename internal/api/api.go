// Package api implements the prgate HTTP service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sprite-ai/prgate/internal/engine"
	"github.com/sprite-ai/prgate/internal/gh"
)

// CheckClient is the platform adapter plus the pull-request lookup the
// handlers need before a run starts.
type CheckClient interface {
	engine.Client
	PullRequest(ctx context.Context) (engine.PullRequest, string, error)
}

// ClientFactory builds the platform adapter for one request.
type ClientFactory func(owner, repo string, number int) CheckClient

// Server is the prgate HTTP service.
type Server struct {
	addr    string
	owner   string
	mux     *http.ServeMux
	server  *http.Server
	clients ClientFactory
}

// New creates a server whose GitHub requests authenticate with token. When
// owner is non-empty, requests for any other repository owner are rejected.
func New(addr, owner, token string) *Server {
	s := &Server{
		addr:  addr,
		owner: owner,
		clients: func(owner, repo string, number int) CheckClient {
			return gh.NewWithToken(token, owner, repo, number)
		},
	}
	s.mux = http.NewServeMux()
	s.registerRoutes()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/check_reviews", s.handleCheckReviews)
	s.mux.HandleFunc("GET /api/v1/ws", s.handleWebSocket)
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	log.Printf("prgate API server listening on %s", s.addr)
	return s.server.ListenAndServe()
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// readJSON decodes a JSON request body into v.
func readJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
