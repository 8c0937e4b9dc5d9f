package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/joescharf/opsdesk/internal/graph"
	"github.com/joescharf/opsdesk/internal/store"
)

// Options configures the API server.
type Options struct {
	// CORSOrigin is sent as Access-Control-Allow-Origin. Defaults to "*".
	CORSOrigin string
	Logger     *slog.Logger
}

// Server exposes the issue store over a single GraphQL endpoint.
type Server struct {
	store      store.Store
	schema     *graphql.Schema
	logger     *slog.Logger
	corsOrigin string
}

// NewServer creates a new API server backed by s.
func NewServer(s store.Store, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := graph.NewSchema(s, logger)
	if err != nil {
		return nil, err
	}
	origin := opts.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	return &Server{
		store:      s,
		schema:     schema,
		logger:     logger,
		corsOrigin: origin,
	}, nil
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /graphql", s.graphqlPost)
	mux.HandleFunc("GET /graphql", s.graphqlGet)
	mux.HandleFunc("GET /schema.graphql", s.schemaSDL)
	mux.HandleFunc("GET /healthz", s.healthz)

	return s.requestLogger(recoverMiddleware(s.logger, corsMiddleware(s.corsOrigin, mux)))
}

// ListenAndServe serves the API on addr until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves the API on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("shutdown complete")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- GraphQL ---

type graphqlRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

func (s *Server) graphqlPost(w http.ResponseWriter, r *http.Request) {
	var req graphqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.execute(w, r, req)
}

func (s *Server) graphqlGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := graphqlRequest{
		Query:         q.Get("query"),
		OperationName: q.Get("operationName"),
	}
	if vars := q.Get("variables"); vars != "" {
		if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
			writeError(w, http.StatusBadRequest, "invalid variables JSON")
			return
		}
	}
	s.execute(w, r, req)
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, req graphqlRequest) {
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	resp := s.schema.Exec(r.Context(), req.Query, req.OperationName, req.Variables)
	for _, e := range resp.Errors {
		s.logger.DebugContext(r.Context(), "graphql error",
			"operation", req.OperationName,
			"error", e.Message,
		)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) schemaSDL(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.SDL()))
}

// --- Health ---

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	issues, err := s.store.ListIssues(r.Context(), store.IssueListFilter{})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"issues": len(issues),
	})
}
