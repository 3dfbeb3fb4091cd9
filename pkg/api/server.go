// Package api exposes the graph, validation, scheduling, and routine
// tracking over HTTP, and serves the viewer UI.
package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/canonmap/canonmap/pkg/backup"
	"github.com/canonmap/canonmap/pkg/graph"
	"github.com/canonmap/canonmap/pkg/remote"
	"github.com/canonmap/canonmap/pkg/reports"
	"github.com/canonmap/canonmap/pkg/routine"
)

// Context keys
type contextKey string

const traceIDKey contextKey = "trace_id"

// RemoteClient is the slice of the sync client the server needs.
type RemoteClient interface {
	DefaultBranch(ctx context.Context) string
	CommitWithRetry(ctx context.Context, branch, message string, mutate remote.Mutation) (*remote.Commit, error)
}

// Options carries the optional server collaborators.
type Options struct {
	// Remote enables push-on-edit when set.
	Remote RemoteClient
	// DataPath, when set, is where local edits are persisted.
	DataPath string
	// TemplateDir holds the markdown authoring templates.
	TemplateDir string
	// VacationStart arms the pre-vacation hardening check.
	VacationStart string
	// StaticFS serves the viewer UI.
	StaticFS fs.FS
	// BackupDir, when set, snapshots the document on every local edit.
	BackupDir string
}

// Server encapsulates the HTTP API server.
type Server struct {
	mu      sync.RWMutex
	graph   *graph.Graph
	tracker *routine.Tracker

	remote        RemoteClient
	dataPath      string
	templateDir   string
	vacationStart string
	staticFS      fs.FS
	backups       *backup.Store
	reports       *reports.Factory

	server *http.Server
}

// NewServer creates a new API server instance.
func NewServer(g *graph.Graph, tracker *routine.Tracker, addr string, opts Options) *Server {
	s := &Server{
		graph:         g,
		tracker:       tracker,
		remote:        opts.Remote,
		dataPath:      opts.DataPath,
		templateDir:   opts.TemplateDir,
		vacationStart: opts.VacationStart,
		staticFS:      opts.StaticFS,
		reports:       &reports.Factory{Tracker: tracker},
	}
	if opts.BackupDir != "" {
		s.backups = backup.NewStore(opts.BackupDir)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/health", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/graph", s.handleGraph)
	mux.HandleFunc("/v1/validate", s.handleValidate)
	mux.HandleFunc("/v1/tasks", s.handleTasks)
	mux.HandleFunc("/v1/pick", s.handlePick)
	mux.HandleFunc("/v1/routine", s.handleRoutine)
	mux.HandleFunc("/v1/acks", s.handleAcks)
	mux.HandleFunc("/v1/template", s.handleTemplate)
	mux.HandleFunc("/v1/reports", s.handleReports)
	mux.HandleFunc("/v1/nodes", s.handleNodes)
	mux.HandleFunc("/v1/nodes/", s.handleNodes)

	if s.staticFS != nil {
		mux.Handle("/", s.handleStatic())
	}

	// Middleware: Logging, Panic Recovery, Security Headers
	handler := withLogging(withRecovery(withSecureHeaders(mux)))

	if addr == "" {
		addr = ":8080"
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	return s
}

// Graph returns the current graph snapshot.
func (s *Server) Graph() *graph.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

// ReplaceGraph swaps in a freshly loaded graph.
func (s *Server) ReplaceGraph(g *graph.Graph) {
	s.mu.Lock()
	s.graph = g
	s.mu.Unlock()
}

// Handler exposes the full middleware-wrapped handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start runs the HTTP server (blocking).
func (s *Server) Start() error {
	fmt.Printf(`{"level":"info","msg":"server_starting","addr":"%s"}`+"\n", s.server.Addr)
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	fmt.Println(`{"level":"info","msg":"server_stopping"}`)
	return s.server.Shutdown(ctx)
}

// handleStatic serves static web assets with SPA fallback.
func (s *Server) handleStatic() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.staticFS == nil {
			http.NotFound(w, r)
			return
		}

		path := strings.TrimPrefix(r.URL.Path, "/")

		if strings.HasPrefix(r.URL.Path, "/v1/") {
			http.NotFound(w, r)
			return
		}

		if path != "" {
			if file, err := s.staticFS.Open(path); err == nil {
				defer file.Close()
				if stat, err := file.Stat(); err == nil && !stat.IsDir() {
					if strings.HasSuffix(path, ".css") {
						w.Header().Set("Content-Type", "text/css")
					} else if strings.HasSuffix(path, ".js") {
						w.Header().Set("Content-Type", "application/javascript")
					} else if strings.HasSuffix(path, ".html") {
						w.Header().Set("Content-Type", "text/html")
					} else if strings.HasSuffix(path, ".json") {
						w.Header().Set("Content-Type", "application/json")
					}
					io.Copy(w, file)
					return
				}
			}
		}

		// Fallback to index.html for SPA routing
		if indexFile, err := s.staticFS.Open("index.html"); err == nil {
			defer indexFile.Close()
			w.Header().Set("Content-Type", "text/html")
			io.Copy(w, indexFile)
			return
		}

		http.NotFound(w, r)
	})
}

// handleHealth returns simple status.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// Middleware: Panic Recovery
func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				fmt.Printf(`{"level":"error","msg":"panic_recovered","error":"%v","path":"%s"}`+"\n", err, r.URL.Path)
				http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Middleware: Request Logging
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = generateTraceID()
		}

		ctx := context.WithValue(r.Context(), traceIDKey, traceID)
		r = r.WithContext(ctx)

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		fmt.Printf(`{"level":"info","msg":"http_request","trace_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`+"\n",
			traceID, r.Method, r.URL.Path, ww.status, duration.Milliseconds())
	})
}

func generateTraceID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

func getTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// statusWriter captures HTTP status code
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Middleware: Secure Headers
func withSecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:;")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")

		next.ServeHTTP(w, r)
	})
}
