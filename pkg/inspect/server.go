// Package inspect serves a running engine's graph over HTTP.
//
// Every read endpoint works from the snapshot the engine publishes at the
// end of each frame, so handlers never touch the graph the rendering
// goroutine owns. The only write endpoint, POST /commands, hands a JSON batch
// to the engine's queue where the next frame picks it up.
//
// Routes:
//
//	GET  /health      liveness
//	GET  /nodes       the whole snapshot
//	GET  /nodes/{id}  one node
//	GET  /graph.dot   Graphviz source with values
//	GET  /stats       graph statistics and hook counters
//	POST /commands    enqueue a JSON array of commands
package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/kinetic/pkg/bridge"
	"github.com/matzehuels/kinetic/pkg/engine"
	"github.com/matzehuels/kinetic/pkg/graph"
	"github.com/matzehuels/kinetic/pkg/node"
	"github.com/matzehuels/kinetic/pkg/observability"
	"github.com/matzehuels/kinetic/pkg/render"
)

// maxBody caps the size of a POST /commands request.
const maxBody = 1 << 20

// Options configures a Server.
type Options struct {
	Logger *log.Logger

	// Counters, when set, is reported by GET /stats. Install it as the
	// engine, cache and HTTP hooks to have it count anything.
	Counters *observability.Counters

	// RankDir is passed to the DOT writer.
	RankDir string
}

// Server is the inspector's HTTP handler.
type Server struct {
	engine   *engine.Engine
	logger   *log.Logger
	counters *observability.Counters
	rankDir  string
	router   chi.Router
}

// New returns a server inspecting e.
func New(e *engine.Engine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	s := &Server{
		engine:   e,
		logger:   opts.Logger,
		counters: opts.Counters,
		rankDir:  opts.RankDir,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	r.Get("/health", s.handleHealth)
	r.Get("/nodes", s.handleNodes)
	r.Get("/nodes/{id}", s.handleNode)
	r.Get("/graph.dot", s.handleDOT)
	r.Get("/stats", s.handleStats)
	r.Post("/commands", s.handleCommands)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully. ready, if non-nil, receives the bound address once the
// listener is open.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("inspector listen: %w", err)
	}
	if ready != nil {
		ready(ln.Addr())
	}

	srv := &http.Server{Handler: s, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// observe reports every request to the HTTP hooks and the debug log.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, r.URL.Path, status, d)
		s.logger.Debug("inspector request", "method", r.Method, "path", r.URL.Path, "status", status, "duration", d)
	})
}

func (s *Server) snapshot() *graph.Snapshot {
	return s.engine.Snapshot()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNodes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid node id %q", raw))
		return
	}
	n, ok := s.snapshot().Node(node.ID(id))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("node %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleDOT(w http.ResponseWriter, _ *http.Request) {
	dot := render.ToDOT(s.snapshot(), render.Options{RankDir: s.rankDir, ShowValues: true})
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	_, _ = io.WriteString(w, dot)
}

// Stats is the body of GET /stats.
type Stats struct {
	Generation  uint64                       `json:"generation"`
	FrameTimeMs float64                      `json:"frameTimeMs"`
	Nodes       int                          `json:"nodes"`
	Graph       graph.Stats                  `json:"graph"`
	Pending     int                          `json:"pendingCommands"`
	Batches     int                          `json:"pendingBatches"`
	Counters    *observability.CounterValues `json:"counters,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshot()
	st := Stats{
		Generation:  snap.Generation,
		FrameTimeMs: snap.FrameTimeMs,
		Nodes:       len(snap.Nodes),
		Graph:       snap.Stats,
		Pending:     s.engine.Queue().Len(),
		Batches:     s.engine.Queue().Batches(),
	}
	if s.counters != nil {
		v := s.counters.Values()
		st.Counters = &v
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, err.Error())
		return
	}
	cmds, err := bridge.DecodeCommands(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.engine.Queue().Enqueue(cmds...)
	s.logger.Debug("commands queued", "count", len(cmds))
	writeJSON(w, http.StatusAccepted, map[string]int{"queued": len(cmds)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("json encode: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
