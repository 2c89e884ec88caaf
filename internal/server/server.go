// Package server exposes the planners and the ray sensor over HTTP.
//
// Endpoints:
//
//	POST /map     load the obstacle map (map record JSON, or GeoJSON with ?format=geojson)
//	POST /plan    plan between two points on the loaded map
//	POST /scan    cast the sensor fan from a pose
//	GET  /tree    edges of the last RRT tree, for visualisation
//	GET  /health  server status
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"path-planning-env/internal/geometry"
	"path-planning-env/internal/lidar"
	"path-planning-env/internal/obstaclemap"
	"path-planning-env/internal/planners"
)

// DefaultMaxIterations caps the RRT iterations one request may ask for.
const DefaultMaxIterations = 100_000

// Options holds the defaults applied to requests that leave settings out.
type Options struct {
	Algorithm string
	Settings  planners.Settings
	Lidar     lidar.Options
	// MaxIterations caps a request's maxIterations. Zero means
	// DefaultMaxIterations.
	MaxIterations int
}

// Server holds the currently loaded map. The map itself is immutable, so
// handlers only hold the lock long enough to grab the pointer.
type Server struct {
	opts   Options
	logger *zap.SugaredLogger

	mu        sync.RWMutex
	m         *obstaclemap.Map
	tree      []geometry.Segment
	treeNodes int
}

// New creates a server with no map loaded.
func New(opts Options, logger *zap.SugaredLogger) *Server {
	if opts.Algorithm == "" {
		opts.Algorithm = planners.Wavefront
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{opts: opts, logger: logger}
}

// SetMap replaces the loaded map and forgets the last tree.
func (s *Server) SetMap(m *obstaclemap.Map) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = m
	s.tree, s.treeNodes = nil, 0
}

// trySetMap loads m unless a map is already loaded and force is false. The
// check and the swap happen under one lock.
func (s *Server) trySetMap(m *obstaclemap.Map, force bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m != nil && !force {
		return false
	}
	s.m = m
	s.tree, s.treeNodes = nil, 0
	return true
}

// iterations returns the RRT budget for a request asking for requested.
func (s *Server) iterations(requested int) int {
	if requested > s.opts.MaxIterations {
		s.logger.Debugw("clamping requested iterations", "requested", requested, "limit", s.opts.MaxIterations)
		return s.opts.MaxIterations
	}
	return requested
}

// Map returns the loaded map, or nil.
func (s *Server) Map() *obstaclemap.Map {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m
}

func (s *Server) setTree(edges []geometry.Segment, nodes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree, s.treeNodes = edges, nodes
}

// Handler returns the routed handler with request logging and CORS for all
// origins.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/map", s.handleMap)
	mux.HandleFunc("/plan", s.handlePlan)
	mux.HandleFunc("/scan", s.handleScan)
	mux.HandleFunc("/tree", s.handleTree)
	mux.HandleFunc("/health", s.handleHealth)

	return cors.AllowAll().Handler(loggingMiddleware(s.logger, mux))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Infow("server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	}
}
