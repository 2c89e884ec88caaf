package server

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	"path-planning-env/internal/geometry"
	"path-planning-env/internal/lidar"
	"path-planning-env/internal/mapfile"
	"path-planning-env/internal/planners"
	"path-planning-env/internal/planning"
	"path-planning-env/internal/rrt"
	"path-planning-env/internal/wavefront"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 8 << 20

// PlanRequest asks for a path on the loaded map. Missing endpoints fall back to
// the map's own; zero settings fall back to the server defaults.
type PlanRequest struct {
	Start         *geometry.Point `json:"start,omitempty"`
	End           *geometry.Point `json:"end,omitempty"`
	Algorithm     string          `json:"algorithm,omitempty"`
	StepSize      float64         `json:"stepSize,omitempty"`
	MaxIterations int             `json:"maxIterations,omitempty"`
	Resolution    float64         `json:"resolution,omitempty"`
	Seed          *int64          `json:"seed,omitempty"`
}

// PlanResponse carries the planned path. Success is false when no path exists.
type PlanResponse struct {
	Path       []geometry.Point `json:"path"`
	Success    bool             `json:"success"`
	Outcome    string           `json:"outcome"`
	Message    string           `json:"message,omitempty"`
	Length     float64          `json:"length,omitempty"`
	Iterations int              `json:"iterations"`
	ElapsedMs  float64          `json:"elapsedMs"`
}

// ScanRequest casts the sensor from a pose. Zero settings fall back to the
// server defaults.
type ScanRequest struct {
	Pose     lidar.Pose `json:"pose"`
	NumRays  int        `json:"numRays,omitempty"`
	MaxRange float64    `json:"maxRange,omitempty"`
	FOVDeg   float64    `json:"fovDeg,omitempty"`
}

// ScanResponse holds the hits and the dense range vector.
type ScanResponse struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message,omitempty"`
	Readings []lidar.Reading `json:"readings"`
	Ranges   []float64       `json:"ranges"`
}

// POST /map - load a map record
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	force, _ := strconv.ParseBool(q.Get("force"))
	if s.Map() != nil && !force {
		s.writeConflict(w)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	var rec *mapfile.Record
	if q.Get("format") == "geojson" {
		rec, err = mapfile.DecodeGeoJSON(data)
	} else {
		rec = &mapfile.Record{}
		err = json.Unmarshal(data, rec)
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid map: "+err.Error())
		return
	}

	loaded := len(rec.Obstacles)
	if prune, _ := strconv.ParseBool(q.Get("prune")); prune {
		rec.Obstacles = mapfile.PruneContained(rec.Obstacles)
	}
	if tol, err := strconv.ParseFloat(q.Get("simplify"), 64); err == nil && tol > 0 {
		rec.Obstacles = mapfile.Simplify(rec.Obstacles, tol)
	}

	m, err := rec.Map()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.trySetMap(m, force) {
		s.writeConflict(w)
		return
	}
	s.logger.Infow("map loaded", "obstacles", m.NumObstacles(), "pruned", loaded-m.NumObstacles())

	b := m.Bounds()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"numObstacles": m.NumObstacles(),
		"pruned":       loaded - m.NumObstacles(),
		"bounds":       []geometry.Point{b.Min, b.Max},
		"start":        m.Start(),
		"end":          m.End(),
	})
}

// POST /plan - plan a path on the loaded map
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req PlanRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m := s.Map()
	if m == nil {
		s.writeError(w, http.StatusBadRequest, "no map loaded. POST /map first")
		return
	}
	start, end := m.Start(), m.End()
	if req.Start != nil {
		start = *req.Start
	}
	if req.End != nil {
		end = *req.End
	}
	m = m.WithEndpoints(start, end)

	algorithm := s.opts.Algorithm
	if req.Algorithm != "" {
		algorithm = req.Algorithm
	}
	settings := s.opts.Settings
	if req.StepSize > 0 {
		settings.RRT.StepSize = req.StepSize
	}
	if req.MaxIterations > 0 {
		settings.RRT.MaxIterations = s.iterations(req.MaxIterations)
	}
	if req.Resolution > 0 {
		settings.Wavefront.Resolution = req.Resolution
	}
	if req.Seed != nil {
		settings.Seed = *req.Seed
	}

	planner, err := planners.New(algorithm, m, settings, s.logger)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := planner.Solve(r.Context())
	if p, ok := planner.(*rrt.Planner); ok {
		s.setTree(p.Edges(), len(p.Tree()))
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, wavefront.ErrGridTooLarge) {
			status = http.StatusBadRequest
		}
		s.logger.Warnw("planning failed", "algorithm", algorithm, "error", err)
		s.writeError(w, status, err.Error())
		return
	}

	resp := PlanResponse{
		Path:       res.Path,
		Success:    res.Outcome == planning.Found,
		Outcome:    res.Outcome.String(),
		Length:     res.Path.Length(),
		Iterations: res.Iterations,
		ElapsedMs:  float64(res.Elapsed.Microseconds()) / 1000,
	}
	switch res.Outcome {
	case planning.Unreachable:
		resp.Message = "start or end lies inside an obstacle"
	case planning.Exhausted:
		resp.Message = "no path found"
	}
	s.logger.Debugw("planned", "algorithm", algorithm, "outcome", resp.Outcome, "waypoints", len(res.Path))
	s.writeJSON(w, http.StatusOK, resp)
}

// POST /scan - cast the sensor from a pose
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ScanRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m := s.Map()
	if m == nil {
		s.writeError(w, http.StatusBadRequest, "no map loaded. POST /map first")
		return
	}

	opts := s.opts.Lidar
	if req.NumRays > 0 {
		opts.NumRays = req.NumRays
	}
	if req.MaxRange > 0 {
		opts.MaxRange = req.MaxRange
	}
	if req.FOVDeg > 0 {
		opts.FOV = req.FOVDeg * math.Pi / 180
	}
	sensor, err := lidar.New(m, opts)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := ScanResponse{
		Success:  true,
		Readings: sensor.Scan(req.Pose),
		Ranges:   sensor.Ranges(req.Pose),
	}
	if resp.Readings == nil {
		resp.Readings = []lidar.Reading{}
	}
	if m.Blocked(req.Pose.Position()) {
		resp.Success = false
		resp.Message = "pose lies inside an obstacle"
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// GET /tree - edges of the last RRT tree as line segments
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.mu.RLock()
	edges, nodes := s.tree, s.treeNodes
	s.mu.RUnlock()

	if nodes == 0 {
		s.writeError(w, http.StatusBadRequest, "no tree yet. POST /plan with algorithm rrt first")
		return
	}

	lines := make([][2]geometry.Point, len(edges))
	for i, e := range edges {
		lines[i] = [2]geometry.Point{e.P1, e.P2}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"lines":    lines,
		"numNodes": nodes,
		"numEdges": len(lines),
	})
}

// GET /health - health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	m := s.Map()
	status := "ready"
	numObstacles := 0
	if m == nil {
		status = "waiting for map"
	} else {
		numObstacles = m.NumObstacles()
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       status,
		"hasMap":       m != nil,
		"numObstacles": numObstacles,
		"algorithm":    s.opts.Algorithm,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warnw("failed to encode response", "error", err)
	}
}

func (s *Server) writeConflict(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusConflict, map[string]interface{}{
		"success": false,
		"error":   "map already loaded",
		"message": "A map is already loaded. Set force=true to replace it.",
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}
