// Package main is the planner command line: plan a single map, cast the
// sensor, process a directory of maps or serve the HTTP API.
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"path-planning-env/internal/batch"
	"path-planning-env/internal/config"
	"path-planning-env/internal/geometry"
	"path-planning-env/internal/lidar"
	"path-planning-env/internal/logging"
	"path-planning-env/internal/mapfile"
	"path-planning-env/internal/obstaclemap"
	"path-planning-env/internal/planners"
	"path-planning-env/internal/planning"
	"path-planning-env/internal/server"
)

const (
	// Flags.
	flagEnv        = "env"
	flagDebug      = "debug"
	flagMap        = "map"
	flagAlgorithm  = "algorithm"
	flagSeed       = "seed"
	flagStepSize   = "step-size"
	flagMaxIter    = "max-iter"
	flagResolution = "resolution"
	flagStart      = "start"
	flagEnd        = "end"
	flagGeoJSON    = "geojson"
	flagPose       = "pose"
	flagYawDeg     = "yaw-deg"
	flagRays       = "rays"
	flagRange      = "range"
	flagFOVDeg     = "fov-deg"
	flagMapDir     = "map-dir"
	flagPathDir    = "path-dir"
	flagPattern    = "pattern"
	flagWorkers    = "workers"
	flagForce      = "force"
	flagCount      = "count"
	flagMinDist    = "min-dist"
	flagAddr       = "addr"
)

type app struct {
	cfg    config.Config
	logger *zap.SugaredLogger
}

func main() {
	a := &app{logger: logging.New("planner", false)}

	cliApp := &cli.App{
		Name:  "planner",
		Usage: "plan collision-free paths over polygon obstacle maps",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagEnv,
				Value: ".env",
				Usage: "load settings from `FILE` before reading the environment",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: a.before,
		Commands: []*cli.Command{
			{
				Name:      "plan",
				Usage:     "plan a path on one map file",
				UsageText: "planner plan --map FILE [--algorithm rrt|wavefront] [--start x,y --end x,y]",
				Flags: append(plannerFlags(),
					&cli.StringFlag{Name: flagMap, Required: true, Usage: "map record or GeoJSON `FILE`"},
					&cli.StringFlag{Name: flagStart, Usage: "start point as `x,y`, overriding the map's"},
					&cli.StringFlag{Name: flagEnd, Usage: "end point as `x,y`, overriding the map's"},
					&cli.StringFlag{Name: flagGeoJSON, Usage: "also write the map and path as GeoJSON to `FILE`"},
				),
				Action: a.plan,
			},
			{
				Name:  "scan",
				Usage: "cast the ray sensor from a pose",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagMap, Required: true, Usage: "map record or GeoJSON `FILE`"},
					&cli.StringFlag{Name: flagPose, Required: true, Usage: "sensor position as `x,y`"},
					&cli.Float64Flag{Name: flagYawDeg, Usage: "heading in degrees"},
					&cli.IntFlag{Name: flagRays, Usage: "number of rays"},
					&cli.Float64Flag{Name: flagRange, Usage: "maximum ray length"},
					&cli.Float64Flag{Name: flagFOVDeg, Usage: "field of view in degrees"},
				},
				Action: a.scan,
			},
			{
				Name:  "batch",
				Usage: "plan every run of every map in a directory",
				Flags: append(plannerFlags(),
					&cli.StringFlag{Name: flagMapDir, Usage: "directory holding map records"},
					&cli.StringFlag{Name: flagPathDir, Usage: "directory receiving path records"},
					&cli.StringFlag{Name: flagPattern, Value: batch.DefaultPattern, Usage: "glob selecting map files"},
					&cli.IntFlag{Name: flagWorkers, Usage: "runs planned concurrently per map"},
					&cli.BoolFlag{Name: flagForce, Usage: "replan runs that already have a path"},
				),
				Action: a.batch,
			},
			{
				Name:  "runs",
				Usage: "add random start/end runs to a map record",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagMap, Required: true, Usage: "map record `FILE`, rewritten in place"},
					&cli.IntFlag{Name: flagCount, Value: 10, Usage: "number of runs to add"},
					&cli.Float64Flag{Name: flagMinDist, Value: mapfile.DefaultMinRunDistance, Usage: "minimum start to end distance"},
					&cli.Int64Flag{Name: flagSeed, Value: 1, Usage: "random seed"},
				},
				Action: a.runs,
			},
			{
				Name:  "serve",
				Usage: "serve the HTTP API",
				Flags: append(plannerFlags(),
					&cli.StringFlag{Name: flagAddr, Usage: "listen address"},
					&cli.StringFlag{Name: flagMap, Usage: "map `FILE` to load at startup"},
				),
				Action: a.serve,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		a.logger.Fatal(err)
	}
}

// plannerFlags are shared by every command that plans.
func plannerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: flagAlgorithm, Usage: "planning algorithm: " + strings.Join(planners.Names(), " or ")},
		&cli.Int64Flag{Name: flagSeed, Usage: "RRT random seed"},
		&cli.Float64Flag{Name: flagStepSize, Usage: "RRT step size"},
		&cli.IntFlag{Name: flagMaxIter, Usage: "RRT iteration limit"},
		&cli.Float64Flag{Name: flagResolution, Usage: "wavefront cell size"},
	}
}

func (a *app) before(c *cli.Context) error {
	cfg, err := config.Load(c.String(flagEnv))
	if err != nil {
		return err
	}
	if c.IsSet(flagDebug) {
		cfg.Debug = c.Bool(flagDebug)
	}
	a.cfg = cfg
	a.logger = logging.New("planner", cfg.Debug)
	return nil
}

// settings merges command flags over the configured planner settings.
func (a *app) settings(c *cli.Context) (string, planners.Settings) {
	algorithm := a.cfg.Algorithm
	if c.IsSet(flagAlgorithm) {
		algorithm = c.String(flagAlgorithm)
	}
	s := planners.Settings{RRT: a.cfg.RRT, Wavefront: a.cfg.Wavefront, Seed: a.cfg.Seed}
	if c.IsSet(flagSeed) {
		s.Seed = c.Int64(flagSeed)
	}
	if c.IsSet(flagStepSize) {
		s.RRT.StepSize = c.Float64(flagStepSize)
	}
	if c.IsSet(flagMaxIter) {
		s.RRT.MaxIterations = c.Int(flagMaxIter)
	}
	if c.IsSet(flagResolution) {
		s.Wavefront.Resolution = c.Float64(flagResolution)
	}
	return algorithm, s
}

func (a *app) plan(c *cli.Context) error {
	rec, err := loadRecord(c.String(flagMap))
	if err != nil {
		return err
	}
	m, err := rec.Map()
	if err != nil {
		return err
	}
	start, end := m.Start(), m.End()
	if c.IsSet(flagStart) {
		if start, err = parsePoint(c.String(flagStart)); err != nil {
			return errors.Wrap(err, flagStart)
		}
	}
	if c.IsSet(flagEnd) {
		if end, err = parsePoint(c.String(flagEnd)); err != nil {
			return errors.Wrap(err, flagEnd)
		}
	}
	m = m.WithEndpoints(start, end)

	algorithm, settings := a.settings(c)
	planner, err := planners.New(algorithm, m, settings, a.logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	res, err := planner.Solve(ctx)
	if err != nil {
		return err
	}
	a.logger.Infow("planning finished",
		"algorithm", algorithm,
		"outcome", res.Outcome,
		"waypoints", len(res.Path),
		"length", res.Path.Length(),
		"elapsed", res.Elapsed,
	)

	if out := c.String(flagGeoJSON); out != "" {
		if err := exportGeoJSON(out, m, res.Path); err != nil {
			return err
		}
	}

	return writeJSON(c, map[string]interface{}{
		"algorithm":  algorithm,
		"outcome":    res.Outcome.String(),
		"path":       res.Path,
		"length":     res.Path.Length(),
		"iterations": res.Iterations,
		"elapsed":    res.Elapsed.Seconds(),
	})
}

func (a *app) scan(c *cli.Context) error {
	rec, err := loadRecord(c.String(flagMap))
	if err != nil {
		return err
	}
	m, err := rec.Map()
	if err != nil {
		return err
	}
	position, err := parsePoint(c.String(flagPose))
	if err != nil {
		return errors.Wrap(err, flagPose)
	}

	opts := a.cfg.Lidar
	if c.IsSet(flagRays) {
		opts.NumRays = c.Int(flagRays)
	}
	if c.IsSet(flagRange) {
		opts.MaxRange = c.Float64(flagRange)
	}
	if c.IsSet(flagFOVDeg) {
		opts.FOV = c.Float64(flagFOVDeg) * math.Pi / 180
	}
	sensor, err := lidar.New(m, opts)
	if err != nil {
		return err
	}

	pose := lidar.PoseAt(position, c.Float64(flagYawDeg)*math.Pi/180)
	if m.Blocked(position) {
		a.logger.Warnw("pose lies inside an obstacle", "pose", pose)
	}
	readings := sensor.Scan(pose)
	if readings == nil {
		readings = []lidar.Reading{}
	}
	return writeJSON(c, map[string]interface{}{
		"pose":     pose,
		"readings": readings,
		"ranges":   sensor.Ranges(pose),
	})
}

func (a *app) batch(c *cli.Context) error {
	algorithm, settings := a.settings(c)
	opts := batch.Options{
		MapDir:    a.cfg.MapDir,
		PathDir:   a.cfg.PathDir,
		Pattern:   c.String(flagPattern),
		Algorithm: algorithm,
		Settings:  settings,
		Workers:   a.cfg.Workers,
		Force:     c.Bool(flagForce),
	}
	if c.IsSet(flagMapDir) {
		opts.MapDir = c.String(flagMapDir)
	}
	if c.IsSet(flagPathDir) {
		opts.PathDir = c.String(flagPathDir)
	}
	if c.IsSet(flagWorkers) {
		opts.Workers = c.Int(flagWorkers)
	}

	runner, err := batch.New(opts, a.logger.Named("batch"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	summary, err := runner.Run(ctx)
	fmt.Fprintf(c.App.Writer, "files: %d failed: %d planned: %d skipped: %d found: %d mean elapsed: %.4fs\n",
		summary.Files, summary.Failed, summary.Planned, summary.Skipped, summary.Found, summary.MeanElapsed)
	return err
}

func (a *app) runs(c *cli.Context) error {
	filename := c.String(flagMap)
	rec, err := mapfile.Load(filename)
	if err != nil {
		return err
	}
	m, err := rec.Map()
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(c.Int64(flagSeed)))
	runs, err := mapfile.RandomRuns(rng, m, c.Int(flagCount), c.Float64(flagMinDist))
	if err != nil {
		return err
	}
	rec.Runs = append(rec.Runs, runs...)
	if err := mapfile.Save(filename, rec); err != nil {
		return err
	}
	a.logger.Infow("added runs", "file", filename, "added", len(runs), "total", len(rec.Runs))
	return nil
}

func (a *app) serve(c *cli.Context) error {
	algorithm, settings := a.settings(c)
	s := server.New(server.Options{
		Algorithm: algorithm,
		Settings:  settings,
		Lidar:         a.cfg.Lidar,
		MaxIterations: a.cfg.MaxRequestIterations,
	}, a.logger.Named("server"))

	if filename := c.String(flagMap); filename != "" {
		rec, err := loadRecord(filename)
		if err != nil {
			return err
		}
		m, err := rec.Map()
		if err != nil {
			return err
		}
		s.SetMap(m)
		a.logger.Infow("map preloaded", "file", filename, "obstacles", m.NumObstacles())
	}

	addr := a.cfg.Addr
	if c.IsSet(flagAddr) {
		addr = c.String(flagAddr)
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.ListenAndServe(ctx, addr)
}

// loadRecord reads a map record, or a GeoJSON map when the file ends in
// .geojson.
func loadRecord(filename string) (*mapfile.Record, error) {
	if strings.EqualFold(filepath.Ext(filename), ".geojson") {
		return mapfile.LoadGeoJSON(filename)
	}
	return mapfile.Load(filename)
}

func exportGeoJSON(filename string, m *obstaclemap.Map, path planning.Path) error {
	rec := mapfile.FromMap(m)
	if path != nil {
		rec.Runs = []mapfile.Run{{Start: *rec.Start, End: *rec.End, Path: mapfile.PathToOrb(path)}}
	}
	data, err := mapfile.EncodeGeoJSON(rec)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(filename, data, 0o644), "write %s", filename)
}

// parsePoint reads "x,y".
func parsePoint(s string) (geometry.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geometry.Point{}, errors.Errorf("want x,y, got %q", s)
	}
	x, err := cast.ToFloat64E(strings.TrimSpace(parts[0]))
	if err != nil {
		return geometry.Point{}, err
	}
	y, err := cast.ToFloat64E(strings.TrimSpace(parts[1]))
	if err != nil {
		return geometry.Point{}, err
	}
	return geometry.Pt(x, y), nil
}

func writeJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
