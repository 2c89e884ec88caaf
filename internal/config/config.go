// Package config reads planner settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"io/fs"
	"math"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"path-planning-env/internal/lidar"
	"path-planning-env/internal/rrt"
	"path-planning-env/internal/wavefront"
)

// Config holds every setting the binaries understand.
type Config struct {
	Addr      string
	Algorithm string
	Seed      int64
	RRT       rrt.Options
	Wavefront wavefront.Options
	Lidar     lidar.Options
	MapDir    string
	PathDir   string
	Workers   int
	Debug     bool

	// MaxRequestIterations caps the RRT iterations a server request may ask for.
	MaxRequestIterations int
}

// Default returns the settings used when the environment is empty.
func Default() Config {
	return Config{
		Addr:      ":8080",
		Algorithm: "wavefront",
		Seed:      1,
		RRT:       rrt.DefaultOptions(),
		Wavefront: wavefront.DefaultOptions(),
		Lidar:     lidar.DefaultOptions(),
		MapDir:    "./obstacles/poly",
		PathDir:   "./dataset/path",
		Workers:   4,

		MaxRequestIterations: 100_000,
	}
}

// Load reads the given .env files (".env" if none are named) into the
// environment and then builds a Config from it. Missing files are ignored;
// variables already set take precedence over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, errors.Wrapf(err, "load %s", f)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables over Default.
func FromEnv() (Config, error) {
	cfg := Default()
	p := parser{}

	cfg.Addr = Get("PLANNER_ADDR", cfg.Addr)
	cfg.Algorithm = Get("PLANNER_ALGORITHM", cfg.Algorithm)
	cfg.Seed = p.getInt64("RRT_SEED", cfg.Seed)
	cfg.RRT.StepSize = p.getFloat("RRT_STEP_SIZE", cfg.RRT.StepSize)
	cfg.RRT.MaxIterations = p.getInt("RRT_MAX_ITER", cfg.RRT.MaxIterations)
	cfg.RRT.GoalThreshold = p.getFloat("RRT_GOAL_THRESHOLD", cfg.RRT.GoalThreshold)
	cfg.Wavefront.Resolution = p.getFloat("WAVEFRONT_RESOLUTION", cfg.Wavefront.Resolution)
	cfg.Wavefront.MaxCells = p.getInt("WAVEFRONT_MAX_CELLS", cfg.Wavefront.MaxCells)
	cfg.MaxRequestIterations = p.getInt("PLANNER_MAX_ITER", cfg.MaxRequestIterations)
	cfg.Lidar.NumRays = p.getInt("LIDAR_RAYS", cfg.Lidar.NumRays)
	cfg.Lidar.MaxRange = p.getFloat("LIDAR_RANGE", cfg.Lidar.MaxRange)
	if deg := p.getFloat("LIDAR_FOV_DEG", -1); deg >= 0 {
		cfg.Lidar.FOV = deg * math.Pi / 180
	}
	cfg.MapDir = Get("MAP_DIR", cfg.MapDir)
	cfg.PathDir = Get("PATH_DIR", cfg.PathDir)
	cfg.Workers = p.getInt("BATCH_WORKERS", cfg.Workers)
	cfg.Debug = p.getBool("LOG_DEBUG", cfg.Debug)

	if p.err != nil {
		return Config{}, p.err
	}
	return cfg, nil
}

// Get returns the value of key, or fallback if it is unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parser converts environment values and keeps the first failure.
type parser struct {
	err error
}

func (p *parser) lookup(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != "" && p.err == nil
}

func (p *parser) fail(key, v string, err error) {
	p.err = errors.Wrapf(err, "config: %s=%q", key, v)
}

func (p *parser) getFloat(key string, fallback float64) float64 {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return f
}

func (p *parser) getInt(key string, fallback int) int {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) getInt64(key string, fallback int64) int64 {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) getBool(key string, fallback bool) bool {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return b
}
