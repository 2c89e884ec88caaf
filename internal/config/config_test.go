package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

var keys = []string{
	"PLANNER_ADDR", "PLANNER_ALGORITHM", "RRT_STEP_SIZE", "RRT_MAX_ITER", "RRT_GOAL_THRESHOLD",
	"RRT_SEED", "WAVEFRONT_RESOLUTION", "WAVEFRONT_MAX_CELLS", "LIDAR_RAYS", "LIDAR_RANGE",
	"LIDAR_FOV_DEG", "MAP_DIR", "PATH_DIR", "BATCH_WORKERS", "LOG_DEBUG", "PLANNER_MAX_ITER",
}

// clearEnv unsets every key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := FromEnv()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg, test.ShouldResemble, Default())
	test.That(t, cfg.Lidar.FOV, test.ShouldEqual, 2*math.Pi)
	test.That(t, cfg.Wavefront.MaxCells, test.ShouldEqual, 4_000_000)
	test.That(t, cfg.MaxRequestIterations, test.ShouldEqual, 100_000)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PLANNER_ADDR", ":9090")
	t.Setenv("PLANNER_ALGORITHM", "rrt")
	t.Setenv("RRT_STEP_SIZE", "0.25")
	t.Setenv("RRT_MAX_ITER", "5000")
	t.Setenv("RRT_SEED", "42")
	t.Setenv("WAVEFRONT_RESOLUTION", "0.5")
	t.Setenv("LIDAR_RAYS", "32")
	t.Setenv("LIDAR_FOV_DEG", "180")
	t.Setenv("BATCH_WORKERS", "8")
	t.Setenv("LOG_DEBUG", "true")
	t.Setenv("PLANNER_MAX_ITER", "500")

	cfg, err := FromEnv()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Addr, test.ShouldEqual, ":9090")
	test.That(t, cfg.Algorithm, test.ShouldEqual, "rrt")
	test.That(t, cfg.RRT.StepSize, test.ShouldEqual, 0.25)
	test.That(t, cfg.RRT.MaxIterations, test.ShouldEqual, 5000)
	test.That(t, cfg.Seed, test.ShouldEqual, int64(42))
	test.That(t, cfg.Wavefront.Resolution, test.ShouldEqual, 0.5)
	test.That(t, cfg.Lidar.NumRays, test.ShouldEqual, 32)
	test.That(t, cfg.Lidar.FOV, test.ShouldAlmostEqual, math.Pi, 1e-12)
	test.That(t, cfg.Workers, test.ShouldEqual, 8)
	test.That(t, cfg.Debug, test.ShouldBeTrue)
	test.That(t, cfg.MaxRequestIterations, test.ShouldEqual, 500)
	test.That(t, cfg.MapDir, test.ShouldEqual, Default().MapDir)
}

func TestFromEnvInvalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("RRT_MAX_ITER", "lots")
	_, err := FromEnv()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "RRT_MAX_ITER")
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("RRT_SEED", "7")

	filename := filepath.Join(t.TempDir(), ".env")
	data := "PLANNER_ALGORITHM=rrt\nRRT_SEED=99\nMAP_DIR=/data/maps\n"
	test.That(t, os.WriteFile(filename, []byte(data), 0o644), test.ShouldBeNil)

	cfg, err := Load(filename, filepath.Join(t.TempDir(), "missing.env"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Algorithm, test.ShouldEqual, "rrt")
	test.That(t, cfg.MapDir, test.ShouldEqual, "/data/maps")
	// the environment wins over the file
	test.That(t, cfg.Seed, test.ShouldEqual, int64(7))
}

func TestGet(t *testing.T) {
	t.Setenv("PLANNER_TEST_KEY", "")
	test.That(t, Get("PLANNER_TEST_KEY", "fallback"), test.ShouldEqual, "fallback")
	t.Setenv("PLANNER_TEST_KEY", "set")
	test.That(t, Get("PLANNER_TEST_KEY", "fallback"), test.ShouldEqual, "set")
}
