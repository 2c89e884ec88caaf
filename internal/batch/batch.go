// Package batch plans every map file in a directory and caches the results as
// path records next to the dataset.
package batch

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"path-planning-env/internal/mapfile"
	"path-planning-env/internal/obstaclemap"
	"path-planning-env/internal/planners"
	"path-planning-env/internal/planning"
)

// DefaultPattern matches map records in the map directory.
const DefaultPattern = "*.json"

// Options configures a batch run.
type Options struct {
	MapDir    string
	PathDir   string
	Pattern   string
	Algorithm string
	Settings  planners.Settings
	// Workers bounds how many runs of one map are planned at once.
	Workers int
	// Force replans runs that already have a cached path.
	Force bool
}

// Runner plans map files.
type Runner struct {
	opts   Options
	logger *zap.SugaredLogger
}

// FileResult describes the work done for one map file.
type FileResult struct {
	MapFile  string
	PathFile string
	Planned  int
	Skipped  int
	Found    int
	// Elapsed holds the planning time in seconds of every run planned now.
	Elapsed []float64
}

// Summary aggregates a whole batch.
type Summary struct {
	Files   int
	Failed  int
	Planned int
	Skipped int
	Found   int
	// MeanElapsed is the mean planning time in seconds over planned runs.
	MeanElapsed float64
	Results     []FileResult
}

// job is one start/end pair of a map. index -1 is the map's own endpoints.
type job struct {
	index int
	m     *obstaclemap.Map
}

// New creates a runner.
func New(opts Options, logger *zap.SugaredLogger) (*Runner, error) {
	if opts.MapDir == "" {
		return nil, errors.New("batch: map directory is required")
	}
	if opts.PathDir == "" {
		return nil, errors.New("batch: path directory is required")
	}
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	if opts.Algorithm == "" {
		opts.Algorithm = planners.Wavefront
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Runner{opts: opts, logger: logger}, nil
}

// Run processes every matching map file. A file that fails does not stop the
// others; all failures are returned combined.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	files, err := filepath.Glob(filepath.Join(r.opts.MapDir, r.opts.Pattern))
	if err != nil {
		return Summary{}, errors.Wrap(err, "list map files")
	}
	if len(files) == 0 {
		return Summary{}, errors.Errorf("no map files matching %s in %s", r.opts.Pattern, r.opts.MapDir)
	}
	sort.Strings(files)
	r.logger.Infow("planning map files", "files", len(files), "algorithm", r.opts.Algorithm, "workers", r.opts.Workers)

	var (
		summary Summary
		errs    error
		elapsed []float64
	)
	for _, file := range files {
		if ctx.Err() != nil {
			errs = multierr.Combine(errs, ctx.Err())
			break
		}

		res, err := r.ProcessFile(ctx, file)
		if err != nil {
			summary.Failed++
			errs = multierr.Combine(errs, errors.Wrapf(err, "%s", filepath.Base(file)))
			r.logger.Warnw("map file failed", "file", file, "error", err)
			continue
		}

		summary.Files++
		summary.Planned += res.Planned
		summary.Skipped += res.Skipped
		summary.Found += res.Found
		summary.Results = append(summary.Results, res)
		elapsed = append(elapsed, res.Elapsed...)
	}

	if len(elapsed) > 0 {
		summary.MeanElapsed = stat.Mean(elapsed, nil)
	}
	r.logger.Infow("batch done",
		"files", summary.Files,
		"failed", summary.Failed,
		"planned", summary.Planned,
		"skipped", summary.Skipped,
		"found", summary.Found,
		"mean_elapsed_s", summary.MeanElapsed,
	)
	return summary, errs
}

// ProcessFile plans the map's own start/end and every run of one map file,
// reusing cached paths unless forced, and writes the path record.
func (r *Runner) ProcessFile(ctx context.Context, mapFile string) (FileResult, error) {
	res := FileResult{MapFile: mapFile, PathFile: mapfile.PathRecordName(r.opts.PathDir, mapFile)}

	rec, err := mapfile.Load(mapFile)
	if err != nil {
		return res, err
	}
	base, err := rec.Map()
	if err != nil {
		return res, err
	}

	fingerprint := rec.Fingerprint()
	cached := r.loadCached(res.PathFile, fingerprint)
	start, end := rec.Endpoints()
	startOrb, endOrb := orb.Point{start.X, start.Y}, orb.Point{end.X, end.Y}
	out := &mapfile.PathRecord{
		Algorithm:   r.opts.Algorithm,
		Fingerprint: fingerprint,
		Start:       &startOrb,
		End:         &endOrb,
		Runs:        make([]mapfile.Run, len(rec.Runs)),
	}
	copy(out.Runs, rec.Runs)

	var jobs []job
	if path, ok := cached.SolvedPath(startOrb, endOrb); ok {
		out.Path, out.ElapsedTime = path, cached.ElapsedTime
		res.Skipped++
	} else {
		jobs = append(jobs, job{index: -1, m: base})
	}
	for i, run := range rec.Runs {
		if solved, ok := cached.SolvedRun(run); ok {
			out.Runs[i] = solved
			res.Skipped++
			continue
		}
		jobs = append(jobs, job{index: i, m: base.WithEndpoints(run.Endpoints())})
	}

	results := make([]planning.Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			settings := r.opts.Settings
			settings.Seed += int64(j.index + 1)
			planner, err := planners.New(r.opts.Algorithm, j.m, settings, r.logger)
			if err != nil {
				return err
			}
			result, err := planner.Solve(gctx)
			if err != nil {
				return errors.Wrapf(err, "run %d", j.index)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	for i, j := range jobs {
		result := results[i]
		res.Planned++
		res.Elapsed = append(res.Elapsed, result.Elapsed.Seconds())
		if result.Outcome == planning.Found {
			res.Found++
		}

		path := mapfile.PathToOrb(result.Path)
		if j.index < 0 {
			out.Path, out.ElapsedTime = path, result.Elapsed.Seconds()
			continue
		}
		out.Runs[j.index].Path = path
		out.Runs[j.index].ElapsedTime = result.Elapsed.Seconds()
	}

	if err := mapfile.SavePathRecord(res.PathFile, out); err != nil {
		return res, err
	}
	r.logger.Infow("planned map",
		"file", filepath.Base(mapFile),
		"obstacles", base.NumObstacles(),
		"planned", res.Planned,
		"skipped", res.Skipped,
		"found", res.Found,
	)
	return res, nil
}

// loadCached returns the path record worth reusing, or nil when forced or when
// the record was planned with another algorithm or over other obstacles.
func (r *Runner) loadCached(pathFile, fingerprint string) *mapfile.PathRecord {
	if r.opts.Force {
		return nil
	}
	cached, err := mapfile.LoadPathRecord(pathFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warnw("ignoring unreadable path record", "file", pathFile, "error", err)
		}
		return nil
	}
	if !cached.Fresh(r.opts.Algorithm, fingerprint) {
		r.logger.Debugw("replanning stale path record", "file", pathFile,
			"algorithm", cached.Algorithm, "want", r.opts.Algorithm)
		return nil
	}
	return cached
}
