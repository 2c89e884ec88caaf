package mapfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// PathRecordSuffix is appended to a map's base name to name its path record.
const PathRecordSuffix = ".path.json"

// PathRecord caches planning results for one map file: the path for the map's
// own start and end plus one entry per run. Algorithm and Fingerprint tie the
// record to the planner and the obstacles it was built from.
type PathRecord struct {
	Algorithm   string      `json:"algorithm,omitempty"`
	Fingerprint string      `json:"fingerprint,omitempty"`
	Start       *orb.Point  `json:"start,omitempty"`
	End         *orb.Point  `json:"end,omitempty"`
	Path        []orb.Point `json:"path"`
	// ElapsedTime is in seconds.
	ElapsedTime float64 `json:"elapsed_time"`
	Runs        []Run   `json:"runs,omitempty"`
}

// PathRecordName returns where the path record for mapFile lives under dir.
func PathRecordName(dir, mapFile string) string {
	base := strings.TrimSuffix(filepath.Base(mapFile), filepath.Ext(mapFile))
	return filepath.Join(dir, base+PathRecordSuffix)
}

// LoadPathRecord reads a path record.
func LoadPathRecord(filename string) (*PathRecord, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var rec PathRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrapf(err, "parse %s", filename)
	}
	return &rec, nil
}

// SavePathRecord writes a path record, creating its directory if needed.
func SavePathRecord(filename string, rec *PathRecord) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(filename))
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode path record")
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrapf(err, "save %s", filename)
	}
	return nil
}

// Fresh reports whether the record was planned with algorithm over the
// geometry identified by fingerprint.
func (r *PathRecord) Fresh(algorithm, fingerprint string) bool {
	return r != nil && fingerprint != "" && r.Algorithm == algorithm && r.Fingerprint == fingerprint
}

// SolvedPath returns the cached path for the map's own endpoints, if the
// record holds one planned between start and end.
func (r *PathRecord) SolvedPath(start, end orb.Point) ([]orb.Point, bool) {
	if r == nil || r.Start == nil || r.End == nil || len(r.Path) == 0 {
		return nil, false
	}
	if *r.Start != start || *r.End != end {
		return nil, false
	}
	return r.Path, true
}

// SolvedRun returns the cached run matching run's endpoints, if it has a path.
func (r *PathRecord) SolvedRun(run Run) (Run, bool) {
	if r == nil {
		return Run{}, false
	}
	for _, cached := range r.Runs {
		if cached.Start == run.Start && cached.End == run.End && len(cached.Path) > 0 {
			return cached, true
		}
	}
	return Run{}, false
}
