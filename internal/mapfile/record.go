// Package mapfile reads and writes the map records exchanged with the map
// editor and the dataset tooling, and turns them into obstacle maps.
//
// A record stores coordinates as [x, y] pairs:
//
//	{
//	  "size": [[-10, -10], [10, 10]],
//	  "obstacles": [[[1, 1], [2, 1], [2, 2]]],
//	  "start": [0, -9],
//	  "end": [2.5, 9],
//	  "runs": [{"start": [-5, -5], "end": [5, 5]}]
//	}
//
// Everything but the obstacles is optional.
package mapfile

import (
	"encoding/json"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"path-planning-env/internal/geometry"
	"path-planning-env/internal/obstaclemap"
	"path-planning-env/internal/planning"
)

// Defaults applied when a record leaves the workspace or endpoints out.
var (
	DefaultBounds = geometry.Bounds{Min: geometry.Pt(-10, -10), Max: geometry.Pt(10, 10)}
	DefaultStart  = geometry.Pt(0, -9)
	DefaultEnd    = geometry.Pt(2.5, 9)
)

// Run is one start/end pair over a map, optionally with a solved path.
type Run struct {
	ID    string    `json:"id,omitempty"`
	Start orb.Point `json:"start"`
	End   orb.Point `json:"end"`
	// Path and ElapsedTime are filled in by the batch tooling. ElapsedTime is
	// in seconds.
	Path        []orb.Point `json:"path,omitempty"`
	ElapsedTime float64     `json:"elapsed_time,omitempty"`
}

// Endpoints returns the run's start and end.
func (r Run) Endpoints() (geometry.Point, geometry.Point) {
	return fromOrb(r.Start), fromOrb(r.End)
}

// Record is the on-disk description of a map.
type Record struct {
	Size      []orb.Point `json:"size,omitempty"`
	Obstacles []orb.Ring  `json:"obstacles"`
	Start     *orb.Point  `json:"start,omitempty"`
	End       *orb.Point  `json:"end,omitempty"`
	Runs      []Run       `json:"runs,omitempty"`
}

// Decode reads a JSON record.
func Decode(r io.Reader) (*Record, error) {
	var rec Record
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, errors.Wrap(err, "decode map record")
	}
	return &rec, nil
}

// Encode writes rec as indented JSON.
func Encode(w io.Writer, rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode map record")
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// Load reads a record from a file.
func Load(filename string) (*Record, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", filename)
	}
	return rec, nil
}

// Save writes rec to a file, replacing it if it exists.
func Save(filename string, rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode map record")
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrapf(err, "save %s", filename)
	}
	return nil
}

// Bounds returns the workspace box, or DefaultBounds if the record has none.
func (r *Record) Bounds() (geometry.Bounds, error) {
	switch len(r.Size) {
	case 0:
		return DefaultBounds, nil
	case 2:
		return geometry.BoundsOf(fromOrb(r.Size[0]), fromOrb(r.Size[1])), nil
	default:
		return geometry.Bounds{}, errors.Wrapf(obstaclemap.ErrInvalidBounds, "size needs two corners, got %d", len(r.Size))
	}
}

// Endpoints returns the record's start and end, falling back to the defaults.
func (r *Record) Endpoints() (geometry.Point, geometry.Point) {
	start, end := DefaultStart, DefaultEnd
	if r.Start != nil {
		start = fromOrb(*r.Start)
	}
	if r.End != nil {
		end = fromOrb(*r.End)
	}
	return start, end
}

// Fingerprint identifies the record's workspace and obstacles. Endpoints and
// runs do not contribute. It is empty if the geometry cannot be encoded.
func (r *Record) Fingerprint() string {
	data, err := json.Marshal(struct {
		Size      []orb.Point `json:"size"`
		Obstacles []orb.Ring  `json:"obstacles"`
	}{r.Size, r.Obstacles})
	if err != nil {
		return ""
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, data).String()
}

// Map builds the obstacle map for the record's own start and end.
func (r *Record) Map() (*obstaclemap.Map, error) {
	bounds, err := r.Bounds()
	if err != nil {
		return nil, err
	}
	obstacles := make([][]geometry.Point, len(r.Obstacles))
	for i, ring := range r.Obstacles {
		obstacles[i] = ringToPoints(ring)
	}
	start, end := r.Endpoints()
	return obstaclemap.New(bounds, obstacles, start, end)
}

// MapForRun builds the obstacle map with the endpoints of run i.
func (r *Record) MapForRun(i int) (*obstaclemap.Map, error) {
	if i < 0 || i >= len(r.Runs) {
		return nil, errors.Errorf("run %d out of range, record has %d", i, len(r.Runs))
	}
	m, err := r.Map()
	if err != nil {
		return nil, err
	}
	return m.WithEndpoints(r.Runs[i].Endpoints()), nil
}

// FromMap converts a map back into a record.
func FromMap(m *obstaclemap.Map) *Record {
	b := m.Bounds()
	start, end := toOrb(m.Start()), toOrb(m.End())
	rec := &Record{
		Size:      []orb.Point{toOrb(b.Min), toOrb(b.Max)},
		Obstacles: make([]orb.Ring, 0, m.NumObstacles()),
		Start:     &start,
		End:       &end,
	}
	for _, polygon := range m.Obstacles() {
		rec.Obstacles = append(rec.Obstacles, pointsToRing(polygon.Vertices()))
	}
	return rec
}

// PathToOrb converts a planned path into record coordinates.
func PathToOrb(path planning.Path) []orb.Point {
	if path == nil {
		return nil
	}
	out := make([]orb.Point, len(path))
	for i, p := range path {
		out[i] = toOrb(p)
	}
	return out
}

// PathFromOrb converts record coordinates into a path.
func PathFromOrb(points []orb.Point) planning.Path {
	if points == nil {
		return nil
	}
	out := make(planning.Path, len(points))
	for i, p := range points {
		out[i] = fromOrb(p)
	}
	return out
}

func toOrb(p geometry.Point) orb.Point {
	return orb.Point{p.X, p.Y}
}

func fromOrb(p orb.Point) geometry.Point {
	return geometry.Point{X: p.X(), Y: p.Y()}
}

func ringToPoints(ring orb.Ring) []geometry.Point {
	out := make([]geometry.Point, len(ring))
	for i, p := range ring {
		out[i] = fromOrb(p)
	}
	return out
}

func pointsToRing(points []geometry.Point) orb.Ring {
	out := make(orb.Ring, len(points))
	for i, p := range points {
		out[i] = toOrb(p)
	}
	return out
}
