package mapfile

import (
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

// Feature roles. Features without a role are read as obstacles if they are
// polygons and ignored otherwise.
const (
	RoleObstacle  = "obstacle"
	RoleWorkspace = "workspace"
	RoleStart     = "start"
	RoleEnd       = "end"
	RolePath      = "path"
)

// LoadGeoJSON reads a GeoJSON feature collection file into a record.
func LoadGeoJSON(filename string) (*Record, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	rec, err := DecodeGeoJSON(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", filename)
	}
	return rec, nil
}

// DecodeGeoJSON converts a feature collection into a record. Only the outer
// ring of each polygon is kept; holes are dropped.
func DecodeGeoJSON(data []byte) (*Record, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(err, "parse geojson")
	}

	rec := &Record{}
	for i, f := range fc.Features {
		role := f.Properties.MustString("role", RoleObstacle)

		switch g := f.Geometry.(type) {
		case orb.Polygon:
			if len(g) == 0 {
				continue
			}
			if role == RoleWorkspace {
				b := g.Bound()
				rec.Size = []orb.Point{b.Min, b.Max}
				continue
			}
			rec.Obstacles = append(rec.Obstacles, openRing(g[0]))
		case orb.MultiPolygon:
			for _, polygon := range g {
				if len(polygon) > 0 {
					rec.Obstacles = append(rec.Obstacles, openRing(polygon[0]))
				}
			}
		case orb.Point:
			p := g
			switch role {
			case RoleStart:
				rec.Start = &p
			case RoleEnd:
				rec.End = &p
			}
		case nil:
			return nil, errors.Errorf("feature %d has no geometry", i)
		}
	}
	return rec, nil
}

// EncodeGeoJSON writes the record as a feature collection: the workspace and
// obstacles as polygons, the endpoints as points and every solved run path as
// a line string.
func EncodeGeoJSON(rec *Record) ([]byte, error) {
	fc := geojson.NewFeatureCollection()

	if bounds, err := rec.Bounds(); err == nil {
		ws := geojson.NewFeature(orb.Bound{Min: toOrb(bounds.Min), Max: toOrb(bounds.Max)}.ToPolygon())
		ws.Properties["role"] = RoleWorkspace
		fc.Append(ws)
	}

	for i, ring := range rec.Obstacles {
		f := geojson.NewFeature(orb.Polygon{closeRing(ring)})
		f.Properties["role"] = RoleObstacle
		f.Properties["index"] = i
		fc.Append(f)
	}

	start, end := rec.Endpoints()
	for _, ep := range []struct {
		role  string
		point orb.Point
	}{{RoleStart, toOrb(start)}, {RoleEnd, toOrb(end)}} {
		f := geojson.NewFeature(ep.point)
		f.Properties["role"] = ep.role
		fc.Append(f)
	}

	for _, run := range rec.Runs {
		if len(run.Path) < 2 {
			continue
		}
		f := geojson.NewFeature(orb.LineString(run.Path))
		f.Properties["role"] = RolePath
		if run.ID != "" {
			f.Properties["run"] = run.ID
		}
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "encode geojson")
	}
	return data, nil
}

// openRing drops the repeated closing vertex GeoJSON rings carry.
func openRing(r orb.Ring) orb.Ring {
	out := r.Clone()
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

func closeRing(r orb.Ring) orb.Ring {
	out := r.Clone()
	if len(out) > 0 && out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}
