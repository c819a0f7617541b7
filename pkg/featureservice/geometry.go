package featureservice

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// GeometryKind discriminates the feature geometry variants.
type GeometryKind int

const (
	// KindPoint is an Esri point ({x, y}).
	KindPoint GeometryKind = iota + 1
	// KindPolygon is an Esri polygon ({rings}).
	KindPolygon
	// KindPolyline is an Esri polyline ({paths}).
	KindPolyline
	// KindRaw is any other geometry, kept verbatim.
	KindRaw
)

// String returns the esriGeometryType-style name of the kind.
func (k GeometryKind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindPolygon:
		return "polygon"
	case KindPolyline:
		return "polyline"
	case KindRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// FeatureGeometry is the geometry of a returned feature. The concrete type is
// one of *PointGeometry, *PolygonGeometry, *PolylineGeometry or *RawGeometry.
type FeatureGeometry interface {
	Kind() GeometryKind
	// Geom converts the geometry to go-geom with the given SRID.
	// It returns nil for geometries with no usable coordinates.
	Geom(srid int) geom.T
}

// PointGeometry is a feature point. Raw holds the geometry as the service
// sent it, including z, m and spatialReference members.
type PointGeometry struct {
	X   float64         `json:"x"`
	Y   float64         `json:"y"`
	Raw json.RawMessage `json:"-"`
}

// MarshalJSON writes Raw when set, otherwise {x, y}.
func (p *PointGeometry) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	type plain PointGeometry
	return json.Marshal((*plain)(p))
}

// Kind implements FeatureGeometry.
func (*PointGeometry) Kind() GeometryKind { return KindPoint }

// Geom implements FeatureGeometry.
func (p *PointGeometry) Geom(srid int) geom.T {
	return geom.NewPointFlat(geom.XY, []float64{p.X, p.Y}).SetSRID(srid)
}

// PolygonGeometry is a feature polygon. Each ring is a list of coordinates;
// coordinates may carry Z/M values after x and y.
type PolygonGeometry struct {
	Rings [][][]float64   `json:"rings"`
	Raw   json.RawMessage `json:"-"`
}

// MarshalJSON writes Raw when set, otherwise {rings}.
func (p *PolygonGeometry) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	type plain PolygonGeometry
	return json.Marshal((*plain)(p))
}

// Kind implements FeatureGeometry.
func (*PolygonGeometry) Kind() GeometryKind { return KindPolygon }

// Geom implements FeatureGeometry. Clockwise rings start a new polygon and
// counter-clockwise rings become holes of the polygon before them.
func (p *PolygonGeometry) Geom(srid int) geom.T {
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(srid)

	var current *geom.Polygon
	for i, ring := range p.Rings {
		flat := flatXY(ring)
		if len(flat) < 8 {
			zap.L().Debug("featureservice: skipping degenerate ring", zap.Int("ring", i))
			continue
		}
		lr := geom.NewLinearRingFlat(geom.XY, flat)

		if current == nil || isClockwise(ring) {
			if current != nil {
				if err := mp.Push(current); err != nil {
					zap.L().Debug("featureservice: skipping malformed polygon", zap.Int("ring", i), zap.Error(err))
				}
			}
			current = geom.NewPolygon(geom.XY)
		}
		if err := current.Push(lr); err != nil {
			zap.L().Debug("featureservice: skipping malformed ring", zap.Int("ring", i), zap.Error(err))
		}
	}
	if current != nil {
		if err := mp.Push(current); err != nil {
			zap.L().Debug("featureservice: skipping malformed polygon", zap.Error(err))
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// PolylineGeometry is a feature polyline.
type PolylineGeometry struct {
	Paths [][][]float64   `json:"paths"`
	Raw   json.RawMessage `json:"-"`
}

// MarshalJSON writes Raw when set, otherwise {paths}.
func (p *PolylineGeometry) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	type plain PolylineGeometry
	return json.Marshal((*plain)(p))
}

// Kind implements FeatureGeometry.
func (*PolylineGeometry) Kind() GeometryKind { return KindPolyline }

// Geom implements FeatureGeometry.
func (p *PolylineGeometry) Geom(srid int) geom.T {
	mls := geom.NewMultiLineString(geom.XY).SetSRID(srid)
	for i, path := range p.Paths {
		flat := flatXY(path)
		if len(flat) < 4 {
			zap.L().Debug("featureservice: skipping degenerate path", zap.Int("path", i))
			continue
		}
		if err := mls.Push(geom.NewLineStringFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("featureservice: skipping malformed path", zap.Int("path", i), zap.Error(err))
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

// RawGeometry is a geometry this package does not model (multipoint,
// envelope). The service JSON is kept as-is.
type RawGeometry struct {
	JSON json.RawMessage
}

// Kind implements FeatureGeometry.
func (*RawGeometry) Kind() GeometryKind { return KindRaw }

// Geom implements FeatureGeometry. Raw geometries have no conversion.
func (*RawGeometry) Geom(int) geom.T { return nil }

// MarshalJSON writes the original JSON.
func (r *RawGeometry) MarshalJSON() ([]byte, error) {
	if len(r.JSON) == 0 {
		return []byte("null"), nil
	}
	return r.JSON, nil
}

// geometryProbe is used to pick the variant from the keys present on the wire.
type geometryProbe struct {
	X     *float64      `json:"x"`
	Y     *float64      `json:"y"`
	Rings [][][]float64 `json:"rings"`
	Paths [][][]float64 `json:"paths"`
}

// DecodeGeometry decodes an Esri JSON geometry. Absent or null input yields
// nil. Only malformed JSON is an error: well-formed geometries that do not fit
// a typed variant, such as the empty point {"x":"NaN","y":"NaN"}, come back as
// *RawGeometry. Every variant keeps the input bytes for re-serialization.
func DecodeGeometry(raw json.RawMessage) (FeatureGeometry, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, eris.New("featureservice: decode geometry: invalid JSON")
	}
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)

	var probe geometryProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		zap.L().Debug("featureservice: keeping geometry as raw JSON", zap.Error(err))
		return &RawGeometry{JSON: cp}, nil
	}

	switch {
	case probe.X != nil && probe.Y != nil:
		return &PointGeometry{X: *probe.X, Y: *probe.Y, Raw: cp}, nil
	case probe.Rings != nil:
		return &PolygonGeometry{Rings: probe.Rings, Raw: cp}, nil
	case probe.Paths != nil:
		return &PolylineGeometry{Paths: probe.Paths, Raw: cp}, nil
	default:
		return &RawGeometry{JSON: cp}, nil
	}
}

// flatXY keeps the x and y of each coordinate, dropping Z/M and short entries.
func flatXY(coords [][]float64) []float64 {
	flat := make([]float64, 0, len(coords)*2)
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		flat = append(flat, c[0], c[1])
	}
	return flat
}

// isClockwise reports whether the ring winds clockwise with y pointing up,
// which is how Esri marks outer rings.
func isClockwise(ring [][]float64) bool {
	var sum float64
	for i := 0; i+1 < len(ring); i++ {
		a, b := ring[i], ring[i+1]
		if len(a) < 2 || len(b) < 2 {
			continue
		}
		sum += a[0]*b[1] - b[0]*a[1]
	}
	return sum < 0
}
