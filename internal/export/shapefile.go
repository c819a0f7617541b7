package export

import (
	"fmt"
	"strconv"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/feature-query/pkg/featureservice"
)

// dbfNameLen is the maximum DBF column name length.
const dbfNameLen = 10

// writeShapefile writes records with geometry to path. The shape type is taken
// from the first record with a convertible geometry; records of another kind
// are skipped.
func writeShapefile(path string, records []featureservice.Record) error {
	kind, shapeType, ok := firstShapeType(records)
	if !ok {
		return eris.New("export: shapefile requires at least one point, polygon or polyline geometry")
	}

	w, err := shp.Create(path, shapeType)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	cols := columns(records)
	numeric := numericColumns(records, cols)
	names := dbfNames(cols)
	fields := make([]shp.Field, len(cols))
	for i, c := range cols {
		if numeric[c] {
			fields[i] = shp.FloatField(names[i], 24, 6)
		} else {
			fields[i] = shp.StringField(names[i], 254)
		}
	}
	if err := w.SetFields(fields); err != nil {
		return eris.Wrap(err, "export: set shapefile fields")
	}

	var skipped int
	for _, r := range records {
		if r.Geometry == nil || r.Geometry.Kind() != kind {
			skipped++
			continue
		}
		shape := toShape(r.Geometry.Geom(srid(r)))
		if shape == nil {
			skipped++
			continue
		}
		row := int(w.Write(shape))
		for i, c := range cols {
			v, ok := r.Attributes[c]
			if !ok || v == nil {
				continue
			}
			var val interface{}
			if numeric[c] {
				val = v
			} else {
				val = r.Attributes.String(c)
			}
			if err := w.WriteAttribute(row, i, val); err != nil {
				return eris.Wrapf(err, "export: write attribute %s", c)
			}
		}
	}

	if skipped > 0 {
		zap.L().Warn("export: skipped records without matching geometry",
			zap.String("path", path),
			zap.String("kind", kind.String()),
			zap.Int("skipped", skipped),
		)
	}
	return nil
}

func firstShapeType(records []featureservice.Record) (featureservice.GeometryKind, shp.ShapeType, bool) {
	for _, r := range records {
		if r.Geometry == nil {
			continue
		}
		switch r.Geometry.Kind() {
		case featureservice.KindPoint:
			return featureservice.KindPoint, shp.POINT, true
		case featureservice.KindPolygon:
			return featureservice.KindPolygon, shp.POLYGON, true
		case featureservice.KindPolyline:
			return featureservice.KindPolyline, shp.POLYLINE, true
		}
	}
	return 0, 0, false
}

// toShape converts a go-geom geometry produced by FeatureGeometry.Geom into a
// go-shp shape.
func toShape(g geom.T) shp.Shape {
	switch t := g.(type) {
	case *geom.Point:
		return &shp.Point{X: t.X(), Y: t.Y()}
	case *geom.MultiPolygon:
		var parts [][]shp.Point
		for i := 0; i < t.NumPolygons(); i++ {
			poly := t.Polygon(i)
			for j := 0; j < poly.NumLinearRings(); j++ {
				parts = append(parts, shpPoints(poly.LinearRing(j).FlatCoords()))
			}
		}
		if len(parts) == 0 {
			return nil
		}
		p := shp.Polygon(*shp.NewPolyLine(parts))
		return &p
	case *geom.MultiLineString:
		var parts [][]shp.Point
		for i := 0; i < t.NumLineStrings(); i++ {
			parts = append(parts, shpPoints(t.LineString(i).FlatCoords()))
		}
		if len(parts) == 0 {
			return nil
		}
		return shp.NewPolyLine(parts)
	default:
		return nil
	}
}

func shpPoints(flat []float64) []shp.Point {
	pts := make([]shp.Point, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		pts = append(pts, shp.Point{X: flat[i], Y: flat[i+1]})
	}
	return pts
}

// dbfNames truncates column names to the DBF limit, suffixing a counter when
// truncation makes two names collide.
func dbfNames(cols []string) []string {
	out := make([]string, len(cols))
	used := make(map[string]bool, len(cols))
	for i, c := range cols {
		name := c
		if len(name) > dbfNameLen {
			name = name[:dbfNameLen]
		}
		for n := 1; used[name]; n++ {
			suffix := strconv.Itoa(n)
			base := c
			if len(base) > dbfNameLen-len(suffix) {
				base = base[:dbfNameLen-len(suffix)]
			}
			name = fmt.Sprintf("%s%s", base, suffix)
		}
		used[name] = true
		out[i] = name
	}
	return out
}
