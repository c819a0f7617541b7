package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/feature-query/pkg/featureservice"
)

// writeGeoJSON writes a FeatureCollection. Records without a convertible
// geometry become features with a null geometry.
func writeGeoJSON(w io.Writer, records []featureservice.Record) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(records))}
	for _, r := range records {
		props := make(map[string]interface{}, len(r.Attributes))
		for k, v := range r.Attributes {
			props[k] = v
		}
		f := &geojson.Feature{Properties: props}
		if r.Geometry != nil {
			f.Geometry = r.Geometry.Geom(srid(r))
		}
		fc.Features = append(fc.Features, f)
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrap(err, "export: encode geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}

func srid(r featureservice.Record) int {
	if r.SpatialReferenceWKID == nil {
		return 0
	}
	return *r.SpatialReferenceWKID
}
