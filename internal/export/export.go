// Package export writes normalized feature-service records as JSON, GeoJSON,
// ESRI shapefiles or XLSX workbooks.
package export

import (
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/feature-query/pkg/featureservice"
)

// Format is an output encoding.
type Format int

const (
	// JSON writes the records as an indented JSON array.
	JSON Format = iota + 1
	// GeoJSON writes a FeatureCollection.
	GeoJSON
	// Shapefile writes .shp/.shx/.dbf files.
	Shapefile
	// XLSX writes a single-sheet workbook.
	XLSX
)

var formatNames = map[Format]string{
	JSON:      "json",
	GeoJSON:   "geojson",
	Shapefile: "shapefile",
	XLSX:      "xlsx",
}

// String returns the format name used in flags.
func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return "unknown"
}

// ParseFormat converts a string into a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json", "":
		return JSON, nil
	case "geojson":
		return GeoJSON, nil
	case "shapefile", "shp":
		return Shapefile, nil
	case "xlsx":
		return XLSX, nil
	default:
		return 0, eris.Errorf("export: unknown format %q (valid: json, geojson, shapefile, xlsx)", s)
	}
}

// Write encodes records to w. Shapefiles need a path; use WriteFile.
func Write(w io.Writer, format Format, records []featureservice.Record) error {
	switch format {
	case JSON:
		return writeJSON(w, records)
	case GeoJSON:
		return writeGeoJSON(w, records)
	case XLSX:
		return writeXLSX(w, records)
	case Shapefile:
		return eris.New("export: shapefile output requires a file path")
	default:
		return eris.Errorf("export: unsupported format %s", format)
	}
}

// WriteFile encodes records to path. For shapefiles path names the .shp file
// and the .shx and .dbf files are written beside it.
func WriteFile(path string, format Format, records []featureservice.Record) error {
	if format == Shapefile {
		return writeShapefile(path, records)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := Write(f, format, records); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "export: close %s", path)
	}
	return nil
}

func writeJSON(w io.Writer, records []featureservice.Record) error {
	if records == nil {
		records = []featureservice.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return eris.Wrap(err, "export: encode json")
	}
	return nil
}

// columns returns the sorted union of attribute names across records.
func columns(records []featureservice.Record) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for k := range r.Attributes {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// numericColumns reports which columns hold only numbers (ignoring nulls).
func numericColumns(records []featureservice.Record, cols []string) map[string]bool {
	numeric := make(map[string]bool, len(cols))
	for _, c := range cols {
		numeric[c] = true
	}
	for _, r := range records {
		for _, c := range cols {
			v, ok := r.Attributes[c]
			if !ok || v == nil {
				continue
			}
			if _, isNum := v.(float64); !isNum {
				numeric[c] = false
			}
		}
	}
	return numeric
}
