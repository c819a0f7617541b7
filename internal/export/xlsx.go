package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/sells-group/feature-query/pkg/featureservice"
)

const (
	sheetName      = "records"
	geometryColumn = "geometry_wkt"
)

// writeXLSX writes one sheet with a header row of attribute names and one row
// per record. Numbers are written as numeric cells. When any record carries a
// geometry a trailing WKT column is added.
func writeXLSX(w io.Writer, records []featureservice.Record) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	cols := columns(records)
	withGeom := hasGeometry(records)

	header := sheet.AddRow()
	for _, c := range cols {
		header.AddCell().SetString(c)
	}
	if withGeom {
		header.AddCell().SetString(geometryColumn)
	}

	for _, r := range records {
		row := sheet.AddRow()
		for _, c := range cols {
			cell := row.AddCell()
			switch v := r.Attributes[c].(type) {
			case nil:
			case float64:
				cell.SetFloat(v)
			default:
				cell.SetString(r.Attributes.String(c))
			}
		}
		if withGeom {
			row.AddCell().SetString(geometryWKT(r))
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

func hasGeometry(records []featureservice.Record) bool {
	for _, r := range records {
		if r.Geometry != nil {
			return true
		}
	}
	return false
}

func geometryWKT(r featureservice.Record) string {
	if r.Geometry == nil {
		return ""
	}
	g := r.Geometry.Geom(srid(r))
	if g == nil {
		return ""
	}
	s, err := wkt.Marshal(g)
	if err != nil {
		return ""
	}
	return s
}
