// Package featureservice builds ArcGIS feature-service query URLs and normalizes
// the JSON responses into uniform records.
package featureservice

import (
	"encoding/json"
	"strconv"
)

// GeometryTypePoint is the esriGeometryType sent with point geometries.
const GeometryTypePoint = "esriGeometryPoint"

// MatchAll is the where clause used when the caller supplies none.
const MatchAll = "1=1"

// QueryOptions holds the parameters of a feature query. Zero values are omitted
// from the encoded URL, except Where which defaults to MatchAll.
type QueryOptions struct {
	Where     string
	OutFields []string

	// Geometry is nil, a Point or a SpatialPoint.
	Geometry     Geometry
	GeometryType string

	SpatialReferenceWKID int
	InSR                 int
	OutSR                int
	GeometryPrecision    *int

	ReturnGeometry *bool
	OrderByFields  string
	ObjectIDs      []int64
	RelationshipID *int
	ResultType     string
	CacheHint      *bool

	Token string

	// Extra carries service parameters that have no dedicated field. They are
	// encoded after the named parameters, in slice order.
	Extra []Param
}

// Param is a single passthrough query parameter.
type Param struct {
	Key   string
	Value string
}

// Geometry is a query geometry that knows how to encode itself as the
// geometry parameter.
type Geometry interface {
	// QueryValue returns the value of the geometry parameter.
	QueryValue() string
	// WKID returns the spatial reference carried by the geometry, or 0.
	WKID() int
}

// Point is a point in the simple "x, y" form. Its spatial reference travels as
// the separate spatialReferenceWkid parameter.
type Point struct {
	X              float64
	Y              float64
	SpatialRefWKID int
}

// QueryValue implements Geometry.
func (p Point) QueryValue() string {
	return formatFloat(p.X) + ", " + formatFloat(p.Y)
}

// WKID implements Geometry.
func (p Point) WKID() int { return p.SpatialRefWKID }

// SpatialPoint is a point in the JSON form with an embedded spatial reference.
// Use it together with InSR, OutSR or GeometryPrecision.
type SpatialPoint struct {
	X              float64
	Y              float64
	SpatialRefWKID int
}

type spatialPointJSON struct {
	X                float64          `json:"x"`
	Y                float64          `json:"y"`
	SpatialReference spatialReference `json:"spatialReference"`
}

type spatialReference struct {
	WKID int `json:"wkid"`
}

// QueryValue implements Geometry.
func (p SpatialPoint) QueryValue() string {
	// Marshal cannot fail for finite floats; NaN and Inf fall back to the simple form.
	data, err := json.Marshal(spatialPointJSON{
		X:                p.X,
		Y:                p.Y,
		SpatialReference: spatialReference{WKID: p.SpatialRefWKID},
	})
	if err != nil {
		return formatFloat(p.X) + ", " + formatFloat(p.Y)
	}
	return string(data)
}

// WKID implements Geometry.
func (p SpatialPoint) WKID() int { return p.SpatialRefWKID }

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Bool returns a pointer to b, for the optional boolean options.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to i, for the optional integer options.
func Int(i int) *int { return &i }
