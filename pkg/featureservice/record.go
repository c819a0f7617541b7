package featureservice

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
)

// ResultShape selects how the executor flattens a response.
type ResultShape int

const (
	// AttributesOnly returns each feature's attributes mapping.
	AttributesOnly ResultShape = iota + 1
	// Full returns attributes, geometry and the envelope spatial reference.
	Full
	// Related returns the attributes of the first related-record group.
	Related
)

// String returns the shape name used in config and flags.
func (s ResultShape) String() string {
	switch s {
	case AttributesOnly:
		return "attributes"
	case Full:
		return "full"
	case Related:
		return "related"
	default:
		return "unknown"
	}
}

// ParseResultShape converts a string into a ResultShape.
func ParseResultShape(s string) (ResultShape, error) {
	switch s {
	case "attributes", "attributes_only", "attributesOnly":
		return AttributesOnly, nil
	case "full":
		return Full, nil
	case "related":
		return Related, nil
	default:
		return 0, eris.Errorf("unknown result shape: %q (valid: attributes, full, related)", s)
	}
}

// Attributes maps field names to scalar values. Numbers decode as float64.
type Attributes map[string]any

// String returns the value of key formatted as a string, or "" if absent.
func (a Attributes) String(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Float returns the numeric value of key. Numeric strings are parsed.
func (a Attributes) Float(key string) (float64, bool) {
	switch t := a[key].(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Record is one normalized result. SpatialReferenceWKID and Geometry are only
// populated for the Full shape.
type Record struct {
	Shape                ResultShape
	Attributes           Attributes
	SpatialReferenceWKID *int
	Geometry             FeatureGeometry
}

type fullRecordJSON struct {
	Attributes           Attributes      `json:"attributes"`
	SpatialReferenceWKID *int            `json:"spatialReferenceWkid"`
	Geometry             FeatureGeometry `json:"geometry"`
}

// MarshalJSON writes Full records as {attributes, spatialReferenceWkid,
// geometry} and every other shape as the bare attributes mapping.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.Shape != Full {
		if r.Attributes == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(r.Attributes)
	}
	attrs := r.Attributes
	if attrs == nil {
		attrs = Attributes{}
	}
	return json.Marshal(fullRecordJSON{
		Attributes:           attrs,
		SpatialReferenceWKID: r.SpatialReferenceWKID,
		Geometry:             r.Geometry,
	})
}
