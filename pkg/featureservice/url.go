package featureservice

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	queryPath          = "/query"
	relatedRecordsPath = "/queryRelatedRecords"

	// outFieldsDelimiter is ", " percent-encoded.
	outFieldsDelimiter = "%2C%20"
)

// BuildQueryURL returns the query URL for serviceURL. The related flag selects
// the queryRelatedRecords endpoint instead of query. The result always carries
// f=json, and outFields (when any non-empty name remains) is appended last.
func BuildQueryURL(serviceURL string, opts QueryOptions, related bool) string {
	path := queryPath
	if related {
		path = relatedRecordsPath
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(serviceURL, "/"))
	b.WriteString(path)
	b.WriteByte('?')

	enc := queryEncoder{b: &b}
	for _, p := range encodeParams(opts) {
		enc.add(p.Key, p.Value)
	}
	enc.add("f", "json")

	if fields := joinOutFields(opts.OutFields); fields != "" {
		b.WriteString("&outFields=")
		b.WriteString(fields)
	}

	return b.String()
}

// encodeParams flattens opts into parameters in their fixed wire order.
func encodeParams(opts QueryOptions) []Param {
	where := opts.Where
	if where == "" {
		where = MatchAll
	}
	params := []Param{{Key: "where", Value: where}}

	if opts.Geometry != nil {
		params = append(params, Param{Key: "geometry", Value: opts.Geometry.QueryValue()})

		geomType := opts.GeometryType
		if geomType == "" {
			geomType = GeometryTypePoint
		}
		params = append(params, Param{Key: "geometryType", Value: geomType})
	} else if opts.GeometryType != "" {
		params = append(params, Param{Key: "geometryType", Value: opts.GeometryType})
	}

	wkid := opts.SpatialReferenceWKID
	if wkid == 0 {
		if p, ok := opts.Geometry.(Point); ok {
			wkid = p.WKID()
		}
	}
	if wkid != 0 {
		params = append(params, Param{Key: "spatialReferenceWkid", Value: strconv.Itoa(wkid)})
	}
	if opts.InSR != 0 {
		params = append(params, Param{Key: "inSR", Value: strconv.Itoa(opts.InSR)})
	}
	if opts.OutSR != 0 {
		params = append(params, Param{Key: "outSR", Value: strconv.Itoa(opts.OutSR)})
	}
	if opts.GeometryPrecision != nil {
		params = append(params, Param{Key: "geometryPrecision", Value: strconv.Itoa(*opts.GeometryPrecision)})
	}
	if opts.ReturnGeometry != nil {
		params = append(params, Param{Key: "returnGeometry", Value: strconv.FormatBool(*opts.ReturnGeometry)})
	}
	if opts.OrderByFields != "" {
		params = append(params, Param{Key: "orderByFields", Value: opts.OrderByFields})
	}
	if len(opts.ObjectIDs) > 0 {
		ids := make([]string, len(opts.ObjectIDs))
		for i, id := range opts.ObjectIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		params = append(params, Param{Key: "objectIds", Value: strings.Join(ids, ",")})
	}
	if opts.RelationshipID != nil {
		params = append(params, Param{Key: "relationshipId", Value: strconv.Itoa(*opts.RelationshipID)})
	}
	if opts.ResultType != "" {
		params = append(params, Param{Key: "resultType", Value: opts.ResultType})
	}
	if opts.CacheHint != nil {
		params = append(params, Param{Key: "cacheHint", Value: strconv.FormatBool(*opts.CacheHint)})
	}
	if opts.Token != "" {
		params = append(params, Param{Key: "token", Value: opts.Token})
	}

	for _, p := range opts.Extra {
		if p.Key == "" || p.Key == "outFields" || p.Key == "f" {
			continue
		}
		params = append(params, p)
	}
	return params
}

// joinOutFields drops empty names and joins the rest with the encoded ", ".
// Names are path-escaped so aliases like "huc4 as HUC4" keep their spaces as %20.
func joinOutFields(fields []string) string {
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		kept = append(kept, escapeField(f))
	}
	return strings.Join(kept, outFieldsDelimiter)
}

func escapeField(f string) string {
	return strings.ReplaceAll(url.PathEscape(f), "%2A", "*")
}

// queryEncoder writes key=value pairs in insertion order, unlike url.Values
// which sorts by key.
type queryEncoder struct {
	b     *strings.Builder
	count int
}

func (e *queryEncoder) add(key, value string) {
	if e.count > 0 {
		e.b.WriteByte('&')
	}
	e.b.WriteString(url.QueryEscape(key))
	e.b.WriteByte('=')
	e.b.WriteString(url.QueryEscape(value))
	e.count++
}
