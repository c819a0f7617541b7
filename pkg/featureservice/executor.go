package featureservice

import (
	"context"
	"encoding/json"
	"io"
	"net/url"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Fetcher retrieves a URL and returns the response body. Non-200 responses and
// connection failures are returned as errors.
type Fetcher interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

var tracer = otel.Tracer("github.com/sells-group/feature-query/pkg/featureservice")

// Executor runs built query URLs and normalizes the responses. It holds no
// per-request state and is safe for concurrent use.
type Executor struct {
	fetcher Fetcher
}

// NewExecutor creates an Executor that issues requests through f.
func NewExecutor(f Fetcher) *Executor {
	return &Executor{fetcher: f}
}

// envelope is the top level of a query response. Members are decoded lazily
// so an error member short-circuits parsing of everything else.
type envelope map[string]json.RawMessage

type rawFeature struct {
	Attributes Attributes      `json:"attributes"`
	Geometry   json.RawMessage `json:"geometry"`
}

type relatedRecordGroup struct {
	ObjectID       json.RawMessage `json:"objectId"`
	RelatedRecords []rawFeature    `json:"relatedRecords"`
}

type envelopeSpatialReference struct {
	WKID *int `json:"wkid"`
}

// Execute issues a GET for rawURL and returns the matched records in service
// order. Errors are *TransportError, *DecodeError or *ServiceError. Cancel
// ctx to abandon an in-flight request.
func (e *Executor) Execute(ctx context.Context, rawURL string, shape ResultShape) (records []Record, err error) {
	queryID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "featureservice.execute", trace.WithAttributes(
		attribute.String("query.id", queryID),
		attribute.String("query.path", urlPath(rawURL)),
		attribute.String("query.shape", shape.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("query.records", len(records)))
		}
		span.End()
	}()

	log := zap.L().With(
		zap.String("component", "featureservice.executor"),
		zap.String("query_id", queryID),
		zap.String("shape", shape.String()),
	)

	body, err := e.fetcher.Download(ctx, rawURL)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	defer body.Close() //nolint:errcheck

	var env envelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		return nil, &DecodeError{URL: rawURL, Err: err}
	}

	if raw, ok := env["error"]; ok && isTruthy(raw) {
		se := decodeServiceError(raw)
		log.Debug("service returned error", zap.Int("code", se.Code), zap.String("message", se.Message))
		return nil, se
	}

	records, err = normalize(env, shape)
	if err != nil {
		return nil, &DecodeError{URL: rawURL, Err: err}
	}

	log.Debug("query complete", zap.Int("records", len(records)))
	return records, nil
}

// normalize flattens the envelope according to shape.
func normalize(env envelope, shape ResultShape) ([]Record, error) {
	switch shape {
	case Related:
		var groups []relatedRecordGroup
		if err := decodeMember(env, "relatedRecordGroups", &groups); err != nil {
			return nil, err
		}
		if len(groups) == 0 {
			return []Record{}, nil
		}
		out := make([]Record, 0, len(groups[0].RelatedRecords))
		for _, rec := range groups[0].RelatedRecords {
			out = append(out, Record{Shape: Related, Attributes: rec.Attributes})
		}
		return out, nil

	case AttributesOnly:
		var features []rawFeature
		if err := decodeMember(env, "features", &features); err != nil {
			return nil, err
		}
		out := make([]Record, 0, len(features))
		for _, f := range features {
			out = append(out, Record{Shape: AttributesOnly, Attributes: f.Attributes})
		}
		return out, nil

	case Full:
		var features []rawFeature
		if err := decodeMember(env, "features", &features); err != nil {
			return nil, err
		}
		var sr envelopeSpatialReference
		if err := decodeMember(env, "spatialReference", &sr); err != nil {
			return nil, err
		}
		out := make([]Record, 0, len(features))
		for i, f := range features {
			g, err := DecodeGeometry(f.Geometry)
			if err != nil {
				return nil, eris.Wrapf(err, "featureservice: feature %d", i)
			}
			out = append(out, Record{
				Shape:                Full,
				Attributes:           f.Attributes,
				SpatialReferenceWKID: sr.WKID,
				Geometry:             g,
			})
		}
		return out, nil

	default:
		return nil, eris.Errorf("featureservice: unsupported result shape %d", int(shape))
	}
}

// decodeMember unmarshals env[key] into v. Missing and null members leave v unchanged.
func decodeMember(env envelope, key string, v any) error {
	raw, ok := env[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return eris.Wrapf(err, "featureservice: decode %s", key)
	}
	return nil
}

func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path
}
