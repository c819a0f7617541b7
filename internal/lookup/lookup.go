// Package lookup binds catalog datasets to the feature-service query core:
// it turns a FIPS code or point into query options, runs the query, and
// returns normalized records.
package lookup

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/feature-query/internal/catalog"
	"github.com/sells-group/feature-query/internal/geoid"
	"github.com/sells-group/feature-query/pkg/featureservice"
)

// Executor runs a built query URL. *featureservice.Executor satisfies it.
type Executor interface {
	Execute(ctx context.Context, rawURL string, shape featureservice.ResultShape) ([]featureservice.Record, error)
}

// InputError is a caller mistake detected before any request is made.
type InputError struct {
	msg string
}

func (e *InputError) Error() string { return e.msg }

func inputErrorf(format string, args ...any) *InputError {
	return &InputError{msg: fmt.Sprintf(format, args...)}
}

// ErrInvalidLocation is returned when a Location carries no selector or more
// than one.
var ErrInvalidLocation = &InputError{msg: "lookup: exactly one of a FIPS code, a HUC code or a point must be provided"}

// Location identifies the area to look up. Exactly one of FIPS, HUC or Point
// must be set.
type Location struct {
	FIPS  string
	HUC   string
	Point *featureservice.Point
	Token string
}

// Validate checks that exactly one selector is set.
func (l Location) Validate() error {
	n := 0
	for _, set := range []bool{l.FIPS != "", l.HUC != "", l.Point != nil} {
		if set {
			n++
		}
	}
	if n != 1 {
		return ErrInvalidLocation
	}
	return nil
}

// kind names the selector in use.
func (l Location) kind() string {
	switch {
	case l.FIPS != "":
		return "FIPS"
	case l.HUC != "":
		return "HUC"
	default:
		return "point"
	}
}

// supports reports whether d can be queried with the selector set in loc.
// Every dataset accepts points.
func supports(d catalog.Dataset, loc Location) bool {
	switch {
	case loc.FIPS != "":
		return d.SupportsFIPS()
	case loc.HUC != "":
		return d.SupportsHUC()
	default:
		return true
	}
}

const defaultConcurrency = 4

// Option configures a Service.
type Option func(*Service)

// WithConcurrency bounds the number of in-flight queries per Profile call.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// Service runs dataset lookups against a catalog.
type Service struct {
	exec        Executor
	catalog     *catalog.Registry
	concurrency int
}

// New creates a Service over the given executor and catalog.
func New(exec Executor, reg *catalog.Registry, opts ...Option) *Service {
	s := &Service{
		exec:        exec,
		catalog:     reg,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the registry the service resolves dataset names against.
func (s *Service) Catalog() *catalog.Registry { return s.catalog }

// Lookup queries the named dataset for loc.
func (s *Service) Lookup(ctx context.Context, dataset string, loc Location) ([]featureservice.Record, error) {
	d, err := s.catalog.Get(dataset)
	if err != nil {
		return nil, inputErrorf("lookup: unknown dataset %q (available: %s)", dataset, strings.Join(s.catalog.Names(), ", "))
	}
	return s.LookupDataset(ctx, d, loc)
}

// LookupDataset queries d for loc. Location errors are returned before any
// request is made.
func (s *Service) LookupDataset(ctx context.Context, d catalog.Dataset, loc Location) ([]featureservice.Record, error) {
	opts, err := locationOptions(d, loc)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("component", "lookup"), zap.String("dataset", d.Name))

	if d.IsRelated() {
		return s.lookupRelated(ctx, d, opts, log)
	}

	opts.OutFields = outFields(d)
	opts.ReturnGeometry = featureservice.Bool(d.Shape == featureservice.Full)

	records, err := s.exec.Execute(ctx, featureservice.BuildQueryURL(d.ServiceURL, opts, false), d.Shape)
	if err != nil {
		return nil, err
	}
	log.Debug("lookup complete", zap.Int("records", len(records)))
	return records, nil
}

// lookupRelated resolves the location to an object id, then traverses the
// dataset's relationship from that feature.
func (s *Service) lookupRelated(ctx context.Context, d catalog.Dataset, opts featureservice.QueryOptions, log *zap.Logger) ([]featureservice.Record, error) {
	opts.OutFields = []string{d.ObjectIDField}
	opts.ReturnGeometry = featureservice.Bool(false)

	matches, err := s.exec.Execute(ctx, featureservice.BuildQueryURL(d.ServiceURL, opts, false), featureservice.AttributesOnly)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		log.Debug("no features matched, skipping related query")
		return []featureservice.Record{}, nil
	}

	oid, ok := matches[0].Attributes.Float(d.ObjectIDField)
	if !ok {
		return nil, eris.Errorf("lookup: dataset %q feature has no numeric %s", d.Name, d.ObjectIDField)
	}
	if len(matches) > 1 {
		log.Debug("multiple features matched, using the first", zap.Int("matches", len(matches)))
	}

	related := featureservice.QueryOptions{
		OutFields:      outFields(d),
		ObjectIDs:      []int64{int64(oid)},
		RelationshipID: d.RelationshipID,
		Token:          opts.Token,
	}
	records, err := s.exec.Execute(ctx, featureservice.BuildQueryURL(d.ServiceURL, related, true), featureservice.Related)
	if err != nil {
		return nil, err
	}
	log.Debug("related lookup complete", zap.Int64("object_id", int64(oid)), zap.Int("records", len(records)))
	return records, nil
}

// locationOptions converts loc into the where clause or point geometry for d.
func locationOptions(d catalog.Dataset, loc Location) (featureservice.QueryOptions, error) {
	if err := loc.Validate(); err != nil {
		return featureservice.QueryOptions{}, err
	}
	opts := featureservice.QueryOptions{Token: loc.Token}

	if loc.Point != nil {
		opts.Geometry = *loc.Point
		opts.GeometryType = featureservice.GeometryTypePoint
		return opts, nil
	}

	if !supports(d, loc) {
		return featureservice.QueryOptions{}, inputErrorf("lookup: dataset %q does not support %s lookups", d.Name, loc.kind())
	}

	if loc.HUC != "" {
		code, _, err := geoid.ParseHUC(loc.HUC)
		if err != nil {
			return featureservice.QueryOptions{}, inputErrorf("lookup: invalid HUC code %q", loc.HUC)
		}
		opts.Where = geoid.WhereHUC(d.HUCField, d.HUCLevel, code)
		return opts, nil
	}

	code, _, err := geoid.Validate(loc.FIPS)
	if err != nil {
		return featureservice.QueryOptions{}, inputErrorf("lookup: invalid FIPS code %q", loc.FIPS)
	}
	opts.Where = geoid.WhereEquals(d.FIPSField, code, d.QuoteFIPS)
	return opts, nil
}

func outFields(d catalog.Dataset) []string {
	if len(d.OutFields) == 0 {
		return []string{"*"}
	}
	return d.OutFields
}
