package lookup

import (
	"context"

	"github.com/sells-group/feature-query/pkg/featureservice"
)

// Population returns ACS population attributes for the county at loc.
func (s *Service) Population(ctx context.Context, loc Location) ([]featureservice.Record, error) {
	return s.Lookup(ctx, "population", loc)
}

// Housing returns ACS housing-unit attributes for the county at loc.
func (s *Service) Housing(ctx context.Context, loc Location) ([]featureservice.Record, error) {
	return s.Lookup(ctx, "housing", loc)
}

// WaterAndLandArea returns ALAND/AWATER for the county at loc.
func (s *Service) WaterAndLandArea(ctx context.Context, loc Location) ([]featureservice.Record, error) {
	return s.Lookup(ctx, "water_area", loc)
}

// Drought returns the current drought intensity for the county at loc.
func (s *Service) Drought(ctx context.Context, loc Location) ([]featureservice.Record, error) {
	return s.Lookup(ctx, "drought", loc)
}

// Watershed returns the HUC12 subwatersheds at a point, or those matching a HUC code.
func (s *Service) Watershed(ctx context.Context, loc Location) ([]featureservice.Record, error) {
	return s.Lookup(ctx, "watershed", loc)
}

// GeoID returns the census tract at loc with its geometry.
func (s *Service) GeoID(ctx context.Context, loc Location) ([]featureservice.Record, error) {
	return s.Lookup(ctx, "geoid", loc)
}

// DroughtHistory returns the weekly drought records related to the county at loc.
func (s *Service) DroughtHistory(ctx context.Context, loc Location) ([]featureservice.Record, error) {
	return s.Lookup(ctx, "drought_history", loc)
}
