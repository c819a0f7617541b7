package lookup

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/feature-query/internal/catalog"
	"github.com/sells-group/feature-query/pkg/featureservice"
)

func TestProfile_AllFIPSDatasets(t *testing.T) {
	exec := &fakeExecutor{respond: func(rawURL string, shape featureservice.ResultShape) ([]featureservice.Record, error) {
		return []featureservice.Record{{Shape: shape, Attributes: featureservice.Attributes{"OBJECTID": float64(1)}}}, nil
	}}
	s := New(exec, catalog.Default(), WithConcurrency(2))

	results, err := s.Profile(context.Background(), nil, Location{FIPS: "29510"})
	require.NoError(t, err)

	// watershed is point-only and skipped for FIPS lookups.
	assert.NotContains(t, results, "watershed")
	for _, name := range []string{"population", "housing", "water_area", "drought", "geoid", "drought_history"} {
		assert.Contains(t, results, name)
	}
}

func TestProfile_SelectedDatasets(t *testing.T) {
	exec := &fakeExecutor{}
	s := New(exec, catalog.Default())

	results, err := s.Profile(context.Background(), []string{"population", "watershed"},
		Location{Point: &featureservice.Point{X: -90.2, Y: 38.6, SpatialRefWKID: 4326}})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Len(t, exec.calls, 2)
}

func TestProfile_ExplicitPointOnlyDatasetWithFIPS(t *testing.T) {
	exec := &fakeExecutor{}
	s := New(exec, catalog.Default())

	_, err := s.Profile(context.Background(), []string{"watershed"}, Location{FIPS: "29510"})
	var ie *InputError
	require.True(t, errors.As(err, &ie))
	assert.Empty(t, exec.calls)
}

func TestProfile_HUCSelectsWatershedOnly(t *testing.T) {
	exec := &fakeExecutor{}
	s := New(exec, catalog.Default())

	results, err := s.Profile(context.Background(), nil, Location{HUC: "07140101"})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Contains(t, results, "watershed")
	require.Len(t, exec.calls, 1)

	_, err = s.Profile(context.Background(), []string{"population"}, Location{HUC: "07140101"})
	var ie *InputError
	require.True(t, errors.As(err, &ie))
	assert.Contains(t, err.Error(), "does not support HUC")
}

func TestProfile_InvalidLocation(t *testing.T) {
	s := New(&fakeExecutor{}, catalog.Default())
	_, err := s.Profile(context.Background(), nil, Location{})
	assert.ErrorIs(t, err, ErrInvalidLocation)
}

func TestProfile_UnknownDataset(t *testing.T) {
	s := New(&fakeExecutor{}, catalog.Default())
	_, err := s.Profile(context.Background(), []string{"nope"}, Location{FIPS: "29510"})
	var ie *InputError
	require.True(t, errors.As(err, &ie))
}

func TestProfile_FirstErrorReturned(t *testing.T) {
	se := &featureservice.ServiceError{Code: 500, Message: "boom"}
	var calls atomic.Int32
	exec := &fakeExecutor{respond: func(rawURL string, _ featureservice.ResultShape) ([]featureservice.Record, error) {
		calls.Add(1)
		if strings.Contains(rawURL, "Housing") {
			return nil, se
		}
		return []featureservice.Record{}, nil
	}}
	s := New(exec, catalog.Default(), WithConcurrency(1))

	_, err := s.Profile(context.Background(), []string{"population", "housing"}, Location{FIPS: "29510"})
	var got *featureservice.ServiceError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 500, got.Code)
}

func TestWithConcurrency_IgnoresNonPositive(t *testing.T) {
	s := New(&fakeExecutor{}, catalog.Default(), WithConcurrency(0))
	assert.Equal(t, defaultConcurrency, s.concurrency)

	s = New(&fakeExecutor{}, catalog.Default(), WithConcurrency(8))
	assert.Equal(t, 8, s.concurrency)
}
