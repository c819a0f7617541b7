package featureservice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	fetchermocks "github.com/sells-group/feature-query/internal/fetcher/mocks"
)

const testURL = "https://svc/x/query?where=1%3D1&f=json&token=secret"

func executorWithBody(t *testing.T, body string) *Executor {
	t.Helper()
	f := fetchermocks.NewMockFetcher(t)
	f.EXPECT().Download(mock.Anything, testURL).
		Return(io.NopCloser(strings.NewReader(body)), nil).Once()
	return NewExecutor(f)
}

func TestExecute_ServiceError(t *testing.T) {
	e := executorWithBody(t, `{"error":{"code":400,"message":"bad request"}}`)

	records, err := e.Execute(context.Background(), testURL, AttributesOnly)
	require.Error(t, err)
	assert.Nil(t, records)

	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 400, se.Code)
	assert.Equal(t, "bad request", se.Message)

	out, err := json.Marshal(se)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":400,"message":"bad request"}`, string(out))
}

func TestExecute_ServiceErrorTakesPrecedence(t *testing.T) {
	for _, shape := range []ResultShape{AttributesOnly, Full, Related} {
		t.Run(shape.String(), func(t *testing.T) {
			e := executorWithBody(t, `{
				"features":[{"attributes":{"GEOID":"29510"}}],
				"relatedRecordGroups":[{"objectId":1,"relatedRecords":[{"attributes":{"A":1}}]}],
				"error":{"code":498,"message":"Invalid token.","details":["expired"]}
			}`)

			_, err := e.Execute(context.Background(), testURL, shape)
			var se *ServiceError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, 498, se.Code)
			assert.Equal(t, []string{"expired"}, se.Details)
			assert.Contains(t, se.Error(), "Invalid token.")
		})
	}
}

func TestExecute_FalsyErrorIgnored(t *testing.T) {
	for _, errValue := range []string{"null", "false", `""`, "0", "0.0", "-0"} {
		t.Run(errValue, func(t *testing.T) {
			e := executorWithBody(t, `{"error":`+errValue+`,"features":[{"attributes":{"GEOID":"29510"}}]}`)

			records, err := e.Execute(context.Background(), testURL, AttributesOnly)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, "29510", records[0].Attributes.String("GEOID"))
		})
	}
}

func TestExecute_StringServiceError(t *testing.T) {
	e := executorWithBody(t, `{"error":"service unavailable"}`)

	_, err := e.Execute(context.Background(), testURL, AttributesOnly)
	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "service unavailable", se.Message)
	assert.Equal(t, `"service unavailable"`, string(se.Raw))
}

func TestExecute_FullScenario(t *testing.T) {
	e := executorWithBody(t, `{
		"features":[{"attributes":{"GEOID":"29510"},"geometry":{"x":1,"y":2}}],
		"spatialReference":{"wkid":4326}
	}`)

	records, err := e.Execute(context.Background(), testURL, Full)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	require.NotNil(t, rec.SpatialReferenceWKID)
	assert.Equal(t, 4326, *rec.SpatialReferenceWKID)
	require.NotNil(t, rec.Geometry)
	assert.Equal(t, KindPoint, rec.Geometry.Kind())

	out, err := json.Marshal(records)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"attributes":{"GEOID":"29510"},"spatialReferenceWkid":4326,"geometry":{"x":1,"y":2}}]`, string(out))
}

func TestExecute_FullEmptyPointKeptVerbatim(t *testing.T) {
	e := executorWithBody(t, `{
		"features":[
			{"attributes":{"A":1},"geometry":{"x":"NaN","y":"NaN"}},
			{"attributes":{"A":2},"geometry":{"x":1,"y":2,"z":30,"m":null}}
		],
		"spatialReference":{"wkid":4326}
	}`)

	records, err := e.Execute(context.Background(), testURL, Full)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, KindRaw, records[0].Geometry.Kind())
	assert.Equal(t, KindPoint, records[1].Geometry.Kind())

	out, err := json.Marshal(records)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"attributes":{"A":1},"spatialReferenceWkid":4326,"geometry":{"x":"NaN","y":"NaN"}},
		{"attributes":{"A":2},"spatialReferenceWkid":4326,"geometry":{"x":1,"y":2,"z":30,"m":null}}
	]`, string(out))
}

func TestExecute_FullSharedSpatialReference(t *testing.T) {
	e := executorWithBody(t, `{
		"spatialReference":{"wkid":102100,"latestWkid":3857},
		"features":[
			{"attributes":{"ID":1},"geometry":{"x":1,"y":2}},
			{"attributes":{"ID":2},"geometry":{"rings":[[[0,0],[0,1],[1,1],[1,0],[0,0]]]}}
		]
	}`)

	records, err := e.Execute(context.Background(), testURL, Full)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, KindPoint, records[0].Geometry.Kind())
	assert.Equal(t, KindPolygon, records[1].Geometry.Kind())
	require.NotNil(t, records[0].SpatialReferenceWKID)
	require.NotNil(t, records[1].SpatialReferenceWKID)
	assert.Equal(t, 102100, *records[0].SpatialReferenceWKID)
	assert.Equal(t, *records[0].SpatialReferenceWKID, *records[1].SpatialReferenceWKID)
}

func TestExecute_FullMissingSpatialReference(t *testing.T) {
	e := executorWithBody(t, `{"features":[{"attributes":{"GEOID":"29"}}]}`)

	records, err := e.Execute(context.Background(), testURL, Full)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].SpatialReferenceWKID)
	assert.Nil(t, records[0].Geometry)

	out, err := json.Marshal(records[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"attributes":{"GEOID":"29"},"spatialReferenceWkid":null,"geometry":null}`, string(out))
}

func TestExecute_AttributesOnly(t *testing.T) {
	e := executorWithBody(t, `{
		"features":[
			{"attributes":{"GEOID":"29510","POP":301578},"geometry":{"x":1,"y":2}},
			{"attributes":{"GEOID":"29189","POP":1004125}}
		]
	}`)

	records, err := e.Execute(context.Background(), testURL, AttributesOnly)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "29510", records[0].Attributes.String("GEOID"))
	assert.Equal(t, "29189", records[1].Attributes.String("GEOID"))
	assert.Nil(t, records[0].Geometry)

	out, err := json.Marshal(records)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"GEOID":"29510","POP":301578},{"GEOID":"29189","POP":1004125}]`, string(out))
}

func TestExecute_EmptyFeatures(t *testing.T) {
	e := executorWithBody(t, `{"features":[]}`)

	records, err := e.Execute(context.Background(), testURL, AttributesOnly)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExecute_Related(t *testing.T) {
	e := executorWithBody(t, `{
		"relatedRecordGroups":[
			{"objectId":12,"relatedRecords":[
				{"attributes":{"ReleaseDate":1577836800000,"D0":12.5}},
				{"attributes":{"ReleaseDate":1578441600000,"D0":13.1}}
			]},
			{"objectId":13,"relatedRecords":[{"attributes":{"ignored":true}}]}
		]
	}`)

	records, err := e.Execute(context.Background(), testURL, Related)
	require.NoError(t, err)
	require.Len(t, records, 2)
	d0, ok := records[1].Attributes.Float("D0")
	require.True(t, ok)
	assert.InDelta(t, 13.1, d0, 0.0001)
	assert.Equal(t, Related, records[0].Shape)
}

func TestExecute_RelatedMissingGroup(t *testing.T) {
	for name, body := range map[string]string{
		"absent": `{"fields":[]}`,
		"empty":  `{"relatedRecordGroups":[]}`,
		"null":   `{"relatedRecordGroups":null}`,
	} {
		t.Run(name, func(t *testing.T) {
			e := executorWithBody(t, body)
			records, err := e.Execute(context.Background(), testURL, Related)
			require.NoError(t, err)
			require.NotNil(t, records)
			assert.Empty(t, records)
		})
	}
}

func TestExecute_TransportError(t *testing.T) {
	f := fetchermocks.NewMockFetcher(t)
	cause := errors.New("connection refused")
	f.EXPECT().Download(mock.Anything, testURL).Return(nil, cause).Once()

	_, err := NewExecutor(f).Execute(context.Background(), testURL, AttributesOnly)
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Error(), "secret")
	assert.Contains(t, err.Error(), "token=REDACTED")
}

func TestExecute_DecodeError(t *testing.T) {
	e := executorWithBody(t, `<html>not json</html>`)

	_, err := e.Execute(context.Background(), testURL, AttributesOnly)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, testURL, de.URL)
}

func TestExecute_MalformedFeatures(t *testing.T) {
	e := executorWithBody(t, `{"features":{"not":"an array"}}`)

	_, err := e.Execute(context.Background(), testURL, AttributesOnly)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Contains(t, err.Error(), "decode features")
}

func TestExecute_UnsupportedShape(t *testing.T) {
	e := executorWithBody(t, `{"features":[]}`)

	_, err := e.Execute(context.Background(), testURL, ResultShape(42))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported result shape")
}

func TestExecute_PassesContext(t *testing.T) {
	f := fetchermocks.NewMockFetcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.EXPECT().Download(mock.Anything, testURL).
		RunAndReturn(func(ctx context.Context, _ string) (io.ReadCloser, error) {
			return nil, ctx.Err()
		}).Once()

	_, err := NewExecutor(f).Execute(ctx, testURL, Full)
	assert.ErrorIs(t, err, context.Canceled)
}
