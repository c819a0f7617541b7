package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/feature-query/internal/catalog"
	"github.com/sells-group/feature-query/internal/config"
	"github.com/sells-group/feature-query/pkg/featureservice"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"query", "lookup", "profile", "datasets", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "feature-query", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestLookupCommand_Flags(t *testing.T) {
	for _, name := range []string{"fips", "huc", "x", "y", "wkid", "token", "format", "out"} {
		assert.NotNil(t, lookupCmd.Flags().Lookup(name), "lookup should have --%s flag", name)
	}
	assert.Equal(t, "4326", lookupCmd.Flags().Lookup("wkid").DefValue)
}

func TestProfileCommand_Flags(t *testing.T) {
	for _, name := range []string{"fips", "huc", "x", "y", "datasets"} {
		assert.NotNil(t, profileCmd.Flags().Lookup(name), "profile should have --%s flag", name)
	}
}

func changedSet(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestQueryFlagSet_Point(t *testing.T) {
	q := queryFlagSet{
		service:        "https://svc/x",
		x:              -90.1,
		y:              38.2,
		wkid:           4326,
		outFields:      []string{"GEOID", "NAME"},
		returnGeometry: true,
		params:         []string{"distance=10"},
	}

	opts, err := q.options(changedSet("x", "y", "return-geometry"))
	require.NoError(t, err)
	assert.Equal(t, featureservice.Point{X: -90.1, Y: 38.2, SpatialRefWKID: 4326}, opts.Geometry)
	assert.Equal(t, []string{"GEOID", "NAME"}, opts.OutFields)
	require.NotNil(t, opts.ReturnGeometry)
	assert.True(t, *opts.ReturnGeometry)
	assert.Equal(t, []featureservice.Param{{Key: "distance", Value: "10"}}, opts.Extra)
	assert.Nil(t, opts.RelationshipID)
	assert.Nil(t, opts.GeometryPrecision)
}

func TestQueryFlagSet_JSONGeometry(t *testing.T) {
	q := queryFlagSet{
		service:      "https://svc/x",
		x:            1,
		y:            2,
		wkid:         4326,
		jsonGeometry: true,
		inSR:         4326,
		outSR:        3857,
		precision:    6,
	}

	opts, err := q.options(changedSet("x", "y", "in-sr", "out-sr", "precision"))
	require.NoError(t, err)
	assert.Equal(t, featureservice.SpatialPoint{X: 1, Y: 2, SpatialRefWKID: 4326}, opts.Geometry)
	assert.Equal(t, 4326, opts.InSR)
	assert.Equal(t, 3857, opts.OutSR)
	require.NotNil(t, opts.GeometryPrecision)
	assert.Equal(t, 6, *opts.GeometryPrecision)
}

func TestQueryFlagSet_UnchangedOptionalsOmitted(t *testing.T) {
	q := queryFlagSet{service: "https://svc/x", x: 1, y: 2, inSR: 4326, relationshipID: 3}

	opts, err := q.options(changedSet())
	require.NoError(t, err)
	assert.Nil(t, opts.Geometry)
	assert.Zero(t, opts.InSR)
	assert.Nil(t, opts.RelationshipID)
	assert.Nil(t, opts.ReturnGeometry)
}

func TestQueryFlagSet_Errors(t *testing.T) {
	_, err := (&queryFlagSet{}).options(changedSet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--service is required")

	q := queryFlagSet{service: "https://svc/x", x: 1}
	_, err = q.options(changedSet("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be given together")

	q = queryFlagSet{service: "https://svc/x", params: []string{"novalue"}}
	_, err = q.options(changedSet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --param")
}

func TestQueryFlagSet_Endpoint(t *testing.T) {
	tests := []struct {
		name        string
		flags       queryFlagSet
		wantRelated bool
		wantShape   featureservice.ResultShape
	}{
		{"attributes", queryFlagSet{shape: "attributes"}, false, featureservice.AttributesOnly},
		{"full", queryFlagSet{shape: "full"}, false, featureservice.Full},
		{"related flag", queryFlagSet{shape: "attributes", related: true}, true, featureservice.Related},
		{"related shape", queryFlagSet{shape: "related"}, true, featureservice.Related},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			related, shape, err := tt.flags.endpoint()
			require.NoError(t, err)
			assert.Equal(t, tt.wantRelated, related)
			assert.Equal(t, tt.wantShape, shape)
		})
	}

	_, _, err := (&queryFlagSet{shape: "bogus"}).endpoint()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown result shape")
}

func TestQueryCommand_PrintURL(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"query", "--service", "https://svc/x", "--related",
		"--object-ids", "3,7", "--relationship-id", "2", "--out-fields", "ddate", "--print-url"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		queryFlags = queryFlagSet{outFields: []string{"*"}, wkid: 4326, shape: "attributes", format: "json"}
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t,
		"https://svc/x/queryRelatedRecords?where=1%3D1&objectIds=3%2C7&relationshipId=2&f=json&outFields=ddate\n",
		out.String())
}

func TestWriteRecords(t *testing.T) {
	records := []featureservice.Record{
		{Shape: featureservice.AttributesOnly, Attributes: featureservice.Attributes{"GEOID": "29510"}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeRecords(&buf, "json", "", records))
	assert.JSONEq(t, `[{"GEOID":"29510"}]`, buf.String())

	err := writeRecords(&buf, "xlsx", "", records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires --out")

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, writeRecords(&buf, "xlsx", path, records))
	_, err = os.Stat(path)
	assert.NoError(t, err)

	assert.Error(t, writeRecords(&buf, "csv", "", records))
}

func TestResolveToken(t *testing.T) {
	orig := cfg
	t.Cleanup(func() { cfg = orig })

	cfg = &config.Config{HTTP: config.HTTPConfig{Token: "from-config"}}
	assert.Equal(t, "from-flag", resolveToken("from-flag"))
	assert.Equal(t, "from-config", resolveToken(""))

	cfg = nil
	assert.Equal(t, "", resolveToken(""))
}

func TestFormatDatasets(t *testing.T) {
	var buf bytes.Buffer
	formatDatasets(&buf, catalog.Default().All())

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "population")
	assert.Contains(t, out, "drought_history")
	assert.Contains(t, out, "related")
	assert.Contains(t, out, "huc12")
}

func TestLoadCatalog(t *testing.T) {
	reg, err := loadCatalog(&config.Config{})
	require.NoError(t, err)
	assert.Len(t, reg.Names(), 7)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("datasets:\n  - name: a\n    service_url: https://svc/x\n"), 0o644))
	reg, err = loadCatalog(&config.Config{Catalog: config.CatalogConfig{Path: path}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, reg.Names())
}
