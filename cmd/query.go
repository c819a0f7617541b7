package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/feature-query/pkg/featureservice"
)

// queryFlagSet holds the query command flags.
type queryFlagSet struct {
	service        string
	where          string
	outFields      []string
	x, y           float64
	wkid           int
	inSR, outSR    int
	precision      int
	jsonGeometry   bool
	related        bool
	relationshipID int
	objectIDs      []int64
	orderBy        string
	returnGeometry bool
	params         []string
	shape          string
	token          string
	format         string
	out            string
	printURL       bool
}

var queryFlags queryFlagSet

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a raw query against a feature-service layer",
	Long:  "Builds a /query or /queryRelatedRecords URL from flags, executes it and writes the normalized records.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := queryFlags.options(cmd.Flags().Changed)
		if err != nil {
			return err
		}

		related, shape, err := queryFlags.endpoint()
		if err != nil {
			return err
		}

		rawURL := featureservice.BuildQueryURL(queryFlags.service, opts, related)
		if queryFlags.printURL {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rawURL)
			return nil
		}

		if err := cfg.Validate("query"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		records, err := newExecutor(cfg).Execute(ctx, rawURL, shape)
		if err != nil {
			return err
		}
		return writeRecords(cmd.OutOrStdout(), queryFlags.format, queryFlags.out, records)
	},
}

// endpoint resolves --related and --shape together: either one selects the
// queryRelatedRecords endpoint and the Related shape.
func (q *queryFlagSet) endpoint() (bool, featureservice.ResultShape, error) {
	shape, err := featureservice.ParseResultShape(q.shape)
	if err != nil {
		return false, 0, err
	}
	if q.related || shape == featureservice.Related {
		return true, featureservice.Related, nil
	}
	return false, shape, nil
}

// options maps the flags to QueryOptions. Optional parameters are only
// forwarded when changed reports the flag as set.
func (q *queryFlagSet) options(changed func(name string) bool) (featureservice.QueryOptions, error) {
	if q.service == "" {
		return featureservice.QueryOptions{}, eris.New("query: --service is required")
	}

	opts := featureservice.QueryOptions{
		Where:         q.where,
		OutFields:     q.outFields,
		OrderByFields: q.orderBy,
		ObjectIDs:     q.objectIDs,
		Token:         resolveToken(q.token),
	}

	hasX, hasY := changed("x"), changed("y")
	if hasX != hasY {
		return featureservice.QueryOptions{}, eris.New("query: --x and --y must be given together")
	}
	if hasX {
		if q.jsonGeometry {
			opts.Geometry = featureservice.SpatialPoint{X: q.x, Y: q.y, SpatialRefWKID: q.wkid}
		} else {
			opts.Geometry = featureservice.Point{X: q.x, Y: q.y, SpatialRefWKID: q.wkid}
		}
	}

	if changed("in-sr") {
		opts.InSR = q.inSR
	}
	if changed("out-sr") {
		opts.OutSR = q.outSR
	}
	if changed("precision") {
		opts.GeometryPrecision = featureservice.Int(q.precision)
	}
	if changed("return-geometry") {
		opts.ReturnGeometry = featureservice.Bool(q.returnGeometry)
	}
	if changed("relationship-id") {
		opts.RelationshipID = featureservice.Int(q.relationshipID)
	}

	for _, p := range q.params {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return featureservice.QueryOptions{}, eris.Errorf("query: invalid --param %q (want key=value)", p)
		}
		opts.Extra = append(opts.Extra, featureservice.Param{Key: k, Value: v})
	}

	return opts, nil
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryFlags.service, "service", "", "feature-service layer URL")
	f.StringVar(&queryFlags.where, "where", "", "where clause (default 1=1)")
	f.StringSliceVar(&queryFlags.outFields, "out-fields", []string{"*"}, "fields to return")
	f.Float64Var(&queryFlags.x, "x", 0, "point x (longitude)")
	f.Float64Var(&queryFlags.y, "y", 0, "point y (latitude)")
	f.IntVar(&queryFlags.wkid, "wkid", 4326, "spatial reference of the point")
	f.IntVar(&queryFlags.inSR, "in-sr", 0, "inSR parameter")
	f.IntVar(&queryFlags.outSR, "out-sr", 0, "outSR parameter")
	f.IntVar(&queryFlags.precision, "precision", 0, "geometryPrecision parameter")
	f.BoolVar(&queryFlags.jsonGeometry, "json-geometry", false, "encode the point as a JSON geometry with its spatial reference")
	f.BoolVar(&queryFlags.related, "related", false, "query related records")
	f.IntVar(&queryFlags.relationshipID, "relationship-id", 0, "relationship id for --related")
	f.Int64SliceVar(&queryFlags.objectIDs, "object-ids", nil, "object ids")
	f.StringVar(&queryFlags.orderBy, "order-by", "", "orderByFields parameter")
	f.BoolVar(&queryFlags.returnGeometry, "return-geometry", false, "returnGeometry parameter")
	f.StringArrayVar(&queryFlags.params, "param", nil, "extra key=value parameter (repeatable)")
	f.StringVar(&queryFlags.shape, "shape", "attributes", "result shape: attributes, full, related (related implies --related)")
	f.StringVar(&queryFlags.token, "token", "", "service token (default from config)")
	f.StringVar(&queryFlags.format, "format", "json", "output format: json, geojson, shapefile, xlsx")
	f.StringVar(&queryFlags.out, "out", "", "output file (default stdout)")
	f.BoolVar(&queryFlags.printURL, "print-url", false, "print the query URL and exit")
	rootCmd.AddCommand(queryCmd)
}
