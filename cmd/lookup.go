package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/feature-query/internal/lookup"
	"github.com/sells-group/feature-query/pkg/featureservice"
)

// locationFlags are shared by lookup and profile.
type locationFlags struct {
	fips  string
	huc   string
	x, y  float64
	wkid  int
	token string
}

func (lf *locationFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&lf.fips, "fips", "", "FIPS code (state, county or tract)")
	f.StringVar(&lf.huc, "huc", "", "hydrologic unit code (2 to 12 digits)")
	f.Float64Var(&lf.x, "x", 0, "point x (longitude)")
	f.Float64Var(&lf.y, "y", 0, "point y (latitude)")
	f.IntVar(&lf.wkid, "wkid", 4326, "spatial reference of the point")
	f.StringVar(&lf.token, "token", "", "service token (default from config)")
}

// location builds a Location from the flags the caller set.
func (lf *locationFlags) location(cmd *cobra.Command) lookup.Location {
	loc := lookup.Location{FIPS: lf.fips, HUC: lf.huc, Token: resolveToken(lf.token)}
	if cmd.Flags().Changed("x") || cmd.Flags().Changed("y") {
		loc.Point = &featureservice.Point{X: lf.x, Y: lf.y, SpatialRefWKID: lf.wkid}
	}
	return loc
}

var (
	lookupLoc    locationFlags
	lookupFormat string
	lookupOut    string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <dataset>",
	Short: "Look up one catalog dataset by FIPS code, HUC code or point",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc := lookupLoc.location(cmd)
		if err := loc.Validate(); err != nil {
			return err
		}

		svc, err := initService("query")
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		records, err := svc.Lookup(ctx, args[0], loc)
		if err != nil {
			return err
		}
		return writeRecords(cmd.OutOrStdout(), lookupFormat, lookupOut, records)
	},
}

func init() {
	lookupLoc.register(lookupCmd)
	lookupCmd.Flags().StringVar(&lookupFormat, "format", "json", "output format: json, geojson, shapefile, xlsx")
	lookupCmd.Flags().StringVar(&lookupOut, "out", "", "output file (default stdout)")
	rootCmd.AddCommand(lookupCmd)
}
