package main

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	profileLoc      locationFlags
	profileDatasets []string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Look up several catalog datasets for one location",
	Long:  "Runs the selected datasets (default: all that support the location kind) concurrently and prints the results keyed by dataset.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		loc := profileLoc.location(cmd)
		if err := loc.Validate(); err != nil {
			return err
		}

		svc, err := initService("query")
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		results, err := svc.Profile(ctx, profileDatasets, loc)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return eris.Wrap(err, "profile: encode results")
		}
		return nil
	},
}

func init() {
	profileLoc.register(profileCmd)
	profileCmd.Flags().StringSliceVar(&profileDatasets, "datasets", nil, "datasets to include (default all)")
	rootCmd.AddCommand(profileCmd)
}
