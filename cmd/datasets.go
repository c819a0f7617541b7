package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/feature-query/internal/catalog"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List catalog datasets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := loadCatalog(cfg)
		if err != nil {
			return err
		}
		formatDatasets(cmd.OutOrStdout(), reg.All())
		return nil
	},
}

// formatDatasets writes a tabular listing of datasets to out.
func formatDatasets(out io.Writer, datasets []catalog.Dataset) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSHAPE\tFIPS\tHUC\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "----\t-----\t----\t---\t-----------")

	for _, d := range datasets {
		fips, huc := "-", "-"
		if d.SupportsFIPS() {
			fips = d.FIPSField
		}
		if d.SupportsHUC() {
			huc = d.HUCField
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.Shape, fips, huc, d.Description)
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
}
