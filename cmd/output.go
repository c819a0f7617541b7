package main

import (
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/feature-query/internal/export"
	"github.com/sells-group/feature-query/pkg/featureservice"
)

// writeRecords writes records to path, or to stdout when path is empty.
func writeRecords(stdout io.Writer, formatName, path string, records []featureservice.Record) error {
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}
	if path != "" {
		return export.WriteFile(path, format, records)
	}
	if format == export.Shapefile || format == export.XLSX {
		return eris.Errorf("output: %s output requires --out", format)
	}
	return export.Write(stdout, format, records)
}

// resolveToken returns the flag token or the configured default.
func resolveToken(flagToken string) string {
	if flagToken != "" {
		return flagToken
	}
	if cfg != nil {
		return cfg.HTTP.Token
	}
	return ""
}
