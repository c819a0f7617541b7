package main

import (
	"time"

	"github.com/sells-group/feature-query/internal/catalog"
	"github.com/sells-group/feature-query/internal/config"
	"github.com/sells-group/feature-query/internal/fetcher"
	"github.com/sells-group/feature-query/internal/lookup"
	"github.com/sells-group/feature-query/pkg/featureservice"
)

// newExecutor builds the HTTP fetcher and query executor from config.
func newExecutor(c *config.Config) *featureservice.Executor {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:   c.HTTP.UserAgent,
		Timeout:     time.Duration(c.HTTP.TimeoutSecs) * time.Second,
		RatePerHost: c.HTTP.RatePerHost,
	})
	return featureservice.NewExecutor(f)
}

// loadCatalog returns the configured catalog file, or the built-in datasets
// when no path is set.
func loadCatalog(c *config.Config) (*catalog.Registry, error) {
	if c.Catalog.Path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(c.Catalog.Path)
}

// initService wires the executor, catalog and lookup service for the
// lookup/profile/serve commands.
func initService(mode string) (*lookup.Service, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	reg, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	return lookup.New(newExecutor(cfg), reg, lookup.WithConcurrency(cfg.Lookup.Concurrency)), nil
}
