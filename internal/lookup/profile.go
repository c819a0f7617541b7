package lookup

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/feature-query/internal/catalog"
	"github.com/sells-group/feature-query/pkg/featureservice"
)

// Profile looks up several datasets for the same location concurrently. An
// empty names list means every catalog dataset that supports the location's
// selector; naming a dataset that does not support it is an InputError.
// The first failure cancels the remaining lookups and is returned as-is.
func (s *Service) Profile(ctx context.Context, names []string, loc Location) (map[string][]featureservice.Record, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	datasets, err := s.catalog.Select(names)
	if err != nil {
		return nil, inputErrorf("lookup: %s", err.Error())
	}

	log := zap.L().With(zap.String("component", "lookup.profile"), zap.Int("datasets", len(datasets)))

	selected := make([]catalog.Dataset, 0, len(datasets))
	for _, d := range datasets {
		if !supports(d, loc) {
			if len(names) > 0 {
				return nil, inputErrorf("lookup: dataset %q does not support %s lookups", d.Name, loc.kind())
			}
			log.Debug("skipping dataset without a matching field", zap.String("dataset", d.Name), zap.String("selector", loc.kind()))
			continue
		}
		selected = append(selected, d)
	}

	var (
		mu      sync.Mutex
		results = make(map[string][]featureservice.Record, len(selected))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, d := range selected {
		g.Go(func() error {
			records, err := s.LookupDataset(gctx, d, loc)
			if err != nil {
				log.Warn("dataset lookup failed", zap.String("dataset", d.Name), zap.Error(err))
				return err
			}
			mu.Lock()
			results[d.Name] = records
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug("profile complete", zap.Int("results", len(results)))
	return results, nil
}
