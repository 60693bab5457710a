package pipeline

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/epidata/countystats/internal/model"
)

// Aggregate partitions combined records by FIPS code, runs StatsForCounty
// on each partition, and concatenates the results in ascending FIPS order.
// Order within a partition matches the engine's sorted output.
//
// Partitions are independent; with concurrency > 1 they are processed by an
// errgroup fan-out. The output is identical either way.
func Aggregate(ctx context.Context, combined []model.CombinedRecord, concurrency int) ([]model.CountyStatRecord, error) {
	partitions := make(map[string][]model.CombinedRecord)
	for _, rec := range combined {
		partitions[rec.FIPS] = append(partitions[rec.FIPS], rec)
	}

	keys := make([]string, 0, len(partitions))
	for fips := range partitions {
		keys = append(keys, fips)
	}
	sort.Strings(keys)

	results := make([][]model.CountyStatRecord, len(keys))

	if concurrency > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for i, fips := range keys {
			i, fips := i, fips
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = StatsForCounty(partitions[fips])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, fips := range keys {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = StatsForCounty(partitions[fips])
		}
	}

	stats := make([]model.CountyStatRecord, 0, len(combined))
	for _, part := range results {
		stats = append(stats, part...)
	}

	return stats, nil
}
