package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/epidata/countystats/internal/fetcher"
	"github.com/epidata/countystats/internal/model"
	"github.com/epidata/countystats/internal/store"
)

// Pipeline wires the four stages together: read+clean both sources, join,
// derive county statistics, write the output CSV. Optionally records the
// run and its output rows in a store.
type Pipeline struct {
	fetcher     fetcher.Fetcher
	store       store.Store // nil disables persistence
	concurrency int
}

// New creates a Pipeline. st may be nil to skip persistence; concurrency <= 1
// keeps aggregation sequential.
func New(f fetcher.Fetcher, st store.Store, concurrency int) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{fetcher: f, store: st, concurrency: concurrency}
}

// Run executes a single batch pass. Any failure aborts the run with no
// output written; the store (when configured) records the failure.
func (p *Pipeline) Run(ctx context.Context, params model.RunParams) (*model.RunResult, error) {
	log := zap.L().With(zap.String("component", "pipeline"))
	started := time.Now()

	var runID string
	if p.store != nil {
		run, err := p.store.CreateRun(ctx, params)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		runID = run.ID
		log = log.With(zap.String("run_id", runID))
	}

	result, err := p.run(ctx, log, params)
	if err != nil {
		p.failRun(ctx, log, runID, err)
		return nil, err
	}
	result.DurationMs = time.Since(started).Milliseconds()

	if p.store != nil {
		if _, err := p.store.InsertStats(ctx, runID, result.stats); err != nil {
			err = eris.Wrap(err, "pipeline: persist stats")
			p.failRun(ctx, log, runID, err)
			return nil, err
		}
		if err := p.store.CompleteRun(ctx, runID, &result.RunResult); err != nil {
			err = eris.Wrap(err, "pipeline: complete run")
			p.failRun(ctx, log, runID, err)
			return nil, err
		}
	}

	log.Info("run complete",
		zap.Int("stat_rows", result.StatRows),
		zap.Int("counties", result.Counties),
		zap.Int64("duration_ms", result.DurationMs),
	)
	return &result.RunResult, nil
}

// failRun marks the run failed in the store. Nothing is left in status
// "running" once Run has returned an error.
func (p *Pipeline) failRun(ctx context.Context, log *zap.Logger, runID string, runErr error) {
	if p.store == nil {
		return
	}
	if err := p.store.FailRun(ctx, runID, runErr); err != nil {
		log.Error("record run failure", zap.Error(err))
	}
}

// runResult carries the derived stats alongside the row accounting so Run
// can persist them without re-deriving.
type runResult struct {
	model.RunResult
	stats []model.CountyStatRecord
}

func (p *Pipeline) run(ctx context.Context, log *zap.Logger, params model.RunParams) (*runResult, error) {
	res := &runResult{}

	caseTbl, err := p.readTable(ctx, params.CasesSource, fetcher.TableOptions{LazyQuotes: true})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read case table")
	}
	res.CaseRowsRead = caseTbl.Len()
	log.Info("read case table", zap.String("source", params.CasesSource), zap.Int("rows", caseTbl.Len()))

	cases, dropped, err := CleanCases(caseTbl)
	if err != nil {
		return nil, err
	}
	res.CaseRowsKept = len(cases)
	log.Info("cleaned case table", zap.Int("kept", len(cases)), zap.Int("dropped", dropped))

	// The census population file ships as ISO-8859-1.
	popTbl, err := p.readTable(ctx, params.PopulationSource, fetcher.TableOptions{
		Encoding:   fetcher.EncodingLatin1,
		LazyQuotes: true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read population table")
	}
	res.PopulationRowsRead = popTbl.Len()
	log.Info("read population table", zap.String("source", params.PopulationSource), zap.Int("rows", popTbl.Len()))

	population, popDropped, err := CleanPopulation(popTbl)
	if err != nil {
		return nil, err
	}
	res.PopulationRowsKept = len(population)
	log.Info("cleaned population table",
		zap.Int("kept", len(population)),
		zap.Int("dropped", popDropped),
	)

	combined := Combine(cases, population)
	res.CombinedRows = len(combined)

	counties := make(map[string]struct{})
	unmatched := make(map[string]struct{})
	for _, rec := range combined {
		counties[rec.FIPS] = struct{}{}
		if rec.Estimate == nil {
			unmatched[rec.FIPS] = struct{}{}
		}
	}
	res.Counties = len(counties)
	res.UnmatchedCounties = len(unmatched)
	if len(unmatched) > 0 {
		log.Warn("counties without population match",
			zap.Int("count", len(unmatched)),
		)
	}

	stats, err := Aggregate(ctx, combined, p.concurrency)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: aggregate")
	}
	res.StatRows = len(stats)
	res.stats = stats

	if err := WriteStatsFile(params.OutputPath, stats); err != nil {
		return nil, err
	}
	log.Info("wrote output", zap.String("path", params.OutputPath), zap.Int("rows", len(stats)))

	return res, nil
}

func (p *Pipeline) readTable(ctx context.Context, location string, opts fetcher.TableOptions) (*fetcher.Table, error) {
	r, err := fetcher.Open(ctx, p.fetcher, location)
	if err != nil {
		return nil, err
	}
	defer r.Close() //nolint:errcheck

	return fetcher.ReadTable(r, opts)
}
