package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/epidata/countystats/internal/fetcher"
	"github.com/epidata/countystats/internal/model"
	"github.com/epidata/countystats/internal/pipeline"
	"github.com/epidata/countystats/internal/store"
)

var (
	runCases       string
	runPopulation  string
	runOutput      string
	runConcurrency int
	runNoStore     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the statistics pipeline once",
	Long:  "Downloads (or reads) the case and population sources, cleans and joins them, derives per-county daily statistics, and writes the output CSV.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		params := model.RunParams{
			CasesSource:      cfg.Sources.Cases,
			PopulationSource: cfg.Sources.Population,
			OutputPath:       cfg.Output.Path,
			Concurrency:      cfg.Run.Concurrency,
		}
		if runCases != "" {
			params.CasesSource = runCases
		}
		if runPopulation != "" {
			params.PopulationSource = runPopulation
		}
		if runOutput != "" {
			params.OutputPath = runOutput
		}
		if runConcurrency > 0 {
			params.Concurrency = runConcurrency
		}

		var st store.Store
		if !runNoStore {
			var err error
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  cfg.HTTP.UserAgent,
			Timeout:    time.Duration(cfg.HTTP.TimeoutSecs) * time.Second,
			MaxRetries: cfg.HTTP.MaxRetries,
		})

		result, err := pipeline.New(f, st, params.Concurrency).Run(ctx, params)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("pipeline complete",
			zap.String("output", params.OutputPath),
			zap.Int("counties", result.Counties),
			zap.Int("stat_rows", result.StatRows),
			zap.Int64("duration_ms", result.DurationMs),
		)

		fmt.Fprintf(os.Stdout, "Wrote %d rows for %d counties to %s (%d unmatched) in %dms\n",
			result.StatRows, result.Counties, params.OutputPath,
			result.UnmatchedCounties, result.DurationMs)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runCases, "cases", "", "case source URL or path (default from config)")
	runCmd.Flags().StringVar(&runPopulation, "population", "", "population source URL or path (default from config)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "output CSV path (default from config)")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "counties aggregated in parallel (default from config)")
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "skip recording the run in the store")
	rootCmd.AddCommand(runCmd)
}
