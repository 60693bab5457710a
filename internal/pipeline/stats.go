package pipeline

import (
	"sort"

	"github.com/epidata/countystats/internal/model"
)

// StatsForCounty derives daily statistics for a single county's combined
// records.
//
// Records are stably sorted by date ascending; rows sharing a date keep
// their input order. Daily deltas are computed against a virtual day-zero
// predecessor with zero cumulative counts, so the first observed row's
// daily count equals its cumulative count. Population is the (constant)
// estimate minus cumulative deaths to date, nil when the estimate is nil.
//
// Precondition: each county's series is complete and gapless. A missing
// date is not detected — its delta silently absorbs the skipped days.
func StatsForCounty(records []model.CombinedRecord) []model.CountyStatRecord {
	sorted := make([]model.CombinedRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	stats := make([]model.CountyStatRecord, 0, len(sorted))
	var prevCases, prevDeaths int64

	for _, r := range sorted {
		stat := model.CountyStatRecord{
			FIPS:             r.FIPS,
			Date:             r.Date,
			DailyCases:       r.Cases - prevCases,
			DailyDeaths:      r.Deaths - prevDeaths,
			CumulativeCases:  r.Cases,
			CumulativeDeaths: r.Deaths,
		}
		if r.Estimate != nil {
			pop := *r.Estimate - r.Deaths
			stat.Population = &pop
		}
		prevCases, prevDeaths = r.Cases, r.Deaths
		stats = append(stats, stat)
	}

	return stats
}
