// Package model defines the record types flowing through the county
// statistics pipeline and the run bookkeeping types persisted by the store.
package model

import "time"

// CaseRecord is one cleaned row of the case/death source: the cumulative
// case and death totals reported for a county on a calendar date.
// (FIPS, Date) pairs are assumed unique upstream; the pipeline does not
// deduplicate.
type CaseRecord struct {
	FIPS   string    `json:"fips"`
	Date   time.Time `json:"date"`
	Cases  int64     `json:"cases"`
	Deaths int64     `json:"deaths"`
}

// PopulationRecord is one cleaned row of the population estimate source.
// FIPS is the state+county code derived from the raw STATE and COUNTY
// sub-codes.
type PopulationRecord struct {
	FIPS     string `json:"fips"`
	Estimate int64  `json:"population_estimate"`
}

// CombinedRecord is a case record left-joined with its county's population
// estimate. Estimate is nil when the county has no population match.
type CombinedRecord struct {
	CaseRecord
	Estimate *int64 `json:"population_estimate"`
}

// CountyStatRecord is one output row: daily deltas derived from the
// cumulative series plus a death-adjusted population.
//
// Population is estimate minus cumulative deaths to date. It is nil when the
// county had no population match and can go negative when cumulative deaths
// exceed the estimate.
type CountyStatRecord struct {
	FIPS             string    `json:"fips"`
	Date             time.Time `json:"date"`
	Population       *int64    `json:"population"`
	DailyCases       int64     `json:"daily_cases"`
	DailyDeaths      int64     `json:"daily_deaths"`
	CumulativeCases  int64     `json:"cumulative_cases_to_date"`
	CumulativeDeaths int64     `json:"cumulative_deaths_to_date"`
}
