// Package pipeline implements the county statistics batch pipeline:
// cleaning the raw case/death and population tables, left-joining them on
// county FIPS code, and deriving per-county daily and cumulative statistics.
package pipeline

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/epidata/countystats/internal/fetcher"
	"github.com/epidata/countystats/internal/model"
	"github.com/epidata/countystats/internal/transform"
)

// dateLayout is the calendar date format used by the case/death source.
const dateLayout = "2006-01-02"

// caseColumns are the required columns of the case/death source.
var caseColumns = []string{"fips", "date", "cases", "deaths"}

// populationColumns are the required columns of the population source.
var populationColumns = []string{"STATE", "COUNTY", "POPESTIMATE2019"}

// CleanCases normalizes the raw case/death table into CaseRecords.
// Rows with a missing value in any required column are dropped silently and
// counted; a non-numeric count or unparseable date fails the whole run.
func CleanCases(tbl *fetcher.Table) ([]model.CaseRecord, int, error) {
	if err := tbl.HasColumns(caseColumns...); err != nil {
		return nil, 0, eris.Wrap(err, "clean cases")
	}

	records := make([]model.CaseRecord, 0, tbl.Len())
	dropped := 0

	for i, row := range tbl.Rows {
		fips := strings.TrimSpace(tbl.Col(row, "fips"))
		dateStr := strings.TrimSpace(tbl.Col(row, "date"))
		casesStr := strings.TrimSpace(tbl.Col(row, "cases"))
		deathsStr := strings.TrimSpace(tbl.Col(row, "deaths"))

		if fips == "" || dateStr == "" || casesStr == "" || deathsStr == "" {
			dropped++
			continue
		}

		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, dropped, eris.Wrapf(err, "clean cases: row %d: bad date %q", i+1, dateStr)
		}
		cases, err := strconv.ParseInt(casesStr, 10, 64)
		if err != nil {
			return nil, dropped, eris.Errorf("clean cases: row %d: cases %q is not numeric", i+1, casesStr)
		}
		deaths, err := strconv.ParseInt(deathsStr, 10, 64)
		if err != nil {
			return nil, dropped, eris.Errorf("clean cases: row %d: deaths %q is not numeric", i+1, deathsStr)
		}

		records = append(records, model.CaseRecord{
			FIPS:   fips,
			Date:   date,
			Cases:  cases,
			Deaths: deaths,
		})
	}

	return records, dropped, nil
}

// CleanPopulation normalizes the raw population estimate table into
// PopulationRecords. The county FIPS code is derived by concatenating the
// trimmed STATE and COUNTY sub-codes; rows where either is missing are
// dropped. A non-numeric estimate fails the whole run.
func CleanPopulation(tbl *fetcher.Table) ([]model.PopulationRecord, int, error) {
	if err := tbl.HasColumns(populationColumns...); err != nil {
		return nil, 0, eris.Wrap(err, "clean population")
	}

	records := make([]model.PopulationRecord, 0, tbl.Len())
	dropped := 0

	for i, row := range tbl.Rows {
		fips := transform.CombineFIPS(tbl.Col(row, "STATE"), tbl.Col(row, "COUNTY"))
		estStr := strings.TrimSpace(tbl.Col(row, "POPESTIMATE2019"))

		if fips == "" || estStr == "" {
			dropped++
			continue
		}

		est, err := strconv.ParseInt(estStr, 10, 64)
		if err != nil {
			return nil, dropped, eris.Errorf("clean population: row %d: estimate %q is not numeric", i+1, estStr)
		}

		records = append(records, model.PopulationRecord{
			FIPS:     fips,
			Estimate: est,
		})
	}

	return records, dropped, nil
}
