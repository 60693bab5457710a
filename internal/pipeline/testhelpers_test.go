package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/epidata/countystats/internal/fetcher"
	"github.com/epidata/countystats/internal/model"
)

// mkTable parses an inline CSV string into a fetcher.Table.
func mkTable(t *testing.T, csv string) *fetcher.Table {
	t.Helper()
	tbl, err := fetcher.ReadTable(strings.NewReader(csv), fetcher.TableOptions{})
	require.NoError(t, err)
	return tbl
}

// d parses a 2006-01-02 date or fails the test.
func d(t *testing.T, s string) time.Time {
	t.Helper()
	date, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return date
}

func int64Ptr(v int64) *int64 {
	return &v
}

// combinedRec builds a CombinedRecord with an optional estimate.
func combinedRec(t *testing.T, fips, date string, cases, deaths int64, estimate *int64) model.CombinedRecord {
	t.Helper()
	return model.CombinedRecord{
		CaseRecord: model.CaseRecord{FIPS: fips, Date: d(t, date), Cases: cases, Deaths: deaths},
		Estimate:   estimate,
	}
}
