package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epidata/countystats/internal/model"
)

func TestCombine_LeftJoin(t *testing.T) {
	cases := []model.CaseRecord{
		{FIPS: "01001", Date: d(t, "2020-03-01"), Cases: 10, Deaths: 1},
		{FIPS: "01001", Date: d(t, "2020-03-02"), Cases: 15, Deaths: 2},
		{FIPS: "01003", Date: d(t, "2020-03-01"), Cases: 7, Deaths: 0},
	}
	population := []model.PopulationRecord{
		{FIPS: "01001", Estimate: 55869},
		{FIPS: "01003", Estimate: 223234},
		{FIPS: "01005", Estimate: 24686}, // no case rows; inner-join would keep it, left must not add it
	}

	combined := Combine(cases, population)
	// Exactly one output row per case row.
	require.Len(t, combined, len(cases))

	for i, rec := range combined {
		assert.Equal(t, cases[i], rec.CaseRecord)
	}
	require.NotNil(t, combined[0].Estimate)
	assert.Equal(t, int64(55869), *combined[0].Estimate)
	require.NotNil(t, combined[2].Estimate)
	assert.Equal(t, int64(223234), *combined[2].Estimate)
}

func TestCombine_UnmatchedCountyKeepsRow(t *testing.T) {
	cases := []model.CaseRecord{
		{FIPS: "78010", Date: d(t, "2020-03-20"), Cases: 3, Deaths: 0},
	}

	combined := Combine(cases, []model.PopulationRecord{{FIPS: "01001", Estimate: 55869}})
	require.Len(t, combined, 1)
	assert.Nil(t, combined[0].Estimate)
	assert.Equal(t, "78010", combined[0].FIPS)
}

func TestCombine_NoPopulationData(t *testing.T) {
	cases := []model.CaseRecord{
		{FIPS: "01001", Date: d(t, "2020-03-01"), Cases: 10, Deaths: 1},
	}

	combined := Combine(cases, nil)
	require.Len(t, combined, 1)
	assert.Nil(t, combined[0].Estimate)
}

func TestCombine_DuplicatePopulationKeys(t *testing.T) {
	// Duplicate county_id in the population table violates an upstream
	// invariant; the join must still produce one row per case record.
	cases := []model.CaseRecord{
		{FIPS: "01001", Date: d(t, "2020-03-01"), Cases: 10, Deaths: 1},
	}
	population := []model.PopulationRecord{
		{FIPS: "01001", Estimate: 100},
		{FIPS: "01001", Estimate: 200},
	}

	combined := Combine(cases, population)
	require.Len(t, combined, 1)
	require.NotNil(t, combined[0].Estimate)
	assert.Equal(t, int64(200), *combined[0].Estimate)
}
