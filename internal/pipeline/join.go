package pipeline

import "github.com/epidata/countystats/internal/model"

// Combine left-joins cleaned case records onto population estimates by FIPS
// code. Every case record yields exactly one combined record; counties
// absent from the population table carry a nil estimate. Keys are matched
// by exact string equality — normalization already happened in cleaning.
func Combine(cases []model.CaseRecord, population []model.PopulationRecord) []model.CombinedRecord {
	estimates := make(map[string]int64, len(population))
	for _, p := range population {
		estimates[p.FIPS] = p.Estimate
	}

	combined := make([]model.CombinedRecord, 0, len(cases))
	for _, c := range cases {
		rec := model.CombinedRecord{CaseRecord: c}
		if est, ok := estimates[c.FIPS]; ok {
			e := est
			rec.Estimate = &e
		}
		combined = append(combined, rec)
	}

	return combined
}
