package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunParams captures the inputs of a pipeline run: where the two sources
// were read from and where the output went.
type RunParams struct {
	CasesSource      string `json:"cases_source"`
	PopulationSource string `json:"population_source"`
	OutputPath       string `json:"output_path"`
	Concurrency      int    `json:"concurrency,omitempty"`
}

// RunResult holds per-stage row accounting for a completed run.
type RunResult struct {
	CaseRowsRead       int   `json:"case_rows_read"`
	CaseRowsKept       int   `json:"case_rows_kept"`
	PopulationRowsRead int   `json:"population_rows_read"`
	PopulationRowsKept int   `json:"population_rows_kept"`
	CombinedRows       int   `json:"combined_rows"`
	StatRows           int   `json:"stat_rows"`
	Counties           int   `json:"counties"`
	UnmatchedCounties  int   `json:"unmatched_counties"`
	DurationMs         int64 `json:"duration_ms"`
}

// Run represents a single pipeline run recorded in the store.
type Run struct {
	ID        string     `json:"id"`
	Params    RunParams  `json:"params"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
