// Package store persists pipeline run history and output statistics.
// Two backends are provided: SQLite for local use and Postgres for shared
// deployments.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/epidata/countystats/internal/model"
)

// ErrRunNotFound is returned when a run ID does not exist in the store.
// Callers match it with errors.Is.
var ErrRunNotFound = eris.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the statistics pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, params model.RunParams) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, result *model.RunResult) error
	FailRun(ctx context.Context, runID string, runErr error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Output statistics
	InsertStats(ctx context.Context, runID string, stats []model.CountyStatRecord) (int64, error)
	// CountyStats returns the stat series for one county from the most
	// recent completed run, ordered by date.
	CountyStats(ctx context.Context, fips string) ([]model.CountyStatRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
