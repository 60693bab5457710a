package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/epidata/countystats/internal/db"
	"github.com/epidata/countystats/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	params     JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     JSONB,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS county_stats (
	run_id            TEXT NOT NULL REFERENCES runs(id),
	fips              TEXT NOT NULL,
	date              DATE NOT NULL,
	population        BIGINT,
	daily_cases       BIGINT NOT NULL,
	daily_deaths      BIGINT NOT NULL,
	cumulative_cases  BIGINT NOT NULL,
	cumulative_deaths BIGINT NOT NULL,
	PRIMARY KEY (run_id, fips, date)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_county_stats_fips ON county_stats(fips, date);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, params model.RunParams) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal params")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, params, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, paramsJSON, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Params:    params,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		resultJSON, string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrRunNotFound, "postgres: run %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, runErr error) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET error = $1, status = $2, updated_at = $3 WHERE id = $4`,
		runErr.Error(), string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrRunNotFound, "postgres: run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, params, status, result, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	run, err := scanPgRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, params, status, result, error, created_at, updated_at FROM runs`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` WHERE status = $1`
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

// statColumns are the county_stats columns written by InsertStats.
var statColumns = []string{
	"run_id", "fips", "date", "population",
	"daily_cases", "daily_deaths", "cumulative_cases", "cumulative_deaths",
}

func (s *PostgresStore) InsertStats(ctx context.Context, runID string, stats []model.CountyStatRecord) (int64, error) {
	if len(stats) == 0 {
		return 0, nil
	}

	// ON CONFLICT cannot update the same row twice within one statement, so
	// duplicate (fips, date) pairs must be collapsed before the COPY.
	// Last one wins, matching the SQLite backend.
	deduped := dedupeStats(stats)

	rows := make([][]any, 0, len(deduped))
	for _, stat := range deduped {
		var population any
		if stat.Population != nil {
			population = *stat.Population
		}
		rows = append(rows, []any{
			runID, stat.FIPS, stat.Date, population,
			stat.DailyCases, stat.DailyDeaths, stat.CumulativeCases, stat.CumulativeDeaths,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "county_stats",
		Columns:      statColumns,
		ConflictKeys: []string{"run_id", "fips", "date"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert stats")
	}
	return n, nil
}

// dedupeStats collapses duplicate (fips, date) pairs, keeping the last
// occurrence in the first occurrence's position.
func dedupeStats(stats []model.CountyStatRecord) []model.CountyStatRecord {
	deduped := make([]model.CountyStatRecord, 0, len(stats))
	seen := make(map[string]int, len(stats))
	for _, stat := range stats {
		key := stat.FIPS + "/" + stat.Date.Format("2006-01-02")
		if idx, ok := seen[key]; ok {
			deduped[idx] = stat
			continue
		}
		seen[key] = len(deduped)
		deduped = append(deduped, stat)
	}
	return deduped
}

func (s *PostgresStore) CountyStats(ctx context.Context, fips string) ([]model.CountyStatRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT fips, date, population, daily_cases, daily_deaths, cumulative_cases, cumulative_deaths
		 FROM county_stats
		 WHERE fips = $1
		   AND run_id = (SELECT id FROM runs WHERE status = $2 ORDER BY created_at DESC LIMIT 1)
		 ORDER BY date`,
		fips, string(model.RunStatusComplete),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: county stats %s", fips)
	}
	defer rows.Close()

	var stats []model.CountyStatRecord
	for rows.Next() {
		var (
			stat       model.CountyStatRecord
			population *int64
		)
		if err := rows.Scan(&stat.FIPS, &stat.Date, &population,
			&stat.DailyCases, &stat.DailyDeaths, &stat.CumulativeCases, &stat.CumulativeDeaths); err != nil {
			return nil, eris.Wrap(err, "postgres: scan stat")
		}
		stat.Population = population
		stats = append(stats, stat)
	}
	return stats, eris.Wrap(rows.Err(), "postgres: iterate stats")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var (
		run        model.Run
		paramsJSON []byte
		resultJSON []byte
		errText    *string
	)
	if err := row.Scan(&run.ID, &paramsJSON, &run.Status, &resultJSON, &errText,
		&run.CreatedAt, &run.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(paramsJSON, &run.Params); err != nil {
		return nil, eris.Wrap(err, "unmarshal run params")
	}
	if len(resultJSON) > 0 {
		run.Result = &model.RunResult{}
		if err := json.Unmarshal(resultJSON, run.Result); err != nil {
			return nil, eris.Wrap(err, "unmarshal run result")
		}
	}
	if errText != nil {
		run.Error = *errText
	}
	return &run, nil
}
