package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/epidata/countystats/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	params     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS county_stats (
	run_id            TEXT NOT NULL REFERENCES runs(id),
	fips              TEXT NOT NULL,
	date              TEXT NOT NULL,
	population        INTEGER,
	daily_cases       INTEGER NOT NULL,
	daily_deaths      INTEGER NOT NULL,
	cumulative_cases  INTEGER NOT NULL,
	cumulative_deaths INTEGER NOT NULL,
	PRIMARY KEY (run_id, fips, date)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_county_stats_fips ON county_stats(fips, date);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, params model.RunParams) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal params")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, params, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(paramsJSON), string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Params:    params,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, runErr error) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET error = ?, status = ?, updated_at = ? WHERE id = ?`,
		runErr.Error(), string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, params, status, result, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrRunNotFound, "sqlite: get run %s", runID)
		}
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, params, status, result, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) InsertStats(ctx context.Context, runID string, stats []model.CountyStatRecord) (int64, error) {
	if len(stats) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	// Duplicate (fips, date) input rows flow through the engine untouched;
	// the store keeps the last one.
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO county_stats
			(run_id, fips, date, population, daily_cases, daily_deaths, cumulative_cases, cumulative_deaths)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, fips, date) DO UPDATE SET
			population = excluded.population,
			daily_cases = excluded.daily_cases,
			daily_deaths = excluded.daily_deaths,
			cumulative_cases = excluded.cumulative_cases,
			cumulative_deaths = excluded.cumulative_deaths`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert stats")
	}
	defer stmt.Close() //nolint:errcheck

	var inserted int64
	for _, stat := range stats {
		var population any
		if stat.Population != nil {
			population = *stat.Population
		}
		if _, err := stmt.ExecContext(ctx,
			runID, stat.FIPS, stat.Date.Format("2006-01-02"), population,
			stat.DailyCases, stat.DailyDeaths, stat.CumulativeCases, stat.CumulativeDeaths,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert stat %s/%s", stat.FIPS, stat.Date.Format("2006-01-02"))
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit stats")
	}
	return inserted, nil
}

func (s *SQLiteStore) CountyStats(ctx context.Context, fips string) ([]model.CountyStatRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fips, date, population, daily_cases, daily_deaths, cumulative_cases, cumulative_deaths
		 FROM county_stats
		 WHERE fips = ?
		   AND run_id = (SELECT id FROM runs WHERE status = ? ORDER BY created_at DESC LIMIT 1)
		 ORDER BY date`,
		fips, string(model.RunStatusComplete),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: county stats %s", fips)
	}
	defer rows.Close() //nolint:errcheck

	var stats []model.CountyStatRecord
	for rows.Next() {
		var (
			stat       model.CountyStatRecord
			dateStr    string
			population sql.NullInt64
		)
		if err := rows.Scan(&stat.FIPS, &dateStr, &population,
			&stat.DailyCases, &stat.DailyDeaths, &stat.CumulativeCases, &stat.CumulativeDeaths); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stat")
		}
		stat.Date, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse stat date %q", dateStr)
		}
		if population.Valid {
			p := population.Int64
			stat.Population = &p
		}
		stats = append(stats, stat)
	}
	return stats, eris.Wrap(rows.Err(), "sqlite: iterate stats")
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanRun.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var (
		run        model.Run
		paramsJSON string
		resultJSON sql.NullString
		errText    sql.NullString
	)
	if err := row.Scan(&run.ID, &paramsJSON, &run.Status, &resultJSON, &errText,
		&run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(paramsJSON), &run.Params); err != nil {
		return nil, eris.Wrap(err, "unmarshal run params")
	}
	if resultJSON.Valid && resultJSON.String != "" {
		run.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), run.Result); err != nil {
			return nil, eris.Wrap(err, "unmarshal run result")
		}
	}
	if errText.Valid {
		run.Error = errText.String
	}
	return &run, nil
}

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrRunNotFound, "sqlite: run %s", runID)
	}
	return nil
}
