package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	mock := newMockPool(t)

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "county_stats",
		Columns:      []string{"fips", "date"},
		ConflictKeys: []string{"fips", "date"},
	}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_MissingConfig(t *testing.T) {
	mock := newMockPool(t)
	rows := [][]any{{"01001"}}

	_, err := BulkUpsert(context.Background(), mock, UpsertConfig{Table: "t", ConflictKeys: []string{"k"}}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns")

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{Table: "t", Columns: []string{"c"}}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys")
}

func TestBulkUpsert_CopyAndMerge(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_county_stats"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_county_stats"}, []string{"run_id", "fips", "date", "daily_cases"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "county_stats" .* ON CONFLICT \("run_id", "fips", "date"\) DO UPDATE SET "daily_cases" = EXCLUDED\."daily_cases"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "county_stats",
		Columns:      []string{"run_id", "fips", "date", "daily_cases"},
		ConflictKeys: []string{"run_id", "fips", "date"},
	}, [][]any{
		{"run-1", "01001", "2020-03-01", int64(10)},
		{"run-1", "01001", "2020-03-02", int64(5)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
