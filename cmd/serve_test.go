package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epidata/countystats/internal/model"
	"github.com/epidata/countystats/internal/store"
)

func seedStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	run, err := st.CreateRun(ctx, model.RunParams{CasesSource: "./cases.csv"})
	require.NoError(t, err)

	pop := int64(999)
	_, err = st.InsertStats(ctx, run.ID, []model.CountyStatRecord{
		{
			FIPS: "01001", Date: time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
			Population: &pop, DailyCases: 10, DailyDeaths: 1, CumulativeCases: 10, CumulativeDeaths: 1,
		},
	})
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, run.ID, &model.RunResult{StatRows: 1, Counties: 1}))

	return st
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter_Health(t *testing.T) {
	rec := get(t, newRouter(seedStore(t)), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_ListRuns(t *testing.T) {
	rec := get(t, newRouter(seedStore(t)), "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
}

func TestRouter_GetRun(t *testing.T) {
	st := seedStore(t)
	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)

	rec := get(t, newRouter(st), "/api/runs/"+runs[0].ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var run model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, runs[0].ID, run.ID)

	rec = get(t, newRouter(st), "/api/runs/ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_CountyStats(t *testing.T) {
	router := newRouter(seedStore(t))

	rec := get(t, router, "/api/stats/01001")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats []model.CountyStatRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Len(t, stats, 1)
	assert.Equal(t, int64(10), stats[0].DailyCases)
	require.NotNil(t, stats[0].Population)
	assert.Equal(t, int64(999), *stats[0].Population)

	// Leading zeros restored on lookup.
	rec = get(t, router, "/api/stats/1001")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, router, "/api/stats/99999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
