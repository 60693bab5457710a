package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epidata/countystats/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	created := time.Date(2020, 4, 1, 12, 0, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "run-1",
			Status:    model.RunStatusComplete,
			Result:    &model.RunResult{StatRows: 120, Counties: 4},
			CreatedAt: created,
		},
		{
			ID:        "run-2",
			Status:    model.RunStatusFailed,
			Error:     strings.Repeat("x", 80),
			CreatedAt: created,
		},
	}

	var sb strings.Builder
	formatRunsList(&sb, runs)

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "STATUS")
	assert.Contains(t, lines[1], "run-1")
	assert.Contains(t, lines[1], "120")
	assert.Contains(t, lines[2], "failed")
	// Long errors are truncated with an ellipsis.
	assert.Contains(t, lines[2], "...")
	assert.NotContains(t, lines[2], strings.Repeat("x", 61))
}
