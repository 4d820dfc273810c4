package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisPeriod(t *testing.T) {
	now := time.Date(2026, 5, 11, 12, 0, 0, 0, time.UTC)

	start, end, err := analysisPeriod(now, 24*time.Hour, "", "")
	require.NoError(t, err)
	assert.Equal(t, now, end)
	assert.Equal(t, now.Add(-24*time.Hour), start)

	start, end, err = analysisPeriod(now, 24*time.Hour, "2026-05-01T00:00:00Z", "2026-05-08T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 5, 8, 0, 0, 0, 0, time.UTC), end)

	_, _, err = analysisPeriod(now, 24*time.Hour, "2026-05-08T00:00:00Z", "2026-05-01T00:00:00Z")
	assert.ErrorContains(t, err, "not before end")

	_, _, err = analysisPeriod(now, 24*time.Hour, "2026-05-08T00:00:00Z", "2026-05-08T00:00:00Z")
	assert.Error(t, err, "empty period")

	_, _, err = analysisPeriod(now, 24*time.Hour, "yesterday", "")
	assert.ErrorContains(t, err, "invalid -from")
}
