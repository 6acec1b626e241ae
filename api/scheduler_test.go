package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/residency-engine/generic"
)

func TestReportScheduler_RunNowOncePerDay(t *testing.T) {
	// GIVEN: An empty reports table
	// WHEN: The scheduler runs twice on the same day, then on the next day
	// THEN: Two reports are saved, one per day

	h, _ := setupTestHandler(t)
	ctx := context.Background()
	rs := NewReportScheduler(h)

	assert.True(t, rs.RunNow(ctx))
	assert.False(t, rs.RunNow(ctx))

	latest, err := h.Store.LatestReport(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, testToday, latest.AsOf)

	tomorrow := testToday.AddDays(1)
	h.Today = func() generic.Date { return tomorrow }
	assert.True(t, rs.RunNow(ctx))

	latest, err = h.Store.LatestReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, tomorrow, latest.AsOf)
}

func TestReportScheduler_StartStop(t *testing.T) {
	h, _ := setupTestHandler(t)
	rs := NewReportScheduler(h)
	rs.CheckInterval = time.Hour

	rs.Start()
	rs.Stop()

	// The immediate run on start has completed before Stop returns.
	latest, err := h.Store.LatestReport(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, testToday, latest.AsOf)

	// Stop is idempotent
	rs.Stop()
}

func TestReportScheduler_Disabled(t *testing.T) {
	h, _ := setupTestHandler(t)
	rs := NewReportScheduler(h)
	rs.Enabled = false

	rs.Start()
	rs.Stop()

	latest, err := h.Store.LatestReport(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)
}
