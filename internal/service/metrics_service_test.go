package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edunova-api/internal/timetable"
)

func TestMetricsServiceRecordsGenerations(t *testing.T) {
	m := NewMetricsService()

	m.RecordGeneration(OutcomeGenerated, 2*time.Millisecond, timetable.Stats{Slots: 10, FreeSlots: 2, FilledSlots: 8})
	m.RecordGeneration(OutcomeGenerated, time.Millisecond, timetable.Stats{Slots: 10, FreeSlots: 0, FilledSlots: 10})
	m.RecordGeneration(OutcomeCached, 0, timetable.Stats{Slots: 10, FreeSlots: 2, FilledSlots: 8})
	m.RecordGeneration(OutcomeRejected, 0, timetable.Stats{})
	m.ObserveHTTPRequest(http.MethodPost, "/generate", http.StatusOK, 4*time.Millisecond)

	snapshot := m.Snapshot()
	assert.Equal(t, uint64(3), snapshot.Generations)
	assert.Equal(t, uint64(1), snapshot.GenerationFailures)
	assert.InDelta(t, 0.1, snapshot.FreeSlotRatio, 0.0001)
	assert.Equal(t, uint64(1), snapshot.RequestsTotal)
	assert.InDelta(t, 4.0, snapshot.AverageRequestDurationMs, 0.0001)
	assert.False(t, snapshot.GeneratedAt.IsZero())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `timetable_generations_total{outcome="generated"} 2`)
	assert.Contains(t, body, `timetable_slots_total{kind="free"} 2`)
	assert.Contains(t, body, "http_requests_total")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordGeneration(OutcomeGenerated, time.Millisecond, timetable.Stats{Slots: 1})
	m.RecordCacheOperation(true, time.Millisecond)
	m.ObserveCacheWrite(time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	assert.Zero(t, m.Snapshot().Generations)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
