package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/clients", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/clients", "GET", 200, 30*time.Millisecond)
	m.RecordError("/clients", "POST", "VALIDATION_FAILED")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["GET /clients|200"])
	assert.Equal(t, int64(1), snap.Errors["POST /clients|VALIDATION_FAILED"])
	assert.InDelta(t, 20.0, snap.AverageDurationMS, 0.001)

	snap.Requests["GET /clients|200"] = 99
	assert.Equal(t, int64(2), m.Snapshot().Requests["GET /clients|200"])
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	assert.Empty(t, m.Snapshot().Requests)
}
