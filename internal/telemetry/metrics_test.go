package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetricsExposition(t *testing.T) {
	t.Parallel()

	m := NewMetrics(Config{Enabled: true})
	m.RecordTick("running", 1, 200*time.Microsecond)
	m.RecordTick("running", 1, 300*time.Microsecond)
	m.RecordTickError("transport")
	m.SetPlanShift([3]float64{0, 0, 0.05})
	m.RecordSwingEvent("early_touchdown")
	m.AddPublished()
	m.AddDropped()
	m.AddSendError()

	body := scrape(t, m)
	assert.Contains(t, body, `locomotion_ticks_total{state="running"} 2`)
	assert.Contains(t, body, `locomotion_tick_errors_total{kind="transport"} 1`)
	assert.Contains(t, body, `locomotion_gait_phase 1`)
	assert.Contains(t, body, `locomotion_plan_shift_meters{axis="z"} 0.05`)
	assert.Contains(t, body, `locomotion_swing_events_total{kind="early_touchdown"} 1`)
	assert.Contains(t, body, `locomotion_messages_published_total 1`)
	assert.Contains(t, body, `locomotion_messages_dropped_total 1`)
	assert.Contains(t, body, `locomotion_send_errors_total 1`)
}

func TestMetricsCustomNamespace(t *testing.T) {
	t.Parallel()

	m := NewMetrics(Config{Enabled: true, Namespace: "biped"})
	m.RecordTick("running", 0, time.Millisecond)
	assert.Contains(t, scrape(t, m), "biped_ticks_total")
}

func TestDisabledMetricsAreNoOps(t *testing.T) {
	t.Parallel()

	m := NewMetrics(Config{})
	m.RecordTick("running", 0, time.Millisecond)
	m.RecordTickError("input")
	m.SetPlanShift([3]float64{1, 2, 3})
	m.RecordSwingEvent("late_touchdown")
	m.AddPublished()
	m.AddDropped()
	m.AddSendError()

	body := scrape(t, m)
	assert.False(t, strings.Contains(body, "locomotion_"))
}
