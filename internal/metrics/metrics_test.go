package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNewMetrics(reg)

	m.SessionStarted()
	m.SessionStarted()
	m.SessionFinished("completed")
	m.Answer("PAEI", true)
	m.Answer("PAEI", false)
	m.LLMFallback("DISC")
	m.Upload("full", "failed")
	m.ObservePipeline("ok", 3*time.Second)
	m.SetActiveSessions(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsFinished.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.answers.WithLabelValues("PAEI", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.llmFallbacks.WithLabelValues("DISC")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.sessionsActive))

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP profilebot_report_uploads_total Report uploads by variant and status.
# TYPE profilebot_report_uploads_total counter
profilebot_report_uploads_total{status="failed",variant="full"} 1
`), "profilebot_report_uploads_total")
	require.NoError(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SessionStarted()
		m.SessionFinished("aborted")
		m.Answer("SOFT", true)
		m.LLMFallback("OVERALL")
		m.Upload("short", "uploaded")
		m.ObservePipeline("error", time.Second)
		m.SetActiveSessions(1)
	})
}

func TestMustNewMetrics_DuplicatePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustNewMetrics(reg)
	assert.Panics(t, func() { MustNewMetrics(reg) })
}
