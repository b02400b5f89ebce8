package telemetry

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CollectorsWork(t *testing.T) {
	m := New("siteforged")

	m.MessagesProcessed.WithLabelValues("initial", "lead").Inc()
	m.SectionBuilds.WithLabelValues("header", "ok").Add(2)
	m.ActiveSessions.Set(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesProcessed.WithLabelValues("initial", "lead")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SectionBuilds.WithLabelValues("header", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ActiveSessions))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New("siteforged")
	m.GenerationFailures.WithLabelValues("frontend").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "siteforged_generation_failures_total")
}

func TestNew_InstancesAreIndependent(t *testing.T) {
	a := New("siteforged")
	b := New("siteforged")

	a.ActiveSessions.Set(1)

	assert.Equal(t, 0.0, testutil.ToFloat64(b.ActiveSessions))
}
