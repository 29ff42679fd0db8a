package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequest("GET", 200, 10*time.Millisecond)
	c.RecordCacheRead(true)
	c.RecordFetch(true)
	c.RecordMutation("delete", OutcomeSuccess)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"todo_client_requests_total",
		"todo_client_request_duration_seconds",
		"todo_client_cache_reads_total",
		"todo_client_fetches_total",
		"todo_client_mutations_total",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}

func TestCollector_RequestStatusClasses(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordRequest("PUT", 201, time.Millisecond)
	c.RecordRequest("PUT", 204, time.Millisecond)
	c.RecordRequest("PUT", 500, time.Millisecond)
	c.RecordRequest("PUT", 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("PUT", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("PUT", "5xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("PUT", "error")))
}

func TestCollector_MutationsAndReads(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordMutation("update_status", OutcomeRolledBack)
	c.RecordMutation("update_status", OutcomeRolledBack)
	c.RecordCacheRead(false)
	c.RecordFetch(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.mutations.WithLabelValues("update_status", OutcomeRolledBack)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheReads.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetches.WithLabelValues("error")))
}
