package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsolatedRegistries(t *testing.T) {
	// Two instances must not panic on duplicate registration.
	a := New(nil)
	b := New(nil)
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestObserveTrainer(t *testing.T) {
	m := New(nil)
	m.ObserveTrainer("train", 2*time.Second, nil)
	m.ObserveTrainer("train", time.Second, errors.New("boom"))
	m.ObserveTrainer("rank", time.Second, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrainerRunsTotal.WithLabelValues("train", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrainerRunsTotal.WithLabelValues("train", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrainerRunsTotal.WithLabelValues("rank", "success")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New(nil)
	m.MetricValue.WithLabelValues("bm25", "map").Set(0.5)
	m.CacheHitsTotal.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `rankeval_metric_value{metric="map",run="bm25"} 0.5`), body)
	assert.Contains(t, body, "rankeval_score_cache_hits_total 1")
}
