package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.SyncRecords.WithLabelValues("orders").Add(3)
	r.WebhookEvents.WithLabelValues("orders", "applied").Inc()

	assert.Equal(t, float64(3), testutil.ToFloat64(r.SyncRecords.WithLabelValues("orders")))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mirror_sync_records_total{entity="orders"} 3`)
	assert.Contains(t, rec.Body.String(), `mirror_webhook_events_total{outcome="applied",topic="orders"} 1`)
}
