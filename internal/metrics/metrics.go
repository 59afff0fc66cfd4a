package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry 进程内指标，每个进程一份，测试可各自创建
type Registry struct {
	reg *prometheus.Registry

	SyncRecords      *prometheus.CounterVec // entity
	SyncPasses       *prometheus.CounterVec // outcome
	SyncPassDuration prometheus.Histogram
	SyncTenants      prometheus.Gauge
	WebhookEvents    *prometheus.CounterVec // topic, outcome
	TenantsDeduped   prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	syncRecords := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_sync_records_total",
		Help: "Records upserted by polling passes.",
	}, []string{"entity"})
	syncPasses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_sync_pass_total",
		Help: "Polling passes by outcome.",
	}, []string{"outcome"})
	passDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mirror_sync_pass_duration_seconds",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
	syncTenants := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mirror_sync_tenants",
		Help: "Tenants in the most recent pass.",
	})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_webhook_events_total",
		Help: "Inbound webhook events by topic prefix and outcome.",
	}, []string{"topic", "outcome"})
	deduped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mirror_tenants_deduped_total",
	})

	r.MustRegister(syncRecords, syncPasses, passDuration, syncTenants, webhookEvents, deduped)
	return &Registry{
		reg:              r,
		SyncRecords:      syncRecords,
		SyncPasses:       syncPasses,
		SyncPassDuration: passDuration,
		SyncTenants:      syncTenants,
		WebhookEvents:    webhookEvents,
		TenantsDeduped:   deduped,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
