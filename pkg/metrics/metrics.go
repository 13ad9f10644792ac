// Package metrics implements the observability hooks with prometheus
// collectors.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/graphwriter/pkg/observability"
)

const namespace = "graphwriter"

// ServerHooks records intake and dispatch events.
type ServerHooks struct {
	Accepted     prometheus.Counter
	DecodeErrors prometheus.Counter
	Enqueued     *prometheus.CounterVec
	EnqueueWait  prometheus.Histogram
	Dispatched   *prometheus.CounterVec
	Dropped      *prometheus.CounterVec
	Renders      *prometheus.CounterVec
	RenderTime   *prometheus.HistogramVec
}

// NewServerHooks creates the server collectors and registers them with reg.
func NewServerHooks(reg prometheus.Registerer) *ServerHooks {
	h := &ServerHooks{
		Accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "connections_accepted_total",
			Help: "Connections accepted by the listener",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "decode_errors_total",
			Help: "Connections dropped because the request could not be decoded",
		}),
		Enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "jobs_enqueued_total",
			Help: "Jobs published to the queue",
		}, []string{"kind"}),
		EnqueueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "enqueue_wait_seconds",
			Help:    "Time a connection handler waited for a free queue slot",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		Dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "jobs_dispatched_total",
			Help: "Jobs taken from the queue by a worker",
		}, []string{"kind"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "jobs_dropped_total",
			Help: "Jobs discarded because shutdown had begun",
		}, []string{"kind"}),
		Renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "renders_total",
			Help: "Render backend invocations by outcome",
		}, []string{"kind", "status"}),
		RenderTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "render_duration_seconds",
			Help:    "Wall-clock duration of render backend invocations",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(h.Collectors()...)
	}
	return h
}

// Collectors returns every collector owned by h.
func (h *ServerHooks) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		h.Accepted, h.DecodeErrors, h.Enqueued, h.EnqueueWait,
		h.Dispatched, h.Dropped, h.Renders, h.RenderTime,
	}
}

func (h *ServerHooks) OnAccept(context.Context, string) { h.Accepted.Inc() }

func (h *ServerHooks) OnDecodeError(context.Context, string, error) { h.DecodeErrors.Inc() }

func (h *ServerHooks) OnEnqueue(_ context.Context, kind string, wait time.Duration) {
	h.Enqueued.WithLabelValues(kind).Inc()
	h.EnqueueWait.Observe(wait.Seconds())
}

func (h *ServerHooks) OnDispatch(_ context.Context, kind string) {
	h.Dispatched.WithLabelValues(kind).Inc()
}

func (h *ServerHooks) OnDrop(_ context.Context, kind string) {
	h.Dropped.WithLabelValues(kind).Inc()
}

func (h *ServerHooks) OnRenderComplete(_ context.Context, kind string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	h.Renders.WithLabelValues(kind, status).Inc()
	h.RenderTime.WithLabelValues(kind).Observe(d.Seconds())
}

// CacheHooks records artifact cache events.
type CacheHooks struct {
	Hits   *prometheus.CounterVec
	Misses *prometheus.CounterVec
	Bytes  *prometheus.CounterVec
}

// NewCacheHooks creates the cache collectors and registers them with reg.
func NewCacheHooks(reg prometheus.Registerer) *CacheHooks {
	h := &CacheHooks{
		Hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_hits_total", Help: "Artifact cache hits",
		}, []string{"type"}),
		Misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_misses_total", Help: "Artifact cache misses",
		}, []string{"type"}),
		Bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_written_bytes_total", Help: "Bytes written to the artifact cache",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(h.Hits, h.Misses, h.Bytes)
	}
	return h
}

func (h *CacheHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Hits.WithLabelValues(keyType).Inc()
}

func (h *CacheHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Misses.WithLabelValues(keyType).Inc()
}

func (h *CacheHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Bytes.WithLabelValues(keyType).Add(float64(size))
}

var (
	_ observability.ServerHooks = (*ServerHooks)(nil)
	_ observability.CacheHooks  = (*CacheHooks)(nil)
)
