package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "octree_nav"

// Path request outcomes.
const (
	ResultFound       = "found"
	ResultInvalidEnds = "invalid_endpoints"
	ResultNoPath      = "no_path"
	ResultBudget      = "budget_exceeded"
	ResultNoOctree    = "no_octree"
	ResultCanceled    = "canceled"
)

// Reporter records navigation metrics on its own registry.
type Reporter struct {
	registry *prometheus.Registry

	buildDuration   prometheus.Histogram
	buildTotal      *prometheus.CounterVec
	nodes           *prometheus.GaugeVec
	colliders       prometheus.Gauge
	pathDuration    prometheus.Histogram
	pathIterations  prometheus.Histogram
	pathTotal       *prometheus.CounterVec
	pendingRequests prometheus.Gauge
}

// NewReporter creates a reporter with all collectors registered.
func NewReporter() *Reporter {
	r := &Reporter{
		registry: prometheus.NewRegistry(),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "octree",
			Name:      "build_duration_seconds",
			Help:      "the time to build one octree generation",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
		}),
		buildTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "octree",
			Name:      "builds_total",
			Help:      "octree builds by result",
		}, []string{"result"}),
		nodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "octree",
			Name:      "nodes",
			Help:      "node count of the published octree by node type",
		}, []string{"type"}),
		colliders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "collider",
			Name:      "registered",
			Help:      "number of colliders in the registry",
		}),
		pathDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pathfind",
			Name:      "duration_seconds",
			Help:      "the time to resolve one path request",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 18),
		}),
		pathIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pathfind",
			Name:      "iterations",
			Help:      "A* iterations per path request",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		pathTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pathfind",
			Name:      "requests_total",
			Help:      "path requests by result",
		}, []string{"result"}),
		pendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pathfind",
			Name:      "pending_requests",
			Help:      "path requests waiting for the next processing cycle",
		}),
	}

	r.registry.MustRegister(
		r.buildDuration, r.buildTotal, r.nodes, r.colliders,
		r.pathDuration, r.pathIterations, r.pathTotal, r.pendingRequests,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Reporter) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Reporter) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ReportBuild records a finished build. Failed builds leave the node gauges
// untouched since the previous generation stays published.
func (r *Reporter) ReportBuild(elapsed time.Duration, err error, branches, free, blocked int) {
	if r == nil {
		return
	}
	r.buildDuration.Observe(elapsed.Seconds())
	if err != nil {
		r.buildTotal.WithLabelValues("error").Inc()
		return
	}
	r.buildTotal.WithLabelValues("ok").Inc()
	r.nodes.WithLabelValues("branch").Set(float64(branches))
	r.nodes.WithLabelValues("free").Set(float64(free))
	r.nodes.WithLabelValues("blocked").Set(float64(blocked))
}

// ReportColliders sets the registry size.
func (r *Reporter) ReportColliders(n int) {
	if r == nil {
		return
	}
	r.colliders.Set(float64(n))
}

// ReportPath records one resolved path request.
func (r *Reporter) ReportPath(elapsed time.Duration, iterations int, result string) {
	if r == nil {
		return
	}
	r.pathDuration.Observe(elapsed.Seconds())
	r.pathIterations.Observe(float64(iterations))
	r.pathTotal.WithLabelValues(result).Inc()
}

// ReportPending sets the number of queued path requests.
func (r *Reporter) ReportPending(n int) {
	if r == nil {
		return
	}
	r.pendingRequests.Set(float64(n))
}
