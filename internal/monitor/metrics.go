package monitor

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector marketplace metrics on a private registry.
// A nil collector is valid and records nothing.
type MetricsCollector struct {
	registry *prometheus.Registry

	// business metrics
	cartOperationTotal    *prometheus.CounterVec
	requestTotal          *prometheus.CounterVec
	bidSubmissionTotal    *prometheus.CounterVec
	bidDecisionTotal      *prometheus.CounterVec
	bidDecisionDuration   *prometheus.HistogramVec
	conversationTotal     *prometheus.CounterVec
	notificationTotal     *prometheus.CounterVec
	bidFilterLookupTotal  *prometheus.CounterVec
	profileCacheTotal     *prometheus.CounterVec
	notificationQueueSize *prometheus.GaugeVec

	// system metrics
	httpRequestTotal    *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	dbConnectionsOpen   prometheus.Gauge
	dbConnectionsInUse  prometheus.Gauge
	dbConnectionsIdle   prometheus.Gauge
	goroutineCount      prometheus.Gauge
}

// NewMetricsCollector creates a collector registered under namespace
func NewMetricsCollector(namespace string) *MetricsCollector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	mc := &MetricsCollector{registry: reg}

	mc.cartOperationTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_operation_total",
		Help:      "Cart operations by outcome",
	}, []string{"operation", "result"})

	mc.requestTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "request_total",
		Help:      "Request ledger operations by outcome",
	}, []string{"operation", "result"})

	mc.bidSubmissionTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bid_submission_total",
		Help:      "Bid submissions by outcome",
	}, []string{"result"})

	mc.bidDecisionTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bid_decision_total",
		Help:      "Bid status changes by target status and outcome",
	}, []string{"status", "result"})

	mc.bidDecisionDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "bid_decision_duration_seconds",
		Help:      "Duration of bid status changes",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})

	mc.conversationTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conversation_resolve_total",
		Help:      "Conversation get-or-create calls",
	}, []string{"result"})

	mc.notificationTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_total",
		Help:      "Notification pipeline events by stage and outcome",
	}, []string{"stage", "result"})

	mc.bidFilterLookupTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bid_filter_lookup_total",
		Help:      "Duplicate-bid filter lookups",
	}, []string{"result"})

	mc.profileCacheTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_cache_total",
		Help:      "Profile cache lookups",
	}, []string{"result"})

	mc.notificationQueueSize = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_size",
		Help:      "Buffered messages per topic",
	}, []string{"topic"})

	mc.httpRequestTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	mc.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	mc.dbConnectionsOpen = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_connections_open",
		Help:      "Open database connections",
	})
	mc.dbConnectionsInUse = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_connections_in_use",
		Help:      "Database connections in use",
	})
	mc.dbConnectionsIdle = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_connections_idle",
		Help:      "Idle database connections",
	})
	mc.goroutineCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "goroutines",
		Help:      "Number of goroutines",
	})

	return mc
}

// Result turns an error into a metric label
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordCartOperation records a cart operation
func (mc *MetricsCollector) RecordCartOperation(operation, result string) {
	if mc == nil {
		return
	}
	mc.cartOperationTotal.WithLabelValues(operation, result).Inc()
}

// RecordRequestOperation records a request ledger operation
func (mc *MetricsCollector) RecordRequestOperation(operation, result string) {
	if mc == nil {
		return
	}
	mc.requestTotal.WithLabelValues(operation, result).Inc()
}

// RecordBidSubmission records a bid submission
func (mc *MetricsCollector) RecordBidSubmission(result string) {
	if mc == nil {
		return
	}
	mc.bidSubmissionTotal.WithLabelValues(result).Inc()
}

// RecordBidDecision records a status change on a bid
func (mc *MetricsCollector) RecordBidDecision(status, result string, duration time.Duration) {
	if mc == nil {
		return
	}
	mc.bidDecisionTotal.WithLabelValues(status, result).Inc()
	mc.bidDecisionDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordConversation records a get-or-create outcome
func (mc *MetricsCollector) RecordConversation(result string) {
	if mc == nil {
		return
	}
	mc.conversationTotal.WithLabelValues(result).Inc()
}

// RecordNotification records a dispatch or persist event
func (mc *MetricsCollector) RecordNotification(stage, result string) {
	if mc == nil {
		return
	}
	mc.notificationTotal.WithLabelValues(stage, result).Inc()
}

// RecordBidFilterLookup records a bloom filter lookup
func (mc *MetricsCollector) RecordBidFilterLookup(result string) {
	if mc == nil {
		return
	}
	mc.bidFilterLookupTotal.WithLabelValues(result).Inc()
}

// RecordProfileCache records a profile cache hit or miss
func (mc *MetricsCollector) RecordProfileCache(result string) {
	if mc == nil {
		return
	}
	mc.profileCacheTotal.WithLabelValues(result).Inc()
}

// UpdateQueueSize sets the buffered message count of a topic
func (mc *MetricsCollector) UpdateQueueSize(topic string, size int) {
	if mc == nil {
		return
	}
	mc.notificationQueueSize.WithLabelValues(topic).Set(float64(size))
}

// RecordHTTPRequest records a finished HTTP request
func (mc *MetricsCollector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if mc == nil {
		return
	}
	mc.httpRequestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	mc.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateDBStats copies connection pool stats into gauges
func (mc *MetricsCollector) UpdateDBStats(stats sql.DBStats) {
	if mc == nil {
		return
	}
	mc.dbConnectionsOpen.Set(float64(stats.OpenConnections))
	mc.dbConnectionsInUse.Set(float64(stats.InUse))
	mc.dbConnectionsIdle.Set(float64(stats.Idle))
}

// StartSystemMetricsCollection samples runtime and pool stats until ctx ends.
// stats may be nil when no database is attached.
func (mc *MetricsCollector) StartSystemMetricsCollection(ctx context.Context, interval time.Duration, stats func() sql.DBStats) {
	if mc == nil {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mc.goroutineCount.Set(float64(runtime.NumGoroutine()))
				if stats != nil {
					mc.UpdateDBStats(stats())
				}
			}
		}
	}()
}

// Handler exposes the registry in the Prometheus text format
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}

// GinMiddleware records count and latency per route template
func (mc *MetricsCollector) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		mc.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
