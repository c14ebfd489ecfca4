package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Service status values recorded by RecordServiceStatus.
const (
	ServiceStopped  = 0
	ServiceStarting = 1
	ServiceRunning  = 2
	ServiceStopping = 3
	ServiceFailed   = 4
)

// Metrics contains all platform-level metrics (not component-specific)
type Metrics struct {
	// Service metrics
	ServiceStatus      *prometheus.GaugeVec
	ProcessingDuration *prometheus.HistogramVec
	HealthCheckStatus  *prometheus.GaugeVec

	// Gateway metrics (per-shard connection lifecycle)
	ShardState       *prometheus.GaugeVec
	ShardReconnects  *prometheus.CounterVec
	ShardIdentifies  *prometheus.CounterVec
	ShardResumes     *prometheus.CounterVec
	HeartbeatsSent   *prometheus.CounterVec
	HeartbeatAcks    *prometheus.CounterVec
	HeartbeatLatency *prometheus.GaugeVec
	EventsDispatched *prometheus.CounterVec
	FatalClosures    *prometheus.CounterVec

	// REST metrics
	RESTRequests      *prometheus.CounterVec
	RESTDuration      *prometheus.HistogramVec
	RateLimitWaits    prometheus.Counter
	RateLimitWaitTime prometheus.Histogram
	RateLimited       *prometheus.CounterVec

	// Bridge metrics (event publishing)
	BridgePublished  prometheus.Counter
	BridgeDropped    prometheus.Counter
	BridgeErrors     prometheus.Counter
	BridgeQueueDepth prometheus.Gauge

	// NATS metrics (event bridge connection)
	NATSConnected  prometheus.Gauge
	NATSRTT        prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Service metrics
		ServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "chatkit",
				Subsystem: "service",
				Name:      "status",
				Help:      "Service status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)",
			},
			[]string{"service"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "chatkit",
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Event processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "operation"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "chatkit",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"service"},
		),

		// Gateway metrics
		ShardState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "chatkit",
				Subsystem: "gateway",
				Name:      "shard_state",
				Help:      "Shard connection state (0=disconnected through 7=fatal)",
			},
			[]string{"shard"},
		),

		ShardReconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chatkit",
				Subsystem: "gateway",
				Name:      "reconnects_total",
				Help:      "Total number of shard reconnect attempts",
			},
			[]string{"shard"},
		),

		ShardIdentifies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chatkit",
				Subsystem: "gateway",
				Name:      "identifies_total",
				Help:      "Total number of identify handshakes sent",
			},
			[]string{"shard"},
		),

		ShardResumes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chatkit",
				Subsystem: "gateway",
				Name:      "resumes_total",
				Help:      "Total number of session resumes attempted",
			},
			[]string{"shard"},
		),

		HeartbeatsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chatkit",
				Subsystem: "gateway",
				Name:      "heartbeats_total",
				Help:      "Total number of heartbeats sent",
			},
			[]string{"shard"},
		),

		HeartbeatAcks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chatkit",
				Subsystem: "gateway",
				Name:      "heartbeat_acks_total",
				Help:      "Total number of heartbeat acknowledgements received",
			},
			[]string{"shard"},
		),

		HeartbeatLatency: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "chatkit",
				Subsystem: "gateway",
				Name:      "heartbeat_latency_seconds",
				Help:      "Latency between heartbeat send and acknowledgement",
			},
			[]string{"shard"},
		),

		EventsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chatkit",
				Subsystem: "gateway",
				Name:      "events_dispatched_total",
				Help:      "Total number of dispatch events received by type",
			},
			[]string{"shard", "type"},
		),

		FatalClosures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chatkit",
				Subsystem: "gateway",
				Name:      "fatal_closures_total",
				Help:      "Total number of fatal close codes received",
			},
			[]string{"shard", "code"},
		),

		// REST metrics
		RESTRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chatkit",
				Subsystem: "rest",
				Name:      "requests_total",
				Help:      "Total number of REST requests by method and status class",
			},
			[]string{"method", "status"},
		),

		RESTDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "chatkit",
				Subsystem: "rest",
				Name:      "request_duration_seconds",
				Help:      "REST request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),

		RateLimitWaits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "chatkit",
				Subsystem: "rest",
				Name:      "ratelimit_waits_total",
				Help:      "Total number of requests that waited on rate-limit accounting",
			},
		),

		RateLimitWaitTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "chatkit",
				Subsystem: "rest",
				Name:      "ratelimit_wait_seconds",
				Help:      "Time spent waiting on rate-limit accounting",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),

		RateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chatkit",
				Subsystem: "rest",
				Name:      "ratelimited_total",
				Help:      "Total number of 429 responses by scope (route or global)",
			},
			[]string{"scope"},
		),

		// Bridge metrics
		BridgePublished: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "chatkit",
				Subsystem: "bridge",
				Name:      "published_total",
				Help:      "Total number of events published by the bridge",
			},
		),

		BridgeDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "chatkit",
				Subsystem: "bridge",
				Name:      "dropped_total",
				Help:      "Total number of events dropped from a full bridge queue",
			},
		),

		BridgeErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "chatkit",
				Subsystem: "bridge",
				Name:      "errors_total",
				Help:      "Total number of bridge publish failures",
			},
		),

		BridgeQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "chatkit",
				Subsystem: "bridge",
				Name:      "queue_depth",
				Help:      "Current number of events waiting in the bridge queue",
			},
		),

		// NATS metrics
		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "chatkit",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "chatkit",
				Subsystem: "nats",
				Name:      "rtt_milliseconds",
				Help:      "NATS round-trip time in milliseconds",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "chatkit",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// RecordServiceStatus updates service status metric
func (c *Metrics) RecordServiceStatus(service string, status int) {
	c.ServiceStatus.WithLabelValues(service).Set(float64(status))
}

// RecordProcessingDuration records processing time
func (c *Metrics) RecordProcessingDuration(service, operation string, duration time.Duration) {
	c.ProcessingDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(service string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(service).Set(value)
}

// RecordShardState updates a shard's connection state gauge
func (c *Metrics) RecordShardState(shardID, state int) {
	c.ShardState.WithLabelValues(strconv.Itoa(shardID)).Set(float64(state))
}

// RecordShardReconnect increments a shard's reconnect counter
func (c *Metrics) RecordShardReconnect(shardID int) {
	c.ShardReconnects.WithLabelValues(strconv.Itoa(shardID)).Inc()
}

// RecordIdentify increments a shard's identify counter
func (c *Metrics) RecordIdentify(shardID int) {
	c.ShardIdentifies.WithLabelValues(strconv.Itoa(shardID)).Inc()
}

// RecordResume increments a shard's resume counter
func (c *Metrics) RecordResume(shardID int) {
	c.ShardResumes.WithLabelValues(strconv.Itoa(shardID)).Inc()
}

// RecordHeartbeatSent increments a shard's heartbeat counter
func (c *Metrics) RecordHeartbeatSent(shardID int) {
	c.HeartbeatsSent.WithLabelValues(strconv.Itoa(shardID)).Inc()
}

// RecordHeartbeatAck records an acknowledged heartbeat and its latency
func (c *Metrics) RecordHeartbeatAck(shardID int, latency time.Duration) {
	shard := strconv.Itoa(shardID)
	c.HeartbeatAcks.WithLabelValues(shard).Inc()
	c.HeartbeatLatency.WithLabelValues(shard).Set(latency.Seconds())
}

// RecordEventDispatched increments the dispatch counter for an event type
func (c *Metrics) RecordEventDispatched(shardID int, eventType string) {
	c.EventsDispatched.WithLabelValues(strconv.Itoa(shardID), eventType).Inc()
}

// RecordFatalClosure increments the fatal close-code counter
func (c *Metrics) RecordFatalClosure(shardID, code int) {
	c.FatalClosures.WithLabelValues(strconv.Itoa(shardID), strconv.Itoa(code)).Inc()
}

// RecordRESTRequest records one REST request outcome and its duration
func (c *Metrics) RecordRESTRequest(method string, status int, duration time.Duration) {
	c.RESTRequests.WithLabelValues(method, statusClass(status)).Inc()
	c.RESTDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordRateLimitWait records time a request spent parked on rate limits
func (c *Metrics) RecordRateLimitWait(wait time.Duration) {
	c.RateLimitWaits.Inc()
	c.RateLimitWaitTime.Observe(wait.Seconds())
}

// RecordRateLimited increments the 429 counter for a scope (route or global)
func (c *Metrics) RecordRateLimited(scope string) {
	c.RateLimited.WithLabelValues(scope).Inc()
}

// RecordBridgePublished increments the published-event counter
func (c *Metrics) RecordBridgePublished() {
	c.BridgePublished.Inc()
}

// RecordBridgeDrop increments the dropped-event counter
func (c *Metrics) RecordBridgeDrop() {
	c.BridgeDropped.Inc()
}

// RecordBridgeError increments the publish-failure counter
func (c *Metrics) RecordBridgeError() {
	c.BridgeErrors.Inc()
}

// RecordBridgeQueueDepth updates the bridge queue depth gauge
func (c *Metrics) RecordBridgeQueueDepth(depth int) {
	c.BridgeQueueDepth.Set(float64(depth))
}

// statusClass buckets an HTTP status code into its class label
func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "error"
	}
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSRTT updates NATS round-trip time
func (c *Metrics) RecordNATSRTT(rtt time.Duration) {
	c.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}
