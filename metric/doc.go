// Package metric provides Prometheus-based metrics collection and an HTTP
// server for ChatKit monitoring and observability.
//
// The package offers a centralized metrics registry managing both core
// platform metrics (service status, health, NATS connectivity) and
// component-specific metrics. It includes an HTTP server exposing metrics
// in Prometheus format for monitoring system integration.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core Metrics: Platform-level metrics automatically registered (Metrics type)
//  2. Component Registry: Extensible registration for component-specific metrics (MetricsRegistrar interface)
//  3. HTTP Server: Metrics endpoint with health checks (Server type)
//
// This architecture separates infrastructure concerns (core metrics) from
// component concerns (per-shard gauges, per-route counters) while providing
// a unified metrics endpoint for monitoring systems.
//
// # Basic Usage
//
// Setting up metrics collection and the HTTP server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        logger.Error("metrics server failed", "error", err)
//	    }
//	}()
//	defer server.Stop()
//
//	// Record core platform metrics
//	coreMetrics := registry.CoreMetrics()
//	coreMetrics.RecordServiceStatus("gateway", metric.ServiceRunning)
//	coreMetrics.RecordHealthStatus("gateway", true)
//
// The metrics server exposes Prometheus-formatted metrics at
// http://localhost:9090/metrics and a health check at
// http://localhost:9090/health.
//
// # Core Metrics
//
// The registry automatically registers core platform metrics tracking:
//
//   - Service lifecycle: chatkit_service_status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)
//   - Processing performance: chatkit_processing_duration_seconds
//   - NATS connectivity: chatkit_nats_connected, chatkit_nats_rtt_milliseconds, chatkit_nats_reconnects_total
//   - Health: chatkit_health_status
//
// # Component-Specific Metrics
//
// Components register custom metrics through the MetricsRegistrar interface.
// The gateway registers per-shard status gauges and heartbeat latency, the
// REST executor registers per-route request counters and duration histograms,
// and the rate limiter exports bucket cache statistics:
//
//	statusGauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
//	    Namespace: "chatkit",
//	    Subsystem: "shard",
//	    Name:      "status",
//	    Help:      "Shard connection state",
//	}, []string{"shard"})
//
//	if err := registry.RegisterGaugeVec("gateway", "shard_status", statusGauge); err != nil {
//	    return err
//	}
//
// The registry rejects duplicate registrations at both its own level (per
// service and metric name) and the Prometheus level (metric descriptor
// conflicts), returning classified errors for each case.
//
// # Thread Safety
//
// All registry operations are safe for concurrent use. Metric updates rely
// on the Prometheus client's own synchronization.
package metric
