// Package health provides health monitoring for ChatKit components and systems
// with thread-safe status tracking and aggregation.
//
// The health package tracks the health of individual connectivity components,
// gateway shards, the REST client, the event bridge, and aggregates them into
// system-wide health information for monitoring, alerting, and operational
// visibility.
//
// # Health States
//
// The package supports three health states:
//   - Healthy: component operating normally
//   - Degraded: component operating with reduced functionality
//   - Unhealthy: component not functioning properly
//
// The three-state model enables nuanced operational responses. A shard stuck
// in a resume loop is degraded (events still flow through other shards), while
// a shard rejected with an authentication close code is unhealthy and needs
// human attention.
//
// # Core Components
//
// Status: individual component health state containing status level, descriptive
// message, timestamp, optional metrics, and hierarchical sub-statuses.
//
// Snapshot: a point-in-time reading produced by a component (healthy flag,
// last error, uptime, error count, events processed). Components report
// Snapshots; FromSnapshot converts them to Statuses with automatic error
// sanitization.
//
// Monitor: thread-safe centralized tracking for multiple component health
// statuses with concurrent read/write access and automatic timestamp management.
//
// Handler: an HTTP handler serving the aggregated health as JSON, returning
// 503 when the system is unhealthy.
//
// # Basic Usage
//
// Creating and tracking component health:
//
//	monitor := health.NewMonitor()
//
//	// Update component health
//	monitor.UpdateHealthy(health.ShardComponent(0), "Session established")
//	monitor.UpdateDegraded("event-bridge", "Publish queue above threshold")
//	monitor.UpdateUnhealthy(health.ShardComponent(3), "Heartbeat ack timeout")
//
//	// Check individual component health
//	if status, exists := monitor.Get("shard-0"); exists {
//	    if status.IsHealthy() {
//	        log.Println("Shard 0 is healthy")
//	    }
//	}
//
//	// Get all component statuses
//	allStatuses := monitor.GetAll()
//	for name, status := range allStatuses {
//	    log.Printf("%s: %s - %s", name, status.Status, status.Message)
//	}
//
// # Reporting Component Snapshots
//
// Components that track their own counters report Snapshots instead of
// building Statuses by hand:
//
//	monitor.UpdateSnapshot(health.ShardComponent(shard.ID()), health.Snapshot{
//	    Healthy:         shard.Connected(),
//	    LastError:       shard.LastErrorString(),
//	    Uptime:          time.Since(shard.StartedAt()),
//	    ErrorCount:      shard.ErrorCount(),
//	    EventsProcessed: shard.EventsDispatched(),
//	    LastActivity:    shard.LastEventAt(),
//	})
//
// FromSnapshot sanitizes the last error before it becomes the status message,
// so gateway URLs, broker addresses, and tokens never reach a dashboard.
//
// # System-Wide Health Aggregation
//
// Combining multiple component health statuses into system-wide indicators:
//
//	systemHealth := monitor.AggregateHealth("chatkitd")
//	if systemHealth.IsUnhealthy() {
//	    log.Printf("System unhealthy: %s", systemHealth.Message)
//	}
//
// Aggregation uses hierarchical rules:
//   - Any unhealthy component → system unhealthy
//   - Any degraded component (with no unhealthy) → system degraded
//   - All healthy → system healthy
//
// The aggregate message counts the components in the worst state, e.g.
// "2 of 16 sub-components unhealthy".
//
// # HTTP Health Endpoint
//
// Handler serves the aggregate as JSON for load balancers and orchestrators:
//
//	mux.Handle("/health", health.Handler(monitor, "chatkitd"))
//
// The response code is 503 when unhealthy and 200 otherwise. Degraded systems
// report 200 because they continue serving traffic.
//
// # Security
//
// Error messages passed through FromSnapshot are automatically sanitized:
//
//	// Original error with sensitive data
//	err := "identify rejected by wss://gateway.example.com with token=Bot.abc123"
//
//	// After sanitization
//	// "identify rejected by [URL] with [REDACTED]"
//
// Sanitization patterns:
//   - URLs: http://, https://, nats://, ws://, wss:// → [URL]
//   - File paths: /path/to/file, C:\path\to\file → [PATH]
//   - IP addresses: 192.168.1.100 → [IP]
//   - Ports: :8080 → :[PORT]
//   - Credentials: password=X, token=X, key=X, secret=X → [REDACTED]
//
// Sanitization has no opt-out. Over-redaction during debugging is preferred
// over a bot token in a health dashboard.
//
// # Thread Safety
//
// All Monitor operations are thread-safe and can be called from multiple
// goroutines. The Monitor uses an RWMutex internally to allow concurrent reads
// while protecting writes. Status objects are immutable; methods like
// WithMetrics and WithSubStatus return new copies rather than modifying the
// original.
//
// # Architecture Integration
//
// Data flow:
//
//	Shard/Bridge → health.Snapshot → health.FromSnapshot → health.Status → Monitor → HTTP /health
//
// The gateway shard manager reports a Snapshot per shard under the canonical
// name from ShardComponent. The event bridge and REST client report under
// their own component names. The metrics server mounts Handler at /health.
package health
