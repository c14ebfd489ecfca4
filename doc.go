// Package chatkit is the connectivity core for clients of a real-time
// chat-platform API. It maintains the two engines every client of the
// platform needs and that are hard to get right: a fleet of persistent
// gateway socket connections ("shards") and a self-learning REST
// rate-limit enforcer.
//
// # Architecture
//
// ChatKit is organized around two independent planes:
//
// Gateway plane (streaming):
//   - gateway.Shard: one socket session implementing the
//     connect → hello → identify/resume → ready → heartbeat state machine,
//     with zombie detection and session resumption
//   - gateway.Manager: supervises the shard set, schedules reconnects with
//     backoff, and enforces the platform's identify-concurrency window
//
// REST plane (request/response):
//   - ratelimit.Registry: discovers and tracks per-route quota buckets from
//     live response headers, serializes same-bucket requests, and gates
//     everything through a process-wide global quota
//   - rest.Client: executes one logical call with bucket reservation,
//     bounded retries and typed error outcomes
//
//	┌─────────────────────────────────────┐
//	│         gateway.Manager             │  identify windows, restarts,
//	│   (supervises shards 0..N-1)        │  lifecycle notifications
//	└─────────────────────────────────────┘
//	           ↓ owns
//	┌─────────────────────────────────────┐
//	│         gateway.Shard               │  heartbeat loop, event relay,
//	│   (one socket, one session)         │  resume bookkeeping
//	└─────────────────────────────────────┘
//
//	┌─────────────────────────────────────┐
//	│          rest.Client                │  typed outcomes, retries
//	└─────────────────────────────────────┘
//	           ↓ consults
//	┌─────────────────────────────────────┐
//	│       ratelimit.Registry            │  buckets learned from headers,
//	│   (per-route + global gating)       │  global token-bucket gate
//	└─────────────────────────────────────┘
//
// Application-facing entity models, caching of platform entities and the
// event-dispatch façade are deliberately out of scope; ChatKit hands raw
// decoded events and lifecycle notifications to whatever sink the caller
// registers. The eventbridge package ships a reference sink that forwards
// events to NATS subjects, and cmd/chatkitd wraps the whole thing in a
// small daemon.
//
// # Supporting Packages
//
//   - errors: three-class error taxonomy plus the typed failure kinds
//     (client, rate-limited, server, protocol, fatal-shard, timeout)
//   - pkg/retry: exponential backoff used by REST retries and reconnects
//   - pkg/cache: bounded LRU backing the bucket table
//   - metric, health: Prometheus registry and health aggregation
//   - config: file + environment configuration for the daemon
package chatkit
