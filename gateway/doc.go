// Package gateway maintains the persistent WebSocket sessions that carry
// real-time platform events.
//
// # Shards
//
// Event traffic is partitioned across numbered shards. Each Shard owns one
// session end to end: it dials the gateway, waits for HELLO, opens the
// session with IDENTIFY (or reattaches with RESUME), heartbeats on the
// server's interval, and relays every DISPATCH frame to the registered
// event handler while tracking the dispatch sequence number.
//
// A dropped connection does not discard the session. The shard keeps its
// session id, sequence number and resume URL, and the next connection
// attempt sends RESUME so the server replays missed events. Only close
// codes that destroy the session (or an unresumable INVALID_SESSION)
// force a fresh IDENTIFY. A heartbeat that goes unacknowledged for a full
// interval marks the connection zombied: the socket is torn down without
// a close frame, which preserves the session for the resume.
//
// # Manager
//
// Manager supervises shards 0..N-1:
//
//	mgr, err := gateway.NewManager(gateway.Config{
//	    Token:   token,
//	    Intents: gateway.IntentsDefault,
//	}, gateway.WithRESTClient(client), gateway.WithEventHandler(onEvent))
//	if err != nil {
//	    return err
//	}
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
//	defer mgr.Shutdown(10 * time.Second)
//
// With ShardCount unset the manager discovers the topology (shard count,
// gateway URL, identify concurrency) through the REST client. Dropped
// shards restart on an exponential backoff that resets once a session
// reaches READY; shards closed with a fatal code (bad credential, bad
// shard topology, disallowed intents) stop permanently and surface a
// FatalShardError through the lifecycle handler exactly once.
//
// IDENTIFY calls are rate limited server-side: shards whose IDs are
// congruent modulo max_concurrency share an identify key admitting one
// IDENTIFY per rolling window. The manager's IdentifyLimiter enforces
// this, so shards on the same key queue instead of tripping the limit.
package gateway
