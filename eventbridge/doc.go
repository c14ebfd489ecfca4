// Package eventbridge forwards gateway dispatch events to NATS.
//
// # Overview
//
// The bridge is a reference event sink: it takes the raw dispatch stream
// from the shard manager and republishes every event to a NATS subject so
// downstream consumers can process the firehose without holding a gateway
// connection themselves.
//
// Subjects are built as <prefix>.<shard>.<event_type>, for example
// chat.events.0.message_create, with the event type folded to a single
// lowercase token. Each message carries the originating shard, the gateway
// sequence number and the raw event type in headers; the body is the
// untouched event payload.
//
// # Flow and backpressure
//
// Handle enqueues onto a bounded queue that publisher workers drain. The
// enqueue never blocks the shard's read loop: when the queue is full the
// OLDEST queued event is evicted and counted as dropped, so a slow broker
// degrades into gap-y delivery rather than gateway backpressure. Consumers
// that need gapless history should detect sequence gaps via the header and
// backfill over REST.
//
// # Lifecycle
//
//	bridge, err := eventbridge.New(eventbridge.Config{
//	    URLs:          []string{"nats://localhost:4222"},
//	    SubjectPrefix: "chat.events",
//	    QueueSize:     1024,
//	    Workers:       4,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := bridge.Start(ctx); err != nil {
//	    return err
//	}
//	defer bridge.Stop(10 * time.Second)
//
//	manager, err := gateway.NewManager(cfg,
//	    gateway.WithEventHandler(bridge.Handle))
//
// Start dials the broker with exponential backoff; after the first
// successful connect the connection's own reconnect machinery takes over
// and reconnects are logged (and mirrored to the health monitor when one
// is wired). Stop closes the queue, lets the workers drain what is already
// buffered, and bounds the whole drain with a timeout.
//
// The publish side is the small Publisher interface, satisfied by
// *nats.Conn; tests inject fakes instead of running a broker.
package eventbridge
