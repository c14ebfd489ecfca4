package eventbridge

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/chatkit/errors"
	"github.com/c360/chatkit/gateway"
	"github.com/c360/chatkit/health"
	"github.com/c360/chatkit/metric"
	"github.com/c360/chatkit/pkg/retry"
)

// Message headers attached to every published event.
const (
	HeaderShard     = "Chatkit-Shard"
	HeaderSequence  = "Chatkit-Sequence"
	HeaderEventType = "Chatkit-Event-Type"
)

// Defaults applied when Config leaves fields unset.
const (
	DefaultSubjectPrefix = "chat.events"
	DefaultQueueSize     = 1024
	DefaultWorkers       = 4

	defaultConnectTimeout = 5 * time.Second
	defaultReconnectWait  = 2 * time.Second
	defaultRTTInterval    = 30 * time.Second
	healthComponent       = "bridge"
)

// Publisher sends one message to the broker. *nats.Conn satisfies it;
// tests inject fakes.
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
}

// rttProvider exposes broker round-trip time. *nats.Conn satisfies it;
// injected publishers may implement it to opt into RTT sampling.
type rttProvider interface {
	RTT() (time.Duration, error)
}

// Config sizes the bridge and names its target.
type Config struct {
	URLs          []string
	SubjectPrefix string
	QueueSize     int
	Workers       int
}

// Stats is a point-in-time snapshot of the bridge's counters.
type Stats struct {
	Published  int64 `json:"published"`
	Dropped    int64 `json:"dropped"`
	Errored    int64 `json:"errored"`
	QueueDepth int   `json:"queue_depth"`
}

// Bridge forwards gateway dispatch events to NATS subjects named
// <prefix>.<shard>.<event_type>. Events flow through a bounded queue into
// publisher workers; when the queue is full the oldest queued event is
// dropped so fresh events keep flowing. Stop drains whatever is queued,
// bounded by a timeout.
type Bridge struct {
	cfg            Config
	url            string
	pub            Publisher
	conn           *nats.Conn
	logger         *slog.Logger
	metrics        *metric.Metrics
	monitor        *health.Monitor
	clientName     string
	connectTimeout time.Duration
	reconnectWait  time.Duration
	rttInterval    time.Duration
	backoff        retry.Config

	queue chan gateway.Event
	done  chan struct{}
	wg    sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool

	published atomic.Int64
	dropped   atomic.Int64
	errored   atomic.Int64
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics enables bridge and connection metrics.
func WithMetrics(metrics *metric.Metrics) Option {
	return func(b *Bridge) { b.metrics = metrics }
}

// WithPublisher replaces the NATS connection with a caller-supplied
// publisher. Start skips connecting when one is set.
func WithPublisher(pub Publisher) Option {
	return func(b *Bridge) { b.pub = pub }
}

// WithHealthMonitor wires bridge connectivity into the health monitor.
func WithHealthMonitor(monitor *health.Monitor) Option {
	return func(b *Bridge) { b.monitor = monitor }
}

// WithClientName sets the connection name advertised to the broker.
func WithClientName(name string) Option {
	return func(b *Bridge) {
		if name != "" {
			b.clientName = name
		}
	}
}

// WithConnectBackoff overrides the initial-connect retry schedule.
func WithConnectBackoff(cfg retry.Config) Option {
	return func(b *Bridge) { b.backoff = cfg }
}

// WithReconnectWait sets the wait between broker reconnect attempts.
func WithReconnectWait(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.reconnectWait = d
		}
	}
}

// WithRTTInterval sets how often the broker round-trip time is sampled
// into the metrics gauge.
func WithRTTInterval(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.rttInterval = d
		}
	}
}

// New creates a Bridge. Either Config.URLs or WithPublisher must provide
// a publish target.
func New(cfg Config, opts ...Option) (*Bridge, error) {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	b := &Bridge{
		cfg:            cfg,
		url:            strings.Join(cfg.URLs, ","),
		logger:         slog.Default(),
		clientName:     "chatkit-bridge",
		connectTimeout: defaultConnectTimeout,
		reconnectWait:  defaultReconnectWait,
		rttInterval:    defaultRTTInterval,
		backoff: retry.Config{
			MaxAttempts:  5,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
			AddJitter:    true,
		},
		queue: make(chan gateway.Event, cfg.QueueSize),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	if b.pub == nil && b.url == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Bridge", "New", "no broker URLs and no publisher")
	}
	return b, nil
}

// Start connects to the broker (unless a publisher was injected) and
// launches the publish workers.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return errors.WrapFatal(fmt.Errorf("bridge already started"), "Bridge", "Start", "check state")
	}
	b.recordStatus(metric.ServiceStarting)

	if b.pub == nil {
		conn, err := b.connect(ctx)
		if err != nil {
			b.recordStatus(metric.ServiceFailed)
			return err
		}
		b.conn = conn
		b.pub = conn
		if b.metrics != nil {
			b.metrics.RecordNATSStatus(true)
		}
		if b.monitor != nil {
			b.monitor.UpdateHealthy(healthComponent, "connected")
		}
	}

	for i := 0; i < b.cfg.Workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}

	if src, ok := b.pub.(rttProvider); ok && b.metrics != nil {
		b.wg.Add(1)
		go b.pollRTT(src)
	}

	b.started = true
	b.recordStatus(metric.ServiceRunning)
	b.logger.Info("Event bridge started",
		"workers", b.cfg.Workers, "queue_size", b.cfg.QueueSize, "subject_prefix", b.cfg.SubjectPrefix)
	return nil
}

// recordStatus updates the bridge's service status gauge when metrics
// are configured.
func (b *Bridge) recordStatus(status int) {
	if b.metrics != nil {
		b.metrics.RecordServiceStatus(healthComponent, status)
	}
}

// pollRTT samples the broker round-trip time on a fixed interval until
// the bridge stops.
func (b *Bridge) pollRTT(src rttProvider) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.rttInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			rtt, err := src.RTT()
			if err != nil {
				continue
			}
			b.metrics.RecordNATSRTT(rtt)
		}
	}
}

// connect dials the broker, retrying on the backoff schedule. Once up,
// the connection's own reconnect machinery takes over.
func (b *Bridge) connect(ctx context.Context) (*nats.Conn, error) {
	attempts := b.backoff.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := nats.Connect(b.url, b.connectionOptions()...)
		if err == nil {
			b.logger.Info("Connected to broker", "url", conn.ConnectedUrlRedacted())
			return conn, nil
		}
		lastErr = err

		delay := b.backoff.DelayFor(attempt)
		b.logger.Warn("Broker connect failed, retrying",
			"attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, errors.WrapTransient(ctx.Err(), "Bridge", "Start", "connect cancelled")
		case <-time.After(delay):
		}
	}
	return nil, errors.WrapTransient(lastErr, "Bridge", "Start",
		fmt.Sprintf("connect after %d attempts", attempts))
}

func (b *Bridge) connectionOptions() []nats.Option {
	return []nats.Option{
		nats.Name(b.clientName),
		nats.Timeout(b.connectTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(b.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			b.logger.Warn("Broker connection lost", "error", err)
			if b.metrics != nil {
				b.metrics.RecordNATSStatus(false)
			}
			if b.monitor != nil {
				msg := "disconnected"
				if err != nil {
					msg = err.Error()
				}
				b.monitor.UpdateDegraded(healthComponent, msg)
			}
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			b.logger.Info("Broker connection restored", "url", conn.ConnectedUrlRedacted())
			if b.metrics != nil {
				b.metrics.RecordNATSStatus(true)
				b.metrics.RecordNATSReconnect()
			}
			if b.monitor != nil {
				b.monitor.UpdateHealthy(healthComponent, "reconnected")
			}
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			b.logger.Info("Broker connection closed")
			if b.metrics != nil {
				b.metrics.RecordNATSStatus(false)
			}
		}),
	}
}

// Handle enqueues one dispatch event. It never blocks: when the queue is
// full the oldest queued event is dropped to make room. Safe to use as a
// gateway event handler.
func (b *Bridge) Handle(_ int, ev gateway.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.started || b.stopped {
		return
	}

	select {
	case b.queue <- ev:
	default:
		// Full. Evict the oldest so the freshest events survive.
		select {
		case old := <-b.queue:
			b.dropped.Add(1)
			if b.metrics != nil {
				b.metrics.RecordBridgeDrop()
			}
			b.logger.Warn("Bridge queue full, dropped oldest event",
				"dropped_type", old.Type, "dropped_shard", old.ShardID)
		default:
		}
		select {
		case b.queue <- ev:
		default:
			b.dropped.Add(1)
			if b.metrics != nil {
				b.metrics.RecordBridgeDrop()
			}
		}
	}

	if b.metrics != nil {
		b.metrics.RecordBridgeQueueDepth(len(b.queue))
	}
}

func (b *Bridge) worker() {
	defer b.wg.Done()
	for ev := range b.queue {
		b.publish(ev)
		if b.metrics != nil {
			b.metrics.RecordBridgeQueueDepth(len(b.queue))
		}
	}
}

func (b *Bridge) publish(ev gateway.Event) {
	header := nats.Header{}
	header.Set(HeaderShard, strconv.Itoa(ev.ShardID))
	header.Set(HeaderSequence, strconv.FormatInt(ev.Sequence, 10))
	header.Set(HeaderEventType, ev.Type)

	msg := &nats.Msg{
		Subject: b.subjectFor(ev),
		Header:  header,
		Data:    ev.Data,
	}

	start := time.Now()
	err := b.pub.PublishMsg(msg)
	if b.metrics != nil {
		b.metrics.RecordProcessingDuration(healthComponent, "publish", time.Since(start))
	}

	if err != nil {
		b.errored.Add(1)
		if b.metrics != nil {
			b.metrics.RecordBridgeError()
		}
		b.logger.Error("Publish failed",
			"subject", msg.Subject, "shard", ev.ShardID, "error", err)
		return
	}

	b.published.Add(1)
	if b.metrics != nil {
		b.metrics.RecordBridgePublished()
	}
}

// subjectFor builds <prefix>.<shard>.<event_type> with the event type
// folded to a single lowercase subject token.
func (b *Bridge) subjectFor(ev gateway.Event) string {
	return fmt.Sprintf("%s.%d.%s", b.cfg.SubjectPrefix, ev.ShardID, subjectToken(ev.Type))
}

func subjectToken(eventType string) string {
	if eventType == "" {
		return "unknown"
	}
	var sb strings.Builder
	sb.Grow(len(eventType))
	for _, r := range strings.ToLower(eventType) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// Stop drains the queue and closes the broker connection, bounded by
// timeout. Events still queued are published before the workers exit.
func (b *Bridge) Stop(timeout time.Duration) error {
	b.mu.Lock()
	if !b.started || b.stopped {
		b.mu.Unlock()
		return nil
	}
	b.stopped = true
	close(b.queue)
	close(b.done)
	b.mu.Unlock()

	b.recordStatus(metric.ServiceStopping)

	drained := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(drained)
	}()

	var drainErr error
	select {
	case <-drained:
	case <-time.After(timeout):
		drainErr = errors.WrapTransient(
			fmt.Errorf("drain timeout after %v", timeout),
			"Bridge", "Stop", "wait for workers")
	}

	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	b.recordStatus(metric.ServiceStopped)

	if drainErr != nil {
		b.logger.Warn("Event bridge stopped with queued events unsent", "error", drainErr)
		return drainErr
	}
	b.logger.Info("Event bridge stopped",
		"published", b.published.Load(), "dropped", b.dropped.Load(), "errored", b.errored.Load())
	return nil
}

// Stats returns the bridge's counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Published:  b.published.Load(),
		Dropped:    b.dropped.Load(),
		Errored:    b.errored.Load(),
		QueueDepth: len(b.queue),
	}
}
