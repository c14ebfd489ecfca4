package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/chatkit/errors"
	"github.com/c360/chatkit/health"
	"github.com/c360/chatkit/metric"
	"github.com/c360/chatkit/pkg/retry"
	"github.com/c360/chatkit/rest"
)

// noticeBuffer sizes the lifecycle notice queue between the shards and
// the supervisory loop.
const noticeBuffer = 64

// serviceName labels the manager's rows in the service-level metrics.
const serviceName = "gateway"

// LifecycleEventKind names a shard lifecycle transition.
type LifecycleEventKind int

// Lifecycle transitions reported to the application.
const (
	ShardConnected LifecycleEventKind = iota
	ShardReady
	ShardResumed
	ShardDisconnected
	ShardFatal
)

// String returns the transition name.
func (k LifecycleEventKind) String() string {
	switch k {
	case ShardConnected:
		return "connected"
	case ShardReady:
		return "ready"
	case ShardResumed:
		return "resumed"
	case ShardDisconnected:
		return "disconnected"
	case ShardFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// LifecycleEvent is a shard lifecycle notification. Err is set on
// disconnects (the cause) and on fatal failures (the terminal
// FatalShardError).
type LifecycleEvent struct {
	Kind    LifecycleEventKind
	ShardID int
	Err     error
}

// LifecycleHandler receives lifecycle events. Handlers run on the
// manager's supervisory loop and should return quickly.
type LifecycleHandler func(LifecycleEvent)

// ShardStatus is a point-in-time snapshot of one shard.
type ShardStatus struct {
	ID               int
	State            State
	SessionID        string
	Sequence         int64
	HeartbeatLatency time.Duration
}

// Config carries the gateway topology and credential for a Manager.
// ShardCount 0 means discover the topology through the REST client
// (FetchGatewayBot); that also fills URL and MaxConcurrency when unset.
type Config struct {
	URL            string
	Token          string
	Intents        Intents
	ShardCount     int
	MaxConcurrency int
	Compress       bool
	HelloTimeout   time.Duration
	CloseGrace     time.Duration
}

// Manager owns shards 0..N-1. It starts them, restarts any that drop
// (with exponential backoff, reset once a shard reaches READY), enforces
// the identify-concurrency window across them, and fans lifecycle events
// out to the application. A shard that fails fatally is stopped and
// surfaced exactly once; it is not restarted.
type Manager struct {
	cfg       Config
	rest      *rest.Client
	gate      IdentifyGate
	handler   EventHandler
	lifecycle LifecycleHandler
	logger    *slog.Logger
	metrics   *metric.Metrics
	health    *health.Monitor
	backoff   retry.Config

	mu      sync.Mutex
	shards  []*Shard
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	supWg   sync.WaitGroup

	notices chan LifecycleEvent
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics enables shard and event metrics.
func WithMetrics(metrics *metric.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// WithEventHandler registers the dispatch-event sink.
func WithEventHandler(handler EventHandler) ManagerOption {
	return func(m *Manager) { m.handler = handler }
}

// WithLifecycleHandler registers the lifecycle-event sink.
func WithLifecycleHandler(handler LifecycleHandler) ManagerOption {
	return func(m *Manager) { m.lifecycle = handler }
}

// WithRESTClient supplies the REST client used for gateway topology
// discovery when Config leaves ShardCount or URL unset.
func WithRESTClient(client *rest.Client) ManagerOption {
	return func(m *Manager) { m.rest = client }
}

// WithReconnectBackoff overrides the restart delay schedule.
func WithReconnectBackoff(cfg retry.Config) ManagerOption {
	return func(m *Manager) { m.backoff = cfg }
}

// WithIdentifyGate replaces the identify-concurrency gate.
func WithIdentifyGate(gate IdentifyGate) ManagerOption {
	return func(m *Manager) { m.gate = gate }
}

// WithHealthMonitor wires per-shard health reporting.
func WithHealthMonitor(monitor *health.Monitor) ManagerOption {
	return func(m *Manager) { m.health = monitor }
}

// NewManager creates a Manager. The token is required; everything else
// has defaults or is discovered at Start.
func NewManager(cfg Config, opts ...ManagerOption) (*Manager, error) {
	if cfg.Token == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingToken, "Manager", "NewManager", "token required")
	}

	m := &Manager{
		cfg:     cfg,
		logger:  slog.Default(),
		backoff: retry.Reconnect(),
		notices: make(chan LifecycleEvent, noticeBuffer),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Start resolves the shard topology, builds the shards, and launches
// their supervisors. It returns once everything is running; sessions
// establish in the background.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return errors.WrapFatal(fmt.Errorf("manager already started"), "Manager", "Start", "check state")
	}
	m.recordStatus(metric.ServiceStarting)

	count := m.cfg.ShardCount
	maxConcurrency := m.cfg.MaxConcurrency
	url := m.cfg.URL

	if count <= 0 || url == "" {
		if m.rest == nil {
			m.recordStatus(metric.ServiceFailed)
			return errors.WrapInvalid(errors.ErrMissingConfig, "Manager", "Start",
				"shard count or URL unset and no REST client for discovery")
		}
		info, err := m.rest.FetchGatewayBot(ctx)
		if err != nil {
			m.recordStatus(metric.ServiceFailed)
			return errors.Wrap(err, "Manager", "Start", "discover gateway topology")
		}
		if count <= 0 {
			count = info.Shards
		}
		if url == "" {
			url = info.URL
		}
		if maxConcurrency <= 0 {
			maxConcurrency = info.SessionStartLimit.MaxConcurrency
		}
		m.logger.Info("Discovered gateway topology",
			"url", url, "shards", count, "max_concurrency", maxConcurrency,
			"identifies_remaining", info.SessionStartLimit.Remaining)
		if info.SessionStartLimit.Remaining < count {
			m.logger.Warn("Identify budget below shard count",
				"remaining", info.SessionStartLimit.Remaining, "shards", count)
		}
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	if m.gate == nil {
		m.gate = NewIdentifyLimiter(maxConcurrency)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.shards = make([]*Shard, count)
	for i := 0; i < count; i++ {
		m.shards[i] = newShard(ShardConfig{
			ID:           i,
			Count:        count,
			URL:          url,
			Token:        m.cfg.Token,
			Intents:      m.cfg.Intents,
			Compress:     m.cfg.Compress,
			HelloTimeout: m.cfg.HelloTimeout,
			CloseGrace:   m.cfg.CloseGrace,
		}, m.gate, m.handler, m.notify, m.logger, m.metrics)

		if m.health != nil {
			m.health.UpdateDegraded(health.ShardComponent(i), "starting")
		}
	}

	m.notices = make(chan LifecycleEvent, noticeBuffer)
	m.wg.Add(1)
	go m.loop()

	for _, sh := range m.shards {
		m.wg.Add(1)
		m.supWg.Add(1)
		go m.supervise(runCtx, sh)
	}

	// Close the notice channel once every supervisor has returned. Shards
	// emit only from their supervisor's call stack, so no send can follow
	// the close, and the loop drains whatever is still queued.
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.supWg.Wait()
		close(m.notices)
	}()

	m.logger.Info("Shard manager started", "shards", count, "max_concurrency", maxConcurrency)
	m.started = true
	m.recordStatus(metric.ServiceRunning)
	return nil
}

// recordStatus updates the gateway's service status gauge when metrics
// are configured.
func (m *Manager) recordStatus(status int) {
	if m.metrics != nil {
		m.metrics.RecordServiceStatus(serviceName, status)
	}
}

// Shutdown closes every shard's session with a clean close frame and waits
// for all goroutines, bounded by timeout.
func (m *Manager) Shutdown(timeout time.Duration) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	cancel := m.cancel
	m.mu.Unlock()

	m.recordStatus(metric.ServiceStopping)
	cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		m.recordStatus(metric.ServiceFailed)
		return errors.WrapTransient(
			fmt.Errorf("shutdown timeout after %v", timeout),
			"Manager", "Shutdown", "wait for shards")
	}

	m.mu.Lock()
	m.started = false
	m.mu.Unlock()
	m.recordStatus(metric.ServiceStopped)
	m.logger.Info("Shard manager stopped")
	return nil
}

// ShardStatus returns a snapshot of every shard.
func (m *Manager) ShardStatus() []ShardStatus {
	m.mu.Lock()
	shards := m.shards
	m.mu.Unlock()

	statuses := make([]ShardStatus, 0, len(shards))
	for _, sh := range shards {
		statuses = append(statuses, sh.Status())
	}
	return statuses
}

// supervise runs one shard's reconnect loop. Sessions are retried with
// exponential backoff until the context ends or the shard fails fatally;
// the attempt counter resets whenever a session reaches READY.
func (m *Manager) supervise(ctx context.Context, sh *Shard) {
	defer m.wg.Done()
	defer m.supWg.Done()

	attempts := 0
	for {
		if ctx.Err() != nil {
			return
		}

		outcome := sh.runSession(ctx)
		if outcome.fatal != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		if outcome.ready {
			attempts = 0
		}
		attempts++

		delay := m.backoff.DelayFor(attempts)
		if outcome.retryDelay > delay {
			delay = outcome.retryDelay
		}
		if m.metrics != nil {
			m.metrics.RecordShardReconnect(sh.ID())
		}
		m.logger.Info("Restarting shard", "shard", sh.ID(), "attempt", attempts, "delay", delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// notify forwards a shard's lifecycle event to the supervisory loop. A
// terminal notice blocks until the loop accepts it: a shard's fatal
// outcome is reported exactly once, never dropped. Non-terminal notices
// are dropped with a warning when the loop is saturated rather than
// stalling the shard.
func (m *Manager) notify(ev LifecycleEvent) {
	if ev.Kind == ShardFatal {
		m.notices <- ev
		return
	}
	select {
	case m.notices <- ev:
	default:
		m.logger.Warn("Lifecycle notice dropped", "kind", ev.Kind.String(), "shard", ev.ShardID)
	}
}

// loop consumes lifecycle notices until every supervisor has exited and
// the queue is drained, so notices emitted during shutdown still reach
// the application.
func (m *Manager) loop() {
	defer m.wg.Done()
	for ev := range m.notices {
		m.handleNotice(ev)
	}
}

func (m *Manager) handleNotice(ev LifecycleEvent) {
	switch ev.Kind {
	case ShardReady, ShardResumed:
		if m.health != nil {
			m.health.UpdateHealthy(health.ShardComponent(ev.ShardID), "session established")
		}
	case ShardDisconnected:
		if m.health != nil {
			msg := "reconnecting"
			if ev.Err != nil {
				msg = ev.Err.Error()
			}
			m.health.UpdateDegraded(health.ShardComponent(ev.ShardID), msg)
		}
	case ShardFatal:
		if m.health != nil {
			msg := "stopped"
			if ev.Err != nil {
				msg = ev.Err.Error()
			}
			m.health.UpdateUnhealthy(health.ShardComponent(ev.ShardID), msg)
		}
		m.logger.Error("Shard failed terminally", "shard", ev.ShardID, "error", ev.Err)
	}

	if m.lifecycle != nil {
		m.lifecycle(ev)
	}
}
