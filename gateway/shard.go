package gateway

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/chatkit/errors"
	"github.com/c360/chatkit/metric"
)

const (
	// DefaultHelloTimeout bounds the wait for the server's first frame
	// after the socket opens.
	DefaultHelloTimeout = 15 * time.Second

	// DefaultCloseGrace bounds the wait for the server to echo a clean
	// close frame during shutdown.
	DefaultCloseGrace = 2 * time.Second

	handshakeTimeout = 45 * time.Second
	writeTimeout     = 10 * time.Second
)

// Session end causes that are part of the protocol rather than failures.
var (
	errServerReconnect    = stderrors.New("server requested reconnect")
	errSessionInvalidated = stderrors.New("session invalidated")
)

// EventHandler receives every decoded DISPATCH frame. Handlers run on the
// shard's read loop; slow handlers stall that shard (and only that shard).
type EventHandler func(shardID int, ev Event)

// ShardConfig carries everything one shard needs to hold a session.
type ShardConfig struct {
	ID           int
	Count        int
	URL          string
	Token        string
	Intents      Intents
	Compress     bool
	HelloTimeout time.Duration
	CloseGrace   time.Duration
}

// Shard holds one gateway session: it dials, handshakes, heartbeats, and
// relays dispatch events. Session identity (session id, sequence, resume
// URL) survives across connections so a drop resumes instead of replaying
// the full identify flow.
//
// All session state is written by the shard's own supervisor goroutine and
// the per-session loops it spawns; external callers only read snapshots
// via Status().
type Shard struct {
	cfg     ShardConfig
	gate    IdentifyGate
	handler EventHandler
	emit    func(LifecycleEvent)
	logger  *slog.Logger
	metrics *metric.Metrics
	dialer  *websocket.Dialer

	state    atomic.Int32
	sequence atomic.Int64

	mu        sync.Mutex
	sessionID string
	resumeURL string

	writeMu sync.Mutex

	heartbeatLatency atomic.Int64 // nanoseconds
}

// session is the state of one connection attempt. It lives for exactly one
// dial..disconnect cycle.
type session struct {
	conn     *websocket.Conn
	interval time.Duration
	acks     chan time.Time
	done     chan struct{} // closed when the read loop exits
	wg       sync.WaitGroup
	zombied  atomic.Bool
	ready    bool // read-loop-owned
}

// sessionOutcome tells the supervisor how a session ended.
type sessionOutcome struct {
	ready      bool          // session reached READY; reset the backoff counter
	fatal      error         // terminal FatalShardError; do not restart
	retryDelay time.Duration // server-imposed wait before the next attempt
	err        error         // cause of the disconnect, nil on clean shutdown
}

func newShard(
	cfg ShardConfig,
	gate IdentifyGate,
	handler EventHandler,
	emit func(LifecycleEvent),
	logger *slog.Logger,
	metrics *metric.Metrics,
) *Shard {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HelloTimeout <= 0 {
		cfg.HelloTimeout = DefaultHelloTimeout
	}
	if cfg.CloseGrace <= 0 {
		cfg.CloseGrace = DefaultCloseGrace
	}
	if emit == nil {
		emit = func(LifecycleEvent) {}
	}
	return &Shard{
		cfg:     cfg,
		gate:    gate,
		handler: handler,
		emit:    emit,
		logger:  logger.With("shard", cfg.ID),
		metrics: metrics,
		dialer:  &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}
}

// ID returns the shard's index.
func (s *Shard) ID() int {
	return s.cfg.ID
}

// State returns the shard's current lifecycle state.
func (s *Shard) State() State {
	return State(s.state.Load())
}

// Status returns a point-in-time snapshot of the shard.
func (s *Shard) Status() ShardStatus {
	s.mu.Lock()
	sessionID := s.sessionID
	s.mu.Unlock()

	return ShardStatus{
		ID:               s.cfg.ID,
		State:            s.State(),
		SessionID:        sessionID,
		Sequence:         s.sequence.Load(),
		HeartbeatLatency: time.Duration(s.heartbeatLatency.Load()),
	}
}

func (s *Shard) setState(state State) {
	s.state.Store(int32(state))
	if s.metrics != nil {
		s.metrics.RecordShardState(s.cfg.ID, int(state))
	}
}

func (s *Shard) storeSession(sessionID, resumeURL string) {
	s.mu.Lock()
	s.sessionID = sessionID
	if resumeURL != "" {
		s.resumeURL = resumeURL
	}
	s.mu.Unlock()
}

func (s *Shard) clearSession() {
	s.mu.Lock()
	s.sessionID = ""
	s.resumeURL = ""
	s.mu.Unlock()
	s.sequence.Store(0)
}

// dialTarget returns the endpoint for the next connection: the session's
// resume URL while a resumable session exists, the configured gateway URL
// otherwise.
func (s *Shard) dialTarget() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID != "" && s.resumeURL != "" {
		return s.resumeURL
	}
	return s.cfg.URL
}

// runSession performs one complete connection lifecycle: dial, HELLO,
// IDENTIFY or RESUME, then relay frames until the connection ends. The
// returned outcome tells the caller whether and when to try again.
func (s *Shard) runSession(ctx context.Context) sessionOutcome {
	s.setState(StateConnecting)

	target := s.dialTarget()
	conn, resp, err := s.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if ctx.Err() != nil {
			s.setState(StateDisconnected)
			return sessionOutcome{}
		}
		s.setState(StateReconnecting)
		wrapped := errors.WrapTransient(err, "gateway", "runSession", "dial "+target)
		s.emit(LifecycleEvent{Kind: ShardDisconnected, ShardID: s.cfg.ID, Err: wrapped})
		return sessionOutcome{err: wrapped}
	}

	s.setState(StateAwaitingHello)
	s.emit(LifecycleEvent{Kind: ShardConnected, ShardID: s.cfg.ID})

	hello, err := s.awaitHello(conn)
	if err != nil {
		_ = conn.Close()
		return s.finishSession(ctx, err, false)
	}

	sess := &session{
		conn:     conn,
		interval: time.Duration(hello.HeartbeatInterval) * time.Millisecond,
		acks:     make(chan time.Time, 1),
		done:     make(chan struct{}),
	}

	sess.wg.Add(2)
	go s.heartbeatLoop(ctx, sess)
	go s.watchShutdown(ctx, sess)

	readErr := s.openSession(ctx, sess)
	if readErr == nil {
		readErr = s.readLoop(sess)
	}

	close(sess.done)
	_ = conn.Close()
	sess.wg.Wait()

	if sess.zombied.Load() {
		readErr = errors.NewTimeout("heartbeat_ack", sess.interval)
	}

	return s.finishSession(ctx, readErr, sess.ready)
}

// finishSession classifies how the session ended, sets the exit state, and
// emits the matching lifecycle event.
func (s *Shard) finishSession(ctx context.Context, readErr error, ready bool) sessionOutcome {
	if ctx.Err() != nil {
		s.setState(StateDisconnected)
		s.emit(LifecycleEvent{Kind: ShardDisconnected, ShardID: s.cfg.ID})
		return sessionOutcome{ready: ready}
	}

	outcome := sessionOutcome{ready: ready, err: readErr}

	var closeErr *websocket.CloseError
	if stderrors.As(readErr, &closeErr) {
		code := CloseCode(closeErr.Code)
		switch {
		case code.IsFatal():
			fatalErr := &errors.FatalShardError{ShardID: s.cfg.ID, Code: closeErr.Code, Reason: closeErr.Text}
			s.setState(StateFatal)
			if s.metrics != nil {
				s.metrics.RecordFatalClosure(s.cfg.ID, closeErr.Code)
			}
			s.logger.Error("Shard closed fatally", "code", code.String(), "reason", closeErr.Text)
			s.emit(LifecycleEvent{Kind: ShardFatal, ShardID: s.cfg.ID, Err: fatalErr})
			return sessionOutcome{fatal: fatalErr}
		case code.DestroysSession():
			s.logger.Warn("Session destroyed by close code", "code", code.String())
			s.clearSession()
		}
	}

	if stderrors.Is(readErr, errSessionInvalidated) {
		// Re-identify after a short randomized pause.
		outcome.retryDelay = time.Duration((1 + rand.Float64()*4) * float64(time.Second))
	}

	s.setState(StateReconnecting)
	s.logger.Warn("Shard disconnected", "error", readErr)
	s.emit(LifecycleEvent{Kind: ShardDisconnected, ShardID: s.cfg.ID, Err: readErr})
	return outcome
}

// awaitHello reads the server's first frame, which must be HELLO.
func (s *Shard) awaitHello(conn *websocket.Conn) (*helloData, error) {
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.HelloTimeout))

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		var netErr net.Error
		if stderrors.As(err, &netErr) && netErr.Timeout() {
			return nil, errors.NewTimeout("await_hello", s.cfg.HelloTimeout)
		}
		return nil, errors.WrapTransient(err, "gateway", "awaitHello", "read first frame")
	}
	_ = conn.SetReadDeadline(time.Time{})

	f, err := decodeFrame(data, msgType == websocket.BinaryMessage)
	if err != nil {
		return nil, &errors.ProtocolViolationError{ShardID: s.cfg.ID, Reason: "undecodable first frame", Err: err}
	}
	if f.Op != OpHello {
		return nil, &errors.ProtocolViolationError{
			ShardID: s.cfg.ID,
			Reason:  fmt.Sprintf("expected HELLO, got %s", f.Op),
		}
	}

	var hello helloData
	if err := json.Unmarshal(f.D, &hello); err != nil {
		return nil, &errors.ProtocolViolationError{ShardID: s.cfg.ID, Reason: "malformed HELLO payload", Err: err}
	}
	if hello.HeartbeatInterval <= 0 {
		return nil, &errors.ProtocolViolationError{ShardID: s.cfg.ID, Reason: "non-positive heartbeat interval"}
	}
	return &hello, nil
}

// openSession resumes the stored session when one exists, otherwise waits
// for an identify slot and opens a fresh one.
func (s *Shard) openSession(ctx context.Context, sess *session) error {
	s.mu.Lock()
	sessionID := s.sessionID
	s.mu.Unlock()

	if sessionID != "" && s.sequence.Load() > 0 {
		s.setState(StateResuming)
		s.logger.Info("Resuming session", "sequence", s.sequence.Load())
		if s.metrics != nil {
			s.metrics.RecordResume(s.cfg.ID)
		}
		return s.sendResume(sess, sessionID)
	}

	s.setState(StateIdentifying)
	if s.gate != nil {
		if err := s.gate.Wait(ctx, s.cfg.ID); err != nil {
			return err
		}
	}
	s.logger.Info("Identifying", "intents", uint64(s.cfg.Intents))
	if s.metrics != nil {
		s.metrics.RecordIdentify(s.cfg.ID)
	}
	return s.sendIdentify(sess)
}

func (s *Shard) sendIdentify(sess *session) error {
	data, err := encodeFrame(OpIdentify, identifyData{
		Token:   s.cfg.Token,
		Intents: s.cfg.Intents,
		Properties: identifyProperties{
			OS:      runtime.GOOS,
			Browser: "chatkit",
			Device:  "chatkit",
		},
		Shard:    [2]int{s.cfg.ID, s.cfg.Count},
		Compress: s.cfg.Compress,
	})
	if err != nil {
		return err
	}
	return s.write(sess.conn, data)
}

func (s *Shard) sendResume(sess *session, sessionID string) error {
	data, err := encodeFrame(OpResume, resumeData{
		Token:     s.cfg.Token,
		SessionID: sessionID,
		Sequence:  s.sequence.Load(),
	})
	if err != nil {
		return err
	}
	return s.write(sess.conn, data)
}

// readLoop relays frames until the connection ends. It runs on the
// supervisor goroutine, which is the sole writer of session identity.
func (s *Shard) readLoop(sess *session) error {
	for {
		msgType, data, err := sess.conn.ReadMessage()
		if err != nil {
			return err
		}

		f, err := decodeFrame(data, msgType == websocket.BinaryMessage)
		if err != nil {
			return &errors.ProtocolViolationError{ShardID: s.cfg.ID, Reason: "undecodable frame", Err: err}
		}

		switch f.Op {
		case OpDispatch:
			s.handleDispatch(sess, f)

		case OpHeartbeat:
			// Server asked for an immediate beat.
			if err := s.writeHeartbeat(sess); err != nil {
				return err
			}

		case OpHeartbeatACK:
			select {
			case sess.acks <- time.Now():
			default:
			}

		case OpReconnect:
			s.logger.Info("Server requested reconnect")
			return errServerReconnect

		case OpInvalidSession:
			var resumable bool
			_ = json.Unmarshal(f.D, &resumable)
			if resumable {
				s.logger.Warn("Invalid session, resume still possible")
				return errServerReconnect
			}
			s.logger.Warn("Invalid session, identifying fresh")
			s.clearSession()
			return errSessionInvalidated

		default:
			s.logger.Debug("Ignoring frame", "op", f.Op.String())
		}
	}
}

func (s *Shard) handleDispatch(sess *session, f *frame) {
	if f.S > 0 {
		s.sequence.Store(f.S)
	}

	switch f.T {
	case "READY":
		var ready readyData
		if err := json.Unmarshal(f.D, &ready); err != nil {
			s.logger.Warn("Malformed READY payload", "error", err)
		} else {
			s.storeSession(ready.SessionID, ready.ResumeGatewayURL)
		}
		sess.ready = true
		s.setState(StateReady)
		s.logger.Info("Shard ready", "session_id", ready.SessionID)
		s.emit(LifecycleEvent{Kind: ShardReady, ShardID: s.cfg.ID})

	case "RESUMED":
		sess.ready = true
		s.setState(StateReady)
		s.logger.Info("Session resumed", "sequence", s.sequence.Load())
		s.emit(LifecycleEvent{Kind: ShardResumed, ShardID: s.cfg.ID})
	}

	if s.metrics != nil {
		s.metrics.RecordEventDispatched(s.cfg.ID, f.T)
	}
	if s.handler != nil {
		s.handler(s.cfg.ID, Event{ShardID: s.cfg.ID, Type: f.T, Sequence: f.S, Data: f.D})
	}
}

// heartbeatLoop beats every interval, offset by a random first delay so
// shards don't beat in lockstep. A beat due while the previous one is
// unacknowledged marks the connection zombied and tears the socket down
// without a close frame, preserving the session for a resume.
func (s *Shard) heartbeatLoop(ctx context.Context, sess *session) {
	defer sess.wg.Done()

	timer := time.NewTimer(time.Duration(rand.Int63n(int64(sess.interval)) + 1))
	defer timer.Stop()

	var sentAt time.Time
	awaiting := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.done:
			return

		case ackAt := <-sess.acks:
			if !awaiting {
				continue
			}
			awaiting = false
			latency := ackAt.Sub(sentAt)
			s.heartbeatLatency.Store(int64(latency))
			if s.metrics != nil {
				s.metrics.RecordHeartbeatAck(s.cfg.ID, latency)
			}

		case <-timer.C:
			if awaiting {
				s.logger.Warn("Heartbeat unacknowledged, connection zombied",
					"interval", sess.interval)
				sess.zombied.Store(true)
				_ = sess.conn.Close()
				return
			}
			if err := s.writeHeartbeat(sess); err != nil {
				return
			}
			sentAt = time.Now()
			awaiting = true
			timer.Reset(sess.interval)
		}
	}
}

// watchShutdown turns a context cancellation into a clean close: send the
// close frame, give the server the grace period to echo it, then force the
// socket closed to unblock the reader.
func (s *Shard) watchShutdown(ctx context.Context, sess *session) {
	defer sess.wg.Done()

	select {
	case <-sess.done:
		return
	case <-ctx.Done():
	}

	_ = sess.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)

	select {
	case <-sess.done:
	case <-time.After(s.cfg.CloseGrace):
		s.logger.Debug("Close grace elapsed, forcing socket shut")
	}
	_ = sess.conn.Close()
}

func (s *Shard) writeHeartbeat(sess *session) error {
	data, err := encodeHeartbeat(s.sequence.Load())
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordHeartbeatSent(s.cfg.ID)
	}
	return s.write(sess.conn, data)
}

func (s *Shard) write(conn *websocket.Conn, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
