package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/connectfour-client/internal/apperror"
	"github.com/rocketscienceinc/connectfour-client/internal/config"
	"github.com/rocketscienceinc/connectfour-client/internal/event"
)

type frameHandler interface {
	Handle(ctx context.Context, raw []byte)
}

// handle wraps one dialed connection. Callbacks capture the handle they were
// started for and compare it against the currently tracked one before acting,
// so events from a superseded connection are ignored instead of corrupting
// the state of its replacement.
type handle struct {
	conn *websocket.Conn
	done chan struct{}
}

// Manager owns the single connection to the game server: candidate endpoint
// rotation, the open/close lifecycle, exponential-backoff reconnects, and the
// graceful shutdown on unload. Everything else talks to the server through
// its Send methods and watches connection events on the bus.
type Manager struct {
	logger *slog.Logger
	conf   *config.Connection
	bus    eventPublisher

	router frameHandler

	writeMu sync.Mutex

	mu         sync.Mutex
	state      State
	handle     *handle
	candidates []string
	retryCount int
	retryTimer *time.Timer
	session    int
	unloading  bool
	username   string
	mode       string
}

func NewManager(logger *slog.Logger, conf *config.Connection, bus eventPublisher) *Manager {
	return &Manager{
		logger:     logger,
		conf:       conf,
		bus:        bus,
		candidates: conf.Candidates(),
	}
}

// Attach - binds the inbound frame handler. The first registration wins and
// later calls are no-ops, so remounting a consumer can never create a second
// delivery path for the same frame.
func (that *Manager) Attach(router frameHandler) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.router != nil {
		return
	}

	that.router = router
}

func (that *Manager) State() State {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.state
}

// Connect - starts dialing for the given identity and returns a teardown
// function scoped to this request. When a connection is already connecting
// or open the call is a no-op, so concurrent mounts cannot create duplicate
// sockets.
func (that *Manager) Connect(ctx context.Context, username, mode string) func() {
	log := that.logger.With("method", "Connect")

	that.mu.Lock()

	if that.unloading {
		that.mu.Unlock()
		return func() {}
	}

	if that.state == StateConnecting || that.state == StateOpen {
		log.Debug("connect ignored, connection already active", "state", that.state.String())
		that.mu.Unlock()

		return func() {}
	}

	that.session++
	token := that.session
	that.username = username
	that.mode = mode
	that.retryCount = 0
	that.state = StateConnecting
	that.mu.Unlock()

	go that.dial(ctx, token)

	return func() { that.teardown(token) }
}

// dial - attempts one connection to the next candidate endpoint. Failures
// run through the same backoff path as an unexpected close.
func (that *Manager) dial(ctx context.Context, token int) {
	log := that.logger.With("method", "dial")

	that.mu.Lock()
	if token != that.session || that.unloading {
		that.mu.Unlock()
		return
	}

	that.state = StateConnecting
	endpoint := candidateAt(that.candidates, that.retryCount)
	attempt := that.retryCount
	that.mu.Unlock()

	log.Debug("dialing game server", "endpoint", endpoint, "attempt", attempt)

	dialer := websocket.Dialer{HandshakeTimeout: that.conf.DialTimeout}

	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		log.Warn("failed to dial game server", "endpoint", endpoint, "error", err)

		that.mu.Lock()
		defer that.mu.Unlock()

		if token != that.session || that.unloading {
			return
		}

		that.state = StateIdle
		that.scheduleReconnect(ctx, token)

		return
	}

	that.mu.Lock()
	if token != that.session || that.unloading {
		that.mu.Unlock()
		_ = conn.Close()

		return
	}

	current := &handle{
		conn: conn,
		done: make(chan struct{}),
	}

	that.handle = current
	that.state = StateOpen
	that.retryCount = 0
	username, mode := that.username, that.mode
	that.mu.Unlock()

	log.Info("connected to game server", "endpoint", endpoint)

	that.bus.Publish(event.Event{
		Type:    event.TypeConnectionChanged,
		Payload: event.ConnectionChangedPayload{State: StateOpen.String()},
	})

	// The join goes out immediately: a delayed send can race a close that
	// arrives while the delay is still pending.
	if err = that.write(current, newJoinEnvelope(username, mode)); err != nil {
		log.Error("failed to send join", "error", err)
	}

	go that.readPump(ctx, current)
	go that.pingLoop(current)
}

// readPump - delivers frames to the router synchronously in receipt order
// until the connection drops.
func (that *Manager) readPump(ctx context.Context, current *handle) {
	that.mu.Lock()
	router := that.router
	that.mu.Unlock()

	for {
		_, raw, err := current.conn.ReadMessage()
		if err != nil {
			that.handleClose(ctx, current, err)
			return
		}

		if router != nil {
			router.Handle(ctx, raw)
		}
	}
}

func (that *Manager) pingLoop(current *handle) {
	ticker := time.NewTicker(that.conf.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-current.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(that.conf.WriteTimeout)
			if err := current.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				that.logger.Debug("failed to ping game server", "error", err)
				return
			}
		}
	}
}

// handleClose - reacts to a dropped connection. Closes reported by a handle
// that is no longer the tracked one are stale and ignored.
func (that *Manager) handleClose(ctx context.Context, current *handle, cause error) {
	log := that.logger.With("method", "handleClose")

	that.mu.Lock()
	defer that.mu.Unlock()

	if current != that.handle {
		log.Debug("ignoring close from superseded connection", "error", cause)
		return
	}

	close(current.done)
	_ = current.conn.Close()
	that.handle = nil

	if that.unloading {
		that.state = StateClosed
		return
	}

	log.Warn("connection closed unexpectedly", "error", cause)
	that.state = StateIdle

	that.bus.Publish(event.Event{
		Type:    event.TypeConnectionChanged,
		Payload: event.ConnectionChangedPayload{State: StateIdle.String(), Error: cause},
	})

	that.scheduleReconnect(ctx, that.session)
}

// scheduleReconnect - arms the backoff timer for the next dial, or reports a
// fatal failure once the attempt ceiling is reached. Caller holds the lock.
func (that *Manager) scheduleReconnect(ctx context.Context, token int) {
	log := that.logger.With("method", "scheduleReconnect")

	if that.retryCount >= that.conf.MaxReconnectAttempts {
		log.Error("reconnect attempts exhausted", "attempts", that.retryCount)

		that.state = StateClosed
		that.bus.Publish(event.Event{
			Type: event.TypeConnectionChanged,
			Payload: event.ConnectionChangedPayload{
				State: StateClosed.String(),
				Fatal: true,
				Error: apperror.ErrReconnectExhausted,
			},
		})

		return
	}

	delay := retryDelay(that.conf.InitialRetryDelay, that.retryCount)
	that.retryCount++

	log.Info("scheduling reconnect", "delay", delay, "attempt", that.retryCount)

	that.retryTimer = time.AfterFunc(delay, func() {
		that.dial(ctx, token)
	})
}

// teardown - releases everything belonging to one Connect call. A teardown
// whose token has been superseded is a no-op.
func (that *Manager) teardown(token int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if token != that.session {
		return
	}

	// Invalidate the token so a reconnect callback already scheduled for
	// this session can never fire after the teardown.
	that.session++

	if that.retryTimer != nil {
		that.retryTimer.Stop()
		that.retryTimer = nil
	}

	if that.handle != nil {
		close(that.handle.done)
		_ = that.handle.conn.Close()
		that.handle = nil
	}

	that.state = StateIdle
}

// Shutdown - permanently stops the manager for page unload: no reconnect may
// ever be scheduled afterwards, and the connection is closed gracefully.
func (that *Manager) Shutdown() {
	log := that.logger.With("method", "Shutdown")

	that.mu.Lock()

	that.unloading = true
	that.session++

	if that.retryTimer != nil {
		that.retryTimer.Stop()
		that.retryTimer = nil
	}

	current := that.handle
	that.handle = nil

	if current == nil {
		that.state = StateClosed
		that.mu.Unlock()

		return
	}

	that.state = StateClosing
	that.mu.Unlock()

	close(current.done)

	deadline := time.Now().Add(that.conf.WriteTimeout)
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := current.conn.WriteControl(websocket.CloseMessage, message, deadline); err != nil {
		log.Debug("failed to send close frame", "error", err)
	}

	_ = current.conn.Close()

	that.mu.Lock()
	that.state = StateClosed
	that.mu.Unlock()

	log.Info("connection shut down")
}

// SendJoin - joins (or rejoins) a game, updating the identity a later
// reconnect will join with.
func (that *Manager) SendJoin(username, mode string) error {
	that.mu.Lock()
	that.username = username
	that.mode = mode
	current := that.handle
	that.mu.Unlock()

	return that.send(current, newJoinEnvelope(username, mode))
}

func (that *Manager) SendMove(gameID string, column int) error {
	return that.send(that.currentHandle(), newMoveEnvelope(gameID, column))
}

func (that *Manager) SendCancelWaiting(gameID string) error {
	return that.send(that.currentHandle(), newCancelWaitingEnvelope(gameID))
}

func (that *Manager) SendPlayAgain(gameID string) error {
	return that.send(that.currentHandle(), newPlayAgainEnvelope(gameID))
}

func (that *Manager) SendExitGame(gameID string) error {
	return that.send(that.currentHandle(), newExitGameEnvelope(gameID))
}

func (that *Manager) currentHandle() *handle {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state != StateOpen {
		return nil
	}

	return that.handle
}

func (that *Manager) send(current *handle, env Envelope) error {
	if current == nil {
		return apperror.ErrConnectionClosed
	}

	return that.write(current, env)
}

// write - serializes frame writes; gorilla connections allow one concurrent
// writer only.
func (that *Manager) write(current *handle, env Envelope) error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err := current.conn.SetWriteDeadline(time.Now().Add(that.conf.WriteTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := current.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("failed to write %s frame: %w", env.Type, err)
	}

	return nil
}

// candidateAt - rotates through the candidate endpoints so consecutive
// retries probe different addresses instead of hammering one.
func candidateAt(candidates []string, attempt int) string {
	return candidates[attempt%len(candidates)]
}

// retryDelay - exponential backoff: the delay doubles with every attempt.
func retryDelay(initial time.Duration, attempt int) time.Duration {
	return initial << attempt
}
