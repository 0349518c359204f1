package ble

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mwaldron/govee-ble/internal/ble/protocol"
	"github.com/mwaldron/govee-ble/internal/logging"
)

// SessionOptions configures connection and request handling.
type SessionOptions struct {
	ConnectAttempts int           // bounded connect retries before giving up
	ConnectDelay    time.Duration // fixed delay between connect attempts
	SendAttempts    int           // send retries (with reconnect) before surfacing
	ResponseTimeout time.Duration // how long to wait for a notification
}

// DefaultSessionOptions returns the retry policy tuned for Govee lights:
// they advertise intermittently and often refuse the first connect.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		ConnectAttempts: 5,
		ConnectDelay:    500 * time.Millisecond,
		SendAttempts:    2,
		ResponseTimeout: 20 * time.Second,
	}
}

func (o SessionOptions) withDefaults() SessionOptions {
	def := DefaultSessionOptions()
	if o.ConnectAttempts <= 0 {
		o.ConnectAttempts = def.ConnectAttempts
	}
	if o.ConnectDelay <= 0 {
		o.ConnectDelay = def.ConnectDelay
	}
	if o.SendAttempts <= 0 {
		o.SendAttempts = def.SendAttempts
	}
	if o.ResponseTimeout <= 0 {
		o.ResponseTimeout = def.ResponseTimeout
	}
	return o
}

// notifyResult is what the notification dispatcher delivers into the
// armed correlation slot.
type notifyResult struct {
	data []byte
	err  error
}

// Session owns the lifecycle of a connection to one physical device:
// connect with retry, write, correlate exactly one pending request with
// the next notification, time out, and reconnect on failure.
//
// The protocol carries no correlation ID, so correlation is positional:
// the first notification after a query is its answer. Session therefore
// serializes operations and never has more than one request in flight.
// All methods are safe for concurrent use.
type Session struct {
	adapter Adapter
	address string
	opts    SessionOptions

	// opMu serializes whole operations. This is the caller-visible
	// one-request-in-flight invariant, not an implementation detail.
	opMu sync.Mutex

	// mu guards connection state and the correlation slot.
	mu        sync.Mutex
	conn      Connection
	writeChar Characteristic
	connected bool
	closed    bool
	pending   chan notifyResult // armed single-shot slot, nil when disarmed
}

// NewSession creates a session for the device at the given address.
// No connection is made until the first request.
func NewSession(adapter Adapter, address string, opts SessionOptions) *Session {
	return &Session{
		adapter: adapter,
		address: address,
		opts:    opts.withDefaults(),
	}
}

// Address returns the device address this session is bound to.
func (s *Session) Address() string { return s.address }

// Do sends a request, connecting or reconnecting as needed, and waits for
// its decoded response when one is expected. Fire-and-forget requests
// return (nil, nil) on write success.
//
// Transient write failures are retried a bounded number of times by
// tearing the connection down and reconnecting. Timeouts are surfaced
// without a reconnect: a silent peripheral is not evidence of a dead link.
func (s *Session) Do(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= s.opts.SendAttempts; attempt++ {
		resp, err := s.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsType(err, ErrTypeWrite) {
			return nil, err
		}
		logging.Warn("send failed, reconnecting",
			zap.String("device", s.address),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.opts.SendAttempts),
			zap.Error(err),
		)
		s.teardown()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// attempt performs one connect-write-await cycle.
func (s *Session) attempt(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	writeChar, err := s.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}

	// Arm the listener before writing so a fast reply cannot slip past.
	var slot chan notifyResult
	if req.ExpectsResponse {
		slot, err = s.arm()
		if err != nil {
			return nil, err
		}
		defer s.disarm(slot)
	}

	logging.LogFrame("write", s.address, req.Frame.Bytes())
	if err := writeChar.Write(req.Frame.Bytes()); err != nil {
		return nil, &SessionError{Type: ErrTypeWrite, Address: s.address, Err: err}
	}
	if !req.ExpectsResponse {
		return nil, nil
	}

	timer := time.NewTimer(s.opts.ResponseTimeout)
	defer timer.Stop()

	select {
	case res := <-slot:
		if res.err != nil {
			return nil, res.err
		}
		resp, err := req.Decode(res.data)
		if err != nil {
			return nil, &SessionError{Type: ErrTypeMalformed, Address: s.address, Err: err}
		}
		return resp, nil
	case <-timer.C:
		return nil, &SessionError{
			Type:    ErrTypeTimeout,
			Address: s.address,
			Err:     fmt.Errorf("no notification within %s", s.opts.ResponseTimeout),
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// arm installs the single-shot correlation slot.
func (s *Session) arm() (chan notifyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, &SessionError{Type: ErrTypeClosed, Address: s.address}
	}
	if s.pending != nil {
		// opMu makes this unreachable, but a misattributed response would
		// be worse than a loud failure.
		return nil, &SessionError{Type: ErrTypeWrite, Address: s.address, Err: errors.New("correlation slot already armed")}
	}
	slot := make(chan notifyResult, 1)
	s.pending = slot
	return slot, nil
}

// disarm removes the slot if it is still armed, so a late notification
// cannot be delivered to a future request.
func (s *Session) disarm(slot chan notifyResult) {
	s.mu.Lock()
	if s.pending == slot {
		s.pending = nil
	}
	s.mu.Unlock()
}

// handleNotify dispatches an inbound notification to the armed slot, or
// drops it when nothing is pending. Must never block: it runs on the
// adapter's notification goroutine.
func (s *Session) handleNotify(data []byte) {
	logging.LogFrame("notify", s.address, data)
	if len(data) == protocol.FrameSize && !protocol.VerifyChecksum(data) {
		logging.Warn("notification checksum mismatch",
			zap.String("device", s.address),
		)
	}

	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	slot := s.pending
	s.pending = nil // single shot: the first notification consumes the slot
	s.mu.Unlock()

	if slot == nil {
		logging.Debug("dropping notification with no pending request",
			zap.String("device", s.address),
		)
		return
	}
	slot <- notifyResult{data: cp} // buffered, never blocks
}

// ensureConnected returns the cached write characteristic, connecting
// first if the session is disconnected.
func (s *Session) ensureConnected(ctx context.Context) (Characteristic, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, &SessionError{Type: ErrTypeClosed, Address: s.address}
	}
	if s.connected && s.writeChar != nil {
		wc := s.writeChar
		s.mu.Unlock()
		return wc, nil
	}
	s.mu.Unlock()

	return s.connect(ctx)
}

// connect runs the bounded retry loop and resolves characteristics on
// the fresh connection. Handles are never carried across reconnects.
func (s *Session) connect(ctx context.Context) (Characteristic, error) {
	if err := s.adapter.Enable(); err != nil {
		return nil, &SessionError{Type: ErrTypeConnection, Address: s.address, Err: err}
	}

	var lastErr error
	for attempt := 1; attempt <= s.opts.ConnectAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(s.opts.ConnectDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		logging.Debug("connecting",
			zap.String("device", s.address),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.opts.ConnectAttempts),
		)

		conn, err := s.adapter.Connect(ctx, s.address)
		if err != nil {
			lastErr = err
			logging.Warn("connect failed",
				zap.String("device", s.address),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", s.opts.ConnectAttempts),
				zap.Error(err),
			)
			continue
		}

		wc, err := s.setConnected(conn)
		if err != nil {
			lastErr = err
			_ = conn.Disconnect()
			continue
		}

		logging.Info("connected",
			zap.String("device", s.address),
			zap.Int("attempt", attempt),
		)
		return wc, nil
	}

	return nil, &SessionError{
		Type:     ErrTypeConnection,
		Address:  s.address,
		Attempts: s.opts.ConnectAttempts,
		Err:      lastErr,
	}
}

// setConnected resolves the write and read characteristics, subscribes
// the notification dispatcher, and installs the disconnect handler.
func (s *Session) setConnected(conn Connection) (Characteristic, error) {
	writeChar, err := conn.DiscoverCharacteristic(ServiceUUID, WriteCharUUID)
	if err != nil {
		return nil, fmt.Errorf("discover write characteristic: %w", err)
	}
	readChar, err := conn.DiscoverCharacteristic(ServiceUUID, ReadCharUUID)
	if err != nil {
		return nil, fmt.Errorf("discover read characteristic: %w", err)
	}
	if err := readChar.Subscribe(s.handleNotify); err != nil {
		return nil, fmt.Errorf("subscribe notifications: %w", err)
	}

	conn.OnDisconnect(func() {
		s.handleDisconnect(conn)
	})

	s.mu.Lock()
	s.conn = conn
	s.writeChar = writeChar
	s.connected = true
	s.mu.Unlock()

	return writeChar, nil
}

// handleDisconnect reacts to a peripheral-initiated disconnect: the stale
// handles are invalidated and any pending wait is failed so its caller
// can reconnect instead of running into the full response timeout.
func (s *Session) handleDisconnect(conn Connection) {
	s.mu.Lock()
	if s.conn != conn {
		// Callback from a connection we already replaced.
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.writeChar = nil
	s.connected = false
	slot := s.pending
	s.pending = nil
	s.mu.Unlock()

	logging.Warn("peripheral disconnected", zap.String("device", s.address))

	if slot != nil {
		slot <- notifyResult{err: &SessionError{
			Type:    ErrTypeWrite,
			Address: s.address,
			Err:     errors.New("connection lost while awaiting response"),
		}}
	}
}

// teardown drops the current connection so the next operation reconnects.
func (s *Session) teardown() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.writeChar = nil
	s.connected = false
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Disconnect()
	}
}

// Close disconnects and marks the session unusable. A pending wait is
// failed immediately.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.writeChar = nil
	s.connected = false
	slot := s.pending
	s.pending = nil
	s.mu.Unlock()

	if slot != nil {
		slot <- notifyResult{err: &SessionError{Type: ErrTypeClosed, Address: s.address}}
	}
	if conn != nil {
		return conn.Disconnect()
	}
	return nil
}
