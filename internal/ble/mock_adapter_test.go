package ble

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// mockCharacteristic records writes and allows subscribing.
type mockCharacteristic struct {
	mu       sync.Mutex
	writes   [][]byte
	callback func([]byte)
	writeErr error
	onWrite  func([]byte) // test hook, invoked after a successful write
}

func (c *mockCharacteristic) Write(data []byte) error {
	c.mu.Lock()
	if c.writeErr != nil {
		err := c.writeErr
		c.mu.Unlock()
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.writes = append(c.writes, cp)
	hook := c.onWrite
	c.mu.Unlock()

	if hook != nil {
		hook(cp)
	}
	return nil
}

func (c *mockCharacteristic) Subscribe(cb func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = cb
	return nil
}

// SimulateNotification sends a notification to the subscriber.
func (c *mockCharacteristic) SimulateNotification(data []byte) {
	c.mu.Lock()
	cb := c.callback
	c.mu.Unlock()
	if cb != nil {
		cb(data)
	}
}

func (c *mockCharacteristic) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

func (c *mockCharacteristic) lastWrite() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.writes) == 0 {
		return nil
	}
	return c.writes[len(c.writes)-1]
}

func (c *mockCharacteristic) setOnWrite(hook func([]byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onWrite = hook
}

// mockConnection simulates a BLE connection carrying the Govee write and
// read characteristics.
type mockConnection struct {
	mu           sync.Mutex
	writeChar    *mockCharacteristic
	readChar     *mockCharacteristic
	disconnectCb func()
	disconnected bool
}

func newMockConnection() *mockConnection {
	return &mockConnection{
		writeChar: &mockCharacteristic{},
		readChar:  &mockCharacteristic{},
	}
}

func (c *mockConnection) DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error) {
	if serviceUUID != ServiceUUID {
		return nil, fmt.Errorf("mock: unknown service UUID %q", serviceUUID)
	}
	switch charUUID {
	case WriteCharUUID:
		return c.writeChar, nil
	case ReadCharUUID:
		return c.readChar, nil
	default:
		return nil, fmt.Errorf("mock: unknown characteristic UUID %q", charUUID)
	}
}

func (c *mockConnection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return nil
}

func (c *mockConnection) OnDisconnect(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectCb = cb
}

// SimulateDisconnect triggers the disconnect callback, as the transport
// does when the peripheral drops the link.
func (c *mockConnection) SimulateDisconnect() {
	c.mu.Lock()
	cb := c.disconnectCb
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// mockAdapter simulates the BLE adapter. It can be told to fail a number
// of connect attempts and to hand out connections whose write
// characteristic is broken.
type mockAdapter struct {
	mu           sync.Mutex
	connectFails int // fail this many Connect calls before succeeding
	writeFails   int // connections handed out with failing write chars
	connectCalls int
	connections  []*mockConnection
	onNewConn    func(*mockConnection) // test hook for per-connection setup
}

func newMockAdapter() *mockAdapter {
	return &mockAdapter{}
}

func (a *mockAdapter) Enable() error { return nil }

func (a *mockAdapter) Connect(_ context.Context, _ string) (Connection, error) {
	a.mu.Lock()
	a.connectCalls++
	if a.connectFails > 0 {
		a.connectFails--
		a.mu.Unlock()
		return nil, errors.New("mock: connect refused")
	}
	conn := newMockConnection()
	if a.writeFails > 0 {
		a.writeFails--
		conn.writeChar.writeErr = errors.New("mock: write failed")
	}
	a.connections = append(a.connections, conn)
	hook := a.onNewConn
	a.mu.Unlock()

	if hook != nil {
		hook(conn)
	}
	return conn, nil
}

func (a *mockAdapter) latestConnection() *mockConnection {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.connections) == 0 {
		return nil
	}
	return a.connections[len(a.connections)-1]
}

func (a *mockAdapter) connectCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connectCalls
}
