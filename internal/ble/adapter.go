// Package ble drives Govee RGB light fixtures over their vendor GATT
// protocol. It owns the connection lifecycle, request/response
// correlation, and failure handling that make an inherently flaky radio
// link behave like a request/response channel.
package ble

import "context"

// Govee vendor GATT UUIDs.
const (
	ServiceUUID   = "00010203-0405-0607-0809-0a0b0c0d1910"
	WriteCharUUID = "00010203-0405-0607-0809-0a0b0c0d2b11"
	ReadCharUUID  = "00010203-0405-0607-0809-0a0b0c0d2b10"
)

// Characteristic represents a BLE GATT characteristic.
type Characteristic interface {
	// Write sends data to the characteristic.
	Write(data []byte) error
	// Subscribe registers a callback for notifications on this characteristic.
	Subscribe(callback func(data []byte)) error
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// DiscoverCharacteristic finds a characteristic by UUID within a service.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the connection drops.
	OnDisconnect(callback func())
}

// Adapter abstracts the BLE hardware adapter for testing.
type Adapter interface {
	// Enable powers on the BLE adapter.
	Enable() error
	// Connect establishes a connection to the device at the given address.
	Connect(ctx context.Context, address string) (Connection, error)
}
