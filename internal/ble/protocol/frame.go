// Package protocol implements the Govee vendor BLE frame codec: fixed
// 20-byte command/status frames with an XOR checksum, plus the color
// math needed to interpret color-temperature replies.
package protocol

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// FrameSize is the fixed wire size of every Govee frame:
// 1 class byte, 1 subtype byte, 17 payload bytes (zero-padded),
// 1 trailing XOR checksum byte.
const FrameSize = 20

// maxPayload is the payload capacity between the subtype and checksum bytes.
const maxPayload = FrameSize - 3

// Frame class bytes.
const (
	ClassCommand = 0x33 // outbound set commands
	ClassStatus  = 0xAA // outbound queries and inbound replies
)

// Frame subtype bytes, shared by commands and status traffic.
const (
	SubPower      = 0x01
	SubBrightness = 0x04
	SubColor      = 0x05
)

// colorModeManual is the color sub-mode the firmware expects for
// static RGB / color-temperature writes.
const colorModeManual = 0x0d

// Supported color temperature range. Values outside are clamped, not
// rejected; the firmware itself silently clamps, so rejecting here would
// only make the two disagree.
const (
	MinKelvin = 2000
	MaxKelvin = 6500
)

// maxDeviceBrightness is the device-side brightness scale (1..64).
// The firmware treats 0 as invalid rather than "off".
const maxDeviceBrightness = 64

// Frame is an immutable 20-byte Govee BLE frame, checksum included.
type Frame [FrameSize]byte

// Bytes returns the frame as a byte slice for writing to a characteristic.
func (f Frame) Bytes() []byte { return f[:] }

// String returns the frame as lowercase hex, the format used in logs
// and protocol captures.
func (f Frame) String() string { return hex.EncodeToString(f[:]) }

// Checksum XOR-reduces all bytes in p. Appended as the final frame byte;
// re-XORing a complete valid frame therefore yields 0.
func Checksum(p []byte) byte {
	var sum byte
	for _, b := range p {
		sum ^= b
	}
	return sum
}

// VerifyChecksum reports whether a complete frame's trailing checksum is
// consistent with its preceding bytes.
func VerifyChecksum(data []byte) bool {
	return len(data) > 0 && Checksum(data) == 0
}

// BuildFrame assembles a frame from a class byte, subtype byte, and up to
// 17 payload bytes. The payload is zero-padded and the checksum appended.
func BuildFrame(class, subtype byte, payload []byte) (Frame, error) {
	var f Frame
	if len(payload) > maxPayload {
		return f, fmt.Errorf("protocol: payload too large: %d bytes (max %d)", len(payload), maxPayload)
	}
	f[0] = class
	f[1] = subtype
	copy(f[2:], payload)
	f[FrameSize-1] = Checksum(f[:FrameSize-1])
	return f, nil
}

// mustFrame is for builders whose payload size is fixed and known-good.
func mustFrame(class, subtype byte, payload []byte) Frame {
	f, err := BuildFrame(class, subtype, payload)
	if err != nil {
		panic(err)
	}
	return f
}

// PowerFrame encodes a power set command.
func PowerFrame(on bool) Frame {
	var v byte
	if on {
		v = 0x01
	}
	return mustFrame(ClassCommand, SubPower, []byte{v})
}

// BrightnessFrame encodes a brightness set command. Percent must be in
// 1..100; the device value is ceil(64*percent/100), floored at 1 because
// the firmware rejects 0.
func BrightnessFrame(percent int) (Frame, error) {
	if percent < 1 || percent > 100 {
		return Frame{}, fmt.Errorf("protocol: brightness percent must be 1..100, got %d", percent)
	}
	return mustFrame(ClassCommand, SubBrightness, []byte{deviceBrightness(percent)}), nil
}

// ColorFrame encodes a static RGB color set command.
func ColorFrame(r, g, b uint8) Frame {
	return mustFrame(ClassCommand, SubColor, []byte{colorModeManual, r, g, b})
}

// ColorTemperatureFrame encodes a color temperature set command. The RGB
// bytes carry the ff ff ff sentinel telling the firmware to use the
// big-endian kelvin field instead. Kelvin is clamped to [2000, 6500].
func ColorTemperatureFrame(kelvin int) Frame {
	kelvin = ClampKelvin(kelvin)
	payload := []byte{colorModeManual, 0xff, 0xff, 0xff, 0, 0}
	binary.BigEndian.PutUint16(payload[4:6], uint16(kelvin))
	return mustFrame(ClassCommand, SubColor, payload)
}

// PowerQueryFrame encodes a power status query.
func PowerQueryFrame() Frame {
	return mustFrame(ClassStatus, SubPower, nil)
}

// BrightnessQueryFrame encodes a brightness status query.
func BrightnessQueryFrame() Frame {
	return mustFrame(ClassStatus, SubBrightness, nil)
}

// ColorQueryFrame encodes a color / color temperature status query.
func ColorQueryFrame() Frame {
	return mustFrame(ClassStatus, SubColor, []byte{0x01})
}

// ClampKelvin clamps a color temperature into the supported range.
func ClampKelvin(kelvin int) int {
	if kelvin < MinKelvin {
		return MinKelvin
	}
	if kelvin > MaxKelvin {
		return MaxKelvin
	}
	return kelvin
}

// deviceBrightness maps a 1..100 percent onto the device's 1..64 scale.
func deviceBrightness(percent int) byte {
	v := (maxDeviceBrightness*percent + 99) / 100 // ceil
	if v < 1 {
		v = 1
	}
	if v > maxDeviceBrightness {
		v = maxDeviceBrightness
	}
	return byte(v)
}

// percentFromDevice is the inverse mapping, ceil(value/64*100) with a
// floor of 1%. Lossy by up to 2% due to the 64-step quantization.
func percentFromDevice(value byte) int {
	p := (int(value)*100 + maxDeviceBrightness - 1) / maxDeviceBrightness
	if p < 1 {
		p = 1
	}
	if p > 100 {
		p = 100
	}
	return p
}
