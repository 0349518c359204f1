package protocol

import (
	"encoding/hex"
	"errors"
	"testing"
)

// reply builds a full 20-byte status notification the way the firmware
// sends them, checksum included.
func reply(t *testing.T, hexPrefix string) []byte {
	t.Helper()
	prefix, err := hex.DecodeString(hexPrefix)
	if err != nil {
		t.Fatalf("bad hex prefix %q: %v", hexPrefix, err)
	}
	data := make([]byte, FrameSize)
	copy(data, prefix)
	data[FrameSize-1] = Checksum(data[:FrameSize-1])
	return data
}

func TestDecodePowerState(t *testing.T) {
	tests := []struct {
		name   string
		hex    string
		wantOn bool
	}{
		{"on", "aa0101", true},
		{"off", "aa0100", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Decode(reply(t, tt.hex))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			state, ok := resp.(PowerState)
			if !ok {
				t.Fatalf("Decode() = %T, want PowerState", resp)
			}
			if state.On != tt.wantOn {
				t.Errorf("On = %v, want %v", state.On, tt.wantOn)
			}
		})
	}
}

func TestDecodeBrightnessState(t *testing.T) {
	tests := []struct {
		name        string
		device      byte
		wantPercent int
	}{
		{"full", 0x40, 100},
		{"half", 0x20, 50},
		{"minimum", 0x01, 2},
		{"invalid zero floors to 1", 0x00, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := reply(t, "aa04")
			data[2] = tt.device
			data[FrameSize-1] = Checksum(data[:FrameSize-1])

			resp, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			state, ok := resp.(BrightnessState)
			if !ok {
				t.Fatalf("Decode() = %T, want BrightnessState", resp)
			}
			if state.Percent != tt.wantPercent {
				t.Errorf("Percent = %d, want %d", state.Percent, tt.wantPercent)
			}
		})
	}
}

func TestDecodeColorStateLiteralRGB(t *testing.T) {
	// Kelvin field zero: the RGB bytes are the real color.
	resp, err := Decode(reply(t, "aa05011299560000"))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	state, ok := resp.(ColorState)
	if !ok {
		t.Fatalf("Decode() = %T, want ColorState", resp)
	}
	if state.R != 0x12 || state.G != 0x99 || state.B != 0x56 {
		t.Errorf("RGB = %02x %02x %02x, want 12 99 56", state.R, state.G, state.B)
	}
	if state.Kelvin != 0 {
		t.Errorf("Kelvin = %d, want 0", state.Kelvin)
	}
}

func TestDecodeColorStateKelvin(t *testing.T) {
	// Kelvin 4000 = 0x0fa0. The literal RGB bytes hold the ff ff ff
	// sentinel and must be ignored in favor of the kelvin-derived color.
	resp, err := Decode(reply(t, "aa0501ffffff0fa0"))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	state, ok := resp.(ColorState)
	if !ok {
		t.Fatalf("Decode() = %T, want ColorState", resp)
	}
	if state.Kelvin != 4000 {
		t.Errorf("Kelvin = %d, want 4000", state.Kelvin)
	}

	wantR, wantG, wantB := KelvinToRGB(4000)
	if state.R != wantR || state.G != wantG || state.B != wantB {
		t.Errorf("RGB = %d %d %d, want kelvin-derived %d %d %d",
			state.R, state.G, state.B, wantR, wantG, wantB)
	}
	if state.R == 0xff && state.G == 0xff && state.B == 0xff {
		t.Error("decoded color is the raw sentinel, literal bytes were not ignored")
	}
}

func TestDecodeUnrecognized(t *testing.T) {
	tests := []struct {
		name string
		hex  string
	}{
		{"unknown subtype", "aaee01"},
		{"command class echo", "330101"},
		{"unknown class", "ee0101"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Decode(reply(t, tt.hex))
			if err != nil {
				t.Fatalf("Decode() error = %v, unrecognized frames are not errors", err)
			}
			if _, ok := resp.(Unrecognized); !ok {
				t.Errorf("Decode() = %T, want Unrecognized", resp)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"single byte", []byte{0xaa}},
		{"power missing value", []byte{0xaa, 0x01}},
		{"brightness missing value", []byte{0xaa, 0x04}},
		{"color truncated before kelvin", []byte{0xaa, 0x05, 0x01, 0x12, 0x34, 0x56, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("Decode() error = %v, want ErrMalformedResponse", err)
			}
		})
	}
}
