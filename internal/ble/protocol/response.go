package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformedResponse indicates a notification too short for its declared
// subtype. Distinct from Unrecognized, which is a well-formed frame of an
// unexpected class and is not an error.
var ErrMalformedResponse = errors.New("protocol: malformed response")

// Response is a decoded status notification from the device.
type Response interface {
	response()
	String() string
}

// PowerState is the reply to a power query.
type PowerState struct {
	On bool
}

func (PowerState) response() {}

func (r PowerState) String() string {
	if r.On {
		return "PowerState{on}"
	}
	return "PowerState{off}"
}

// BrightnessState is the reply to a brightness query, already converted
// back to a 1..100 percent.
type BrightnessState struct {
	Percent int
}

func (BrightnessState) response() {}

func (r BrightnessState) String() string {
	return fmt.Sprintf("BrightnessState{%d%%}", r.Percent)
}

// ColorState is the reply to a color query. Kelvin is zero when the light
// is in static RGB mode; when non-zero, R/G/B are derived from the kelvin
// value because the firmware reports the ff ff ff sentinel instead of a
// real color.
type ColorState struct {
	R, G, B uint8
	Kelvin  int
}

func (ColorState) response() {}

func (r ColorState) String() string {
	return fmt.Sprintf("ColorState{#%s, %dK}", RGBToHex(r.R, r.G, r.B), r.Kelvin)
}

// Unrecognized is a structurally valid notification of a class or subtype
// this codec does not understand. Callers treat it as "no usable data".
type Unrecognized struct {
	Class   byte
	Subtype byte
	Raw     []byte
}

func (Unrecognized) response() {}

func (r Unrecognized) String() string {
	return fmt.Sprintf("Unrecognized{class=0x%02x, subtype=0x%02x, len=%d}", r.Class, r.Subtype, len(r.Raw))
}

// Decode parses a notification payload into a typed Response.
//
// The subtype byte selects the decoding: 0x01 power, 0x04 brightness,
// 0x05 color. Color replies carry a big-endian kelvin field at bytes 6..7;
// when it is non-zero the literal RGB bytes hold the sentinel and the real
// color is derived from the kelvin value.
//
// Unknown classes and subtypes decode to Unrecognized. Frames shorter than
// the minimum for their subtype fail with ErrMalformedResponse.
func Decode(data []byte) (Response, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedResponse, len(data))
	}
	if data[0] != ClassStatus {
		return Unrecognized{Class: data[0], Subtype: data[1], Raw: data}, nil
	}

	switch data[1] {
	case SubPower:
		if len(data) < 3 {
			return nil, fmt.Errorf("%w: power reply needs 3 bytes, got %d", ErrMalformedResponse, len(data))
		}
		return PowerState{On: data[2] == 0x01}, nil

	case SubBrightness:
		if len(data) < 3 {
			return nil, fmt.Errorf("%w: brightness reply needs 3 bytes, got %d", ErrMalformedResponse, len(data))
		}
		return BrightnessState{Percent: percentFromDevice(data[2])}, nil

	case SubColor:
		if len(data) < 8 {
			return nil, fmt.Errorf("%w: color reply needs 8 bytes, got %d", ErrMalformedResponse, len(data))
		}
		kelvin := int(binary.BigEndian.Uint16(data[6:8]))
		if kelvin > 0 {
			r, g, b := KelvinToRGB(kelvin)
			return ColorState{R: r, G: g, B: b, Kelvin: kelvin}, nil
		}
		return ColorState{R: data[3], G: data[4], B: data[5]}, nil

	default:
		return Unrecognized{Class: data[0], Subtype: data[1], Raw: data}, nil
	}
}
