package protocol

import (
	"encoding/hex"
	"fmt"
	"math"
)

// KelvinToRGB approximates the RGB appearance of a black-body radiator at
// the given color temperature. Standard piecewise log/power curve fit;
// each channel is clamped to [0, 255] and rounded up.
//
// Used when decoding color replies that report a kelvin value instead of
// a literal color.
func KelvinToRGB(kelvin int) (r, g, b uint8) {
	t := float64(kelvin) / 100

	var red, green, blue float64
	if t <= 66 {
		red = 255
		green = 99.4708025861*math.Log(t) - 161.1195681661
		if t <= 19 {
			blue = 0
		} else {
			blue = 138.5177312231*math.Log(t-10) - 305.0447927307
		}
	} else {
		red = 329.698727446 * math.Pow(t-60, -0.1332047592)
		green = 288.1221695283 * math.Pow(t-60, -0.0755148492)
		blue = 255
	}

	return clampChannel(red), clampChannel(green), clampChannel(blue)
}

func clampChannel(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(math.Ceil(v))
}

// RGBToHex formats an RGB triplet as 6 lowercase hex digits, the format
// used in the color command payload.
func RGBToHex(r, g, b uint8) string {
	return hex.EncodeToString([]byte{r, g, b})
}

// HexToRGB parses a 6-digit hex color. Exact inverse of RGBToHex.
func HexToRGB(s string) (r, g, b uint8, err error) {
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("protocol: hex color must be 6 digits, got %q", s)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("protocol: invalid hex color %q: %w", s, err)
	}
	return raw[0], raw[1], raw[2], nil
}
