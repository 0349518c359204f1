// Package light is the device facade: it turns high-level intents like
// "set brightness to 50%" into protocol requests, drives them through a
// session, and tracks the last known device state.
package light

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mwaldron/govee-ble/internal/ble/protocol"
	"github.com/mwaldron/govee-ble/internal/logging"
)

// ErrNoData is returned by getters when the device answered with a frame
// the codec does not recognize. Not a transport failure: there is simply
// nothing usable in this round.
var ErrNoData = errors.New("light: no usable response from device")

// Sender is the narrow session surface the facade needs. *ble.Session
// satisfies it.
type Sender interface {
	Do(ctx context.Context, req protocol.Request) (protocol.Response, error)
}

// State is the last known device state. Zero values mean "never seen".
type State struct {
	Power      bool
	Brightness int // percent, 1..100
	R, G, B    uint8
	Kelvin     int // 0 while in static RGB mode
}

// Light controls one Govee fixture through its session. Safe for
// concurrent use; the session serializes the actual radio traffic.
type Light struct {
	session Sender
	address string

	mu    sync.RWMutex
	state State
}

// New binds a facade to a session. The address is used for logging only.
func New(session Sender, address string) *Light {
	return &Light{session: session, address: address}
}

// State returns a snapshot of the last known device state.
func (l *Light) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// PowerOn turns the light on.
func (l *Light) PowerOn(ctx context.Context) error {
	logging.Info("power on", zap.String("device", l.address))
	if _, err := l.session.Do(ctx, protocol.PowerRequest(true)); err != nil {
		return err
	}
	l.update(func(s *State) { s.Power = true })
	return nil
}

// PowerOff turns the light off.
func (l *Light) PowerOff(ctx context.Context) error {
	logging.Info("power off", zap.String("device", l.address))
	if _, err := l.session.Do(ctx, protocol.PowerRequest(false)); err != nil {
		return err
	}
	l.update(func(s *State) { s.Power = false })
	return nil
}

// IsPowerOn queries the current power state.
func (l *Light) IsPowerOn(ctx context.Context) (bool, error) {
	resp, err := l.session.Do(ctx, protocol.PowerQueryRequest())
	if err != nil {
		return false, err
	}
	state, ok := resp.(protocol.PowerState)
	if !ok {
		return false, ErrNoData
	}
	l.update(func(s *State) { s.Power = state.On })
	return state.On, nil
}

// SetBrightness sets the brightness. Percent outside 1..100 is rejected
// before any I/O.
func (l *Light) SetBrightness(ctx context.Context, percent int) error {
	req, err := protocol.BrightnessRequest(percent)
	if err != nil {
		return err
	}
	logging.Info("set brightness",
		zap.String("device", l.address),
		zap.Int("percent", percent),
	)
	if _, err := l.session.Do(ctx, req); err != nil {
		return err
	}
	l.update(func(s *State) { s.Brightness = percent })
	return nil
}

// GetBrightness queries the current brightness percent.
func (l *Light) GetBrightness(ctx context.Context) (int, error) {
	resp, err := l.session.Do(ctx, protocol.BrightnessQueryRequest())
	if err != nil {
		return 0, err
	}
	state, ok := resp.(protocol.BrightnessState)
	if !ok {
		return 0, ErrNoData
	}
	l.update(func(s *State) { s.Brightness = state.Percent })
	return state.Percent, nil
}

// SetColor sets a static RGB color.
func (l *Light) SetColor(ctx context.Context, r, g, b uint8) error {
	logging.Info("set color",
		zap.String("device", l.address),
		zap.String("hex", protocol.RGBToHex(r, g, b)),
	)
	if _, err := l.session.Do(ctx, protocol.ColorRequest(r, g, b)); err != nil {
		return err
	}
	l.update(func(s *State) {
		s.R, s.G, s.B = r, g, b
		s.Kelvin = 0
	})
	return nil
}

// SetColorHex sets a static color from a 6-digit hex string, rejected
// before any I/O when malformed.
func (l *Light) SetColorHex(ctx context.Context, hexColor string) error {
	r, g, b, err := protocol.HexToRGB(hexColor)
	if err != nil {
		return fmt.Errorf("light: %w", err)
	}
	return l.SetColor(ctx, r, g, b)
}

// GetColor queries the current color. Kelvin is 0 while the light is in
// static RGB mode; when non-zero the RGB values are kelvin-derived.
func (l *Light) GetColor(ctx context.Context) (protocol.ColorState, error) {
	resp, err := l.session.Do(ctx, protocol.ColorQueryRequest())
	if err != nil {
		return protocol.ColorState{}, err
	}
	state, ok := resp.(protocol.ColorState)
	if !ok {
		return protocol.ColorState{}, ErrNoData
	}
	l.update(func(s *State) {
		s.R, s.G, s.B = state.R, state.G, state.B
		s.Kelvin = state.Kelvin
	})
	return state, nil
}

// SetColorTemperature sets a white color temperature. Kelvin outside
// [2000, 6500] is clamped, matching the firmware's own behavior.
func (l *Light) SetColorTemperature(ctx context.Context, kelvin int) error {
	kelvin = protocol.ClampKelvin(kelvin)
	logging.Info("set color temperature",
		zap.String("device", l.address),
		zap.Int("kelvin", kelvin),
	)
	if _, err := l.session.Do(ctx, protocol.ColorTemperatureRequest(kelvin)); err != nil {
		return err
	}
	r, g, b := protocol.KelvinToRGB(kelvin)
	l.update(func(s *State) {
		s.Kelvin = kelvin
		s.R, s.G, s.B = r, g, b
	})
	return nil
}

// GetColorTemperature queries the current color temperature. Returns 0
// when the light is in static RGB mode.
func (l *Light) GetColorTemperature(ctx context.Context) (int, error) {
	state, err := l.GetColor(ctx)
	if err != nil {
		return 0, err
	}
	return state.Kelvin, nil
}

// Refresh polls power, brightness, and color in sequence and updates the
// cached state. Unrecognized replies skip their update rather than
// failing the refresh; transport errors abort it.
func (l *Light) Refresh(ctx context.Context) error {
	queries := []protocol.Request{
		protocol.PowerQueryRequest(),
		protocol.BrightnessQueryRequest(),
		protocol.ColorQueryRequest(),
	}

	for _, req := range queries {
		resp, err := l.session.Do(ctx, req)
		if err != nil {
			return err
		}
		l.apply(resp)
	}
	return nil
}

// apply folds a decoded response into the cached state.
func (l *Light) apply(resp protocol.Response) {
	switch r := resp.(type) {
	case protocol.PowerState:
		l.update(func(s *State) { s.Power = r.On })
	case protocol.BrightnessState:
		l.update(func(s *State) { s.Brightness = r.Percent })
	case protocol.ColorState:
		l.update(func(s *State) {
			s.R, s.G, s.B = r.R, r.G, r.B
			s.Kelvin = r.Kelvin
		})
	default:
		logging.Debug("skipping unusable response",
			zap.String("device", l.address),
			zap.String("response", resp.String()),
		)
	}
}

func (l *Light) update(fn func(*State)) {
	l.mu.Lock()
	fn(&l.state)
	l.mu.Unlock()
}
