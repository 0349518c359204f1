package light

import (
	"context"
	"errors"
	"testing"

	"github.com/mwaldron/govee-ble/internal/ble/protocol"
)

// fakeSender records requests and answers queries from a canned table
// keyed by subtype byte.
type fakeSender struct {
	requests  []protocol.Request
	responses map[byte]protocol.Response
	err       error
}

func (f *fakeSender) Do(_ context.Context, req protocol.Request) (protocol.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if !req.ExpectsResponse {
		return nil, nil
	}
	resp, ok := f.responses[req.Frame[1]]
	if !ok {
		return protocol.Unrecognized{Class: 0xee}, nil
	}
	return resp, nil
}

func newFake() *fakeSender {
	return &fakeSender{responses: map[byte]protocol.Response{}}
}

func TestPowerOnOff(t *testing.T) {
	fake := newFake()
	l := New(fake, "AA:BB:CC:DD:EE:FF")
	ctx := context.Background()

	if err := l.PowerOn(ctx); err != nil {
		t.Fatalf("PowerOn() error = %v", err)
	}
	if !l.State().Power {
		t.Error("State().Power = false after PowerOn")
	}

	if err := l.PowerOff(ctx); err != nil {
		t.Fatalf("PowerOff() error = %v", err)
	}
	if l.State().Power {
		t.Error("State().Power = true after PowerOff")
	}

	if len(fake.requests) != 2 {
		t.Fatalf("request count = %d, want 2", len(fake.requests))
	}
	if fake.requests[0].Frame != protocol.PowerFrame(true) {
		t.Errorf("PowerOn frame = %s, want %s", fake.requests[0].Frame, protocol.PowerFrame(true))
	}
	if fake.requests[1].Frame != protocol.PowerFrame(false) {
		t.Errorf("PowerOff frame = %s, want %s", fake.requests[1].Frame, protocol.PowerFrame(false))
	}
}

func TestSetBrightnessValidation(t *testing.T) {
	fake := newFake()
	l := New(fake, "AA:BB:CC:DD:EE:FF")

	for _, percent := range []int{0, -5, 101} {
		if err := l.SetBrightness(context.Background(), percent); err == nil {
			t.Errorf("SetBrightness(%d) accepted out-of-range percent", percent)
		}
	}
	// Validation failures must be rejected before any I/O.
	if len(fake.requests) != 0 {
		t.Errorf("request count = %d, want 0", len(fake.requests))
	}
}

func TestSetColorHex(t *testing.T) {
	fake := newFake()
	l := New(fake, "AA:BB:CC:DD:EE:FF")
	ctx := context.Background()

	if err := l.SetColorHex(ctx, "ff8800"); err != nil {
		t.Fatalf("SetColorHex() error = %v", err)
	}
	state := l.State()
	if state.R != 0xff || state.G != 0x88 || state.B != 0x00 {
		t.Errorf("State RGB = %02x %02x %02x, want ff 88 00", state.R, state.G, state.B)
	}
	if state.Kelvin != 0 {
		t.Errorf("State.Kelvin = %d, want 0 after static color set", state.Kelvin)
	}

	if err := l.SetColorHex(ctx, "not-a-color"); err == nil {
		t.Error("SetColorHex accepted malformed input")
	}
	if len(fake.requests) != 1 {
		t.Errorf("request count = %d, want 1 (invalid hex must not reach the session)", len(fake.requests))
	}
}

func TestSetColorTemperatureClamps(t *testing.T) {
	fake := newFake()
	l := New(fake, "AA:BB:CC:DD:EE:FF")

	if err := l.SetColorTemperature(context.Background(), 1000); err != nil {
		t.Fatalf("SetColorTemperature() error = %v", err)
	}
	if got := l.State().Kelvin; got != protocol.MinKelvin {
		t.Errorf("State.Kelvin = %d, want clamped %d", got, protocol.MinKelvin)
	}
	if fake.requests[0].Frame != protocol.ColorTemperatureFrame(protocol.MinKelvin) {
		t.Errorf("sent frame = %s, want clamped kelvin frame", fake.requests[0].Frame)
	}
}

func TestGetters(t *testing.T) {
	fake := newFake()
	fake.responses[protocol.SubPower] = protocol.PowerState{On: true}
	fake.responses[protocol.SubBrightness] = protocol.BrightnessState{Percent: 75}
	fake.responses[protocol.SubColor] = protocol.ColorState{R: 1, G: 2, B: 3, Kelvin: 0}

	l := New(fake, "AA:BB:CC:DD:EE:FF")
	ctx := context.Background()

	on, err := l.IsPowerOn(ctx)
	if err != nil || !on {
		t.Errorf("IsPowerOn() = %v, %v, want true, nil", on, err)
	}
	pct, err := l.GetBrightness(ctx)
	if err != nil || pct != 75 {
		t.Errorf("GetBrightness() = %d, %v, want 75, nil", pct, err)
	}
	color, err := l.GetColor(ctx)
	if err != nil || color.R != 1 || color.G != 2 || color.B != 3 {
		t.Errorf("GetColor() = %+v, %v", color, err)
	}
	kelvin, err := l.GetColorTemperature(ctx)
	if err != nil || kelvin != 0 {
		t.Errorf("GetColorTemperature() = %d, %v, want 0 (static RGB mode)", kelvin, err)
	}

	state := l.State()
	if !state.Power || state.Brightness != 75 || state.R != 1 {
		t.Errorf("cached state not updated by getters: %+v", state)
	}
}

func TestGetterUnrecognizedResponse(t *testing.T) {
	fake := newFake() // empty table: every query answers Unrecognized
	l := New(fake, "AA:BB:CC:DD:EE:FF")

	if _, err := l.IsPowerOn(context.Background()); !errors.Is(err, ErrNoData) {
		t.Errorf("IsPowerOn() error = %v, want ErrNoData", err)
	}
}

func TestGetterTransportError(t *testing.T) {
	fake := newFake()
	fake.err = errors.New("radio gone")
	l := New(fake, "AA:BB:CC:DD:EE:FF")

	if _, err := l.GetBrightness(context.Background()); err == nil || errors.Is(err, ErrNoData) {
		t.Errorf("GetBrightness() error = %v, want the transport error", err)
	}
}

func TestRefresh(t *testing.T) {
	fake := newFake()
	fake.responses[protocol.SubPower] = protocol.PowerState{On: true}
	fake.responses[protocol.SubBrightness] = protocol.BrightnessState{Percent: 40}
	fake.responses[protocol.SubColor] = protocol.ColorState{Kelvin: 4000, R: 10, G: 20, B: 30}

	l := New(fake, "AA:BB:CC:DD:EE:FF")
	if err := l.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	state := l.State()
	if !state.Power {
		t.Error("State.Power = false, want true")
	}
	if state.Brightness != 40 {
		t.Errorf("State.Brightness = %d, want 40", state.Brightness)
	}
	if state.Kelvin != 4000 {
		t.Errorf("State.Kelvin = %d, want 4000", state.Kelvin)
	}
	if len(fake.requests) != 3 {
		t.Errorf("request count = %d, want 3", len(fake.requests))
	}
}

func TestRefreshSkipsUnrecognized(t *testing.T) {
	fake := newFake()
	fake.responses[protocol.SubPower] = protocol.PowerState{On: true}
	// Brightness and color answer Unrecognized: their updates are skipped,
	// the refresh itself still succeeds.

	l := New(fake, "AA:BB:CC:DD:EE:FF")
	if err := l.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	state := l.State()
	if !state.Power {
		t.Error("State.Power = false, want true")
	}
	if state.Brightness != 0 {
		t.Errorf("State.Brightness = %d, want untouched 0", state.Brightness)
	}
}

func TestRefreshAbortsOnTransportError(t *testing.T) {
	fake := newFake()
	fake.err = errors.New("link down")

	l := New(fake, "AA:BB:CC:DD:EE:FF")
	if err := l.Refresh(context.Background()); err == nil {
		t.Error("Refresh() error = nil, want transport error")
	}
	if len(fake.requests) != 1 {
		t.Errorf("request count = %d, want 1 (abort on first failure)", len(fake.requests))
	}
}
