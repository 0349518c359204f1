package protocol

// DecodeFunc interprets the notification payload that answers a request.
type DecodeFunc func(data []byte) (Response, error)

// Request pairs an encoded frame with the knowledge of how to interpret
// its reply, if one is expected. Requests are immutable values built once
// per logical operation and consumed by exactly one send.
//
// Set commands are fire-and-forget: the firmware does not notify on sets,
// so only queries carry a decode function.
type Request struct {
	Frame           Frame
	ExpectsResponse bool
	Decode          DecodeFunc
}

// PowerRequest builds a power set request.
func PowerRequest(on bool) Request {
	return Request{Frame: PowerFrame(on)}
}

// BrightnessRequest builds a brightness set request. Percent must be 1..100.
func BrightnessRequest(percent int) (Request, error) {
	f, err := BrightnessFrame(percent)
	if err != nil {
		return Request{}, err
	}
	return Request{Frame: f}, nil
}

// ColorRequest builds a static RGB color set request.
func ColorRequest(r, g, b uint8) Request {
	return Request{Frame: ColorFrame(r, g, b)}
}

// ColorTemperatureRequest builds a color temperature set request.
// Kelvin outside [2000, 6500] is clamped.
func ColorTemperatureRequest(kelvin int) Request {
	return Request{Frame: ColorTemperatureFrame(kelvin)}
}

// PowerQueryRequest builds a power status query.
func PowerQueryRequest() Request {
	return Request{Frame: PowerQueryFrame(), ExpectsResponse: true, Decode: Decode}
}

// BrightnessQueryRequest builds a brightness status query.
func BrightnessQueryRequest() Request {
	return Request{Frame: BrightnessQueryFrame(), ExpectsResponse: true, Decode: Decode}
}

// ColorQueryRequest builds a color status query.
func ColorQueryRequest() Request {
	return Request{Frame: ColorQueryFrame(), ExpectsResponse: true, Decode: Decode}
}
