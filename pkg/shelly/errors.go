package shelly

import (
	"fmt"
)

// TransportError means the device never produced a usable HTTP response:
// connection failure, timeout or a non-2xx status.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("shelly: request %s: unexpected status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("shelly: request %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError means the device answered but the body was not the expected
// document: empty, "null", "{}" or malformed JSON.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("shelly: decode %s: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UnsupportedVariantError is returned by the reader factory for a device
// variant this bridge does not speak.
type UnsupportedVariantError struct {
	Variant string
}

func (e *UnsupportedVariantError) Error() string {
	return fmt.Sprintf("shelly: unsupported device variant %q", e.Variant)
}
