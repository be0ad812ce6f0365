package domain

import (
	"errors"
	"fmt"
)

// ErrNotReady is reported when a voice operation is attempted before the
// live session capability has been loaded and initialized.
var ErrNotReady = errors.New("voice session not ready")

// ErrExchangeInFlight is reported when a submission arrives while a previous
// exchange is still awaiting its reply.
var ErrExchangeInFlight = errors.New("an exchange is already in flight")

// DeliveryError represents a failure to obtain a usable reply from a
// transport: a network error, a non-2xx status, or a broken stream.
type DeliveryError struct {
	Status int   // HTTP status code when one was received, 0 otherwise
	Cause  error // underlying transport error, nil on status failures
}

func (e *DeliveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("delivery failed: %v", e.Cause)
	}
	return fmt.Sprintf("delivery failed: status %d", e.Status)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// DecodeError represents a response body that could not be parsed as
// structured data. It is always recovered locally by falling back to the raw
// body text and is never surfaced to the user.
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed: %v", e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// DeviceError represents a microphone or media-capture failure.
type DeviceError struct {
	Op    string // "start", "stop"
	Cause error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("capture device %s failed: %v", e.Op, e.Cause)
}

func (e *DeviceError) Unwrap() error {
	return e.Cause
}

// ConfigError represents an invalid configuration value, such as a malformed
// endpoint URL. A ConfigError blocks the settings save; the previous value
// stays in effect.
type ConfigError struct {
	Field string
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Cause)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}
