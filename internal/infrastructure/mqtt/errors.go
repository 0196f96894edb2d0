package mqtt

import "errors"

// Errors returned by the MQTT client.
var (
	// ErrConnectionFailed is returned when the initial broker connection fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrNotConnected is returned when publishing without a broker connection.
	ErrNotConnected = errors.New("mqtt: not connected")

	// ErrPublishFailed is returned when a publish times out or is rejected.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed is returned when a subscribe/unsubscribe fails.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")
)
