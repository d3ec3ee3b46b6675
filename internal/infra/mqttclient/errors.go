package mqttclient

import "errors"

var (
	// ErrConnectionFailed is returned when the broker refuses or the dial fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrSubscribeFailed is returned when the broker rejects a subscription.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrPublishFailed is returned when a publish is not acknowledged.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrClosed is returned for operations on a disconnected client.
	ErrClosed = errors.New("mqtt: client closed")
)
