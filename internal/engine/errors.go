package engine

import "errors"

var (
	// ErrShutdown is returned by operations on an engine that has shut down.
	ErrShutdown = errors.New("engine: shut down")

	// ErrNoRegistry is returned by New without a device registry.
	ErrNoRegistry = errors.New("engine: registry is required")

	// ErrUnknownCommand is returned for an unrecognised MQTT command.
	ErrUnknownCommand = errors.New("engine: unknown command")
)
