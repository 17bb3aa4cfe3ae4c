package core

import (
	"github.com/cockroachdb/errors"
)

// Error categories. Every error leaving the renderer is marked with one of them.
var (
	// Device, surface, allocation or format failures during startup.
	ErrFatalInit = errors.New("fatal initialization error")
	// Out-of-date or suboptimal surfaces and resizes. Recovered by recreating the swapchain.
	ErrTransientPresentation = errors.New("transient presentation error")
	// Programming errors: unsupported layout transitions, bad usage combinations, bad config.
	ErrProtocolViolation = errors.New("protocol violation")
	// Out of host, device or pool memory.
	ErrResourceExhausted = errors.New("resource exhausted")
	// The window was closed while the renderer was waiting on it. Not a failure.
	ErrWindowClosed = errors.New("window closed")
)

// Fatal wraps err and marks it as a fatal initialization error.
func Fatal(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrFatalInit)
}

// Fatalf builds a new fatal initialization error.
func Fatalf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrFatalInit)
}

// Protocolf builds a new protocol-violation error.
func Protocolf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrProtocolViolation)
}

// Exhausted wraps err and marks it as resource exhaustion.
func Exhausted(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrResourceExhausted)
}

func IsFatal(err error) bool {
	return errors.Is(err, ErrFatalInit)
}

func IsProtocolViolation(err error) bool {
	return errors.Is(err, ErrProtocolViolation)
}

func IsExhausted(err error) bool {
	return errors.Is(err, ErrResourceExhausted)
}
