// Package service defines the interfaces shared between application services.
package service

import (
	"time"
)

// Level classifies a user-visible notification.
type Level string

// Notification levels.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier surfaces short-lived messages to the operator.
// Write paths report their failures here; read paths never do.
type Notifier interface {
	Notify(level Level, message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(level Level, message string)

// Notify calls f(level, message).
func (f NotifierFunc) Notify(level Level, message string) {
	f(level, message)
}

// Discard is a Notifier that drops every message.
var Discard Notifier = NotifierFunc(func(Level, string) {})

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
