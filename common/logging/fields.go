package logging

import "log/slog"

// Common field names so every pipeline stage logs with the same keys.
const (
	FieldStage    = "stage"
	FieldEvent    = "event"
	FieldInstance = "instance"
	FieldRoom     = "room"
	FieldAttempt  = "attempt"
	FieldStatus   = "status"
	FieldError    = "error"
)

// Stage returns a slog attribute naming the pipeline stage.
func Stage(name string) slog.Attr {
	return slog.String(FieldStage, name)
}

// Event returns a slog attribute for the upstream event name.
func Event(name string) slog.Attr {
	return slog.String(FieldEvent, name)
}

// Instance returns a slog attribute for the tenant identifier.
func Instance(id string) slog.Attr {
	return slog.String(FieldInstance, id)
}

// Room returns a slog attribute for the fan-out room key.
func Room(key string) slog.Attr {
	return slog.String(FieldRoom, key)
}

// Attempt returns a slog attribute for a delivery attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(FieldAttempt, n)
}

// Status returns a slog attribute for an HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Err returns a slog attribute for an error value.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
