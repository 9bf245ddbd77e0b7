package logging

import (
	"log/slog"
	"time"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyNamespace = "namespace"
	KeyPod       = "pod"
	KeyJob       = "job"
	KeyContainer = "container"
	KeyImage     = "image"
	KeyContext   = "context"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
)

// Status values for consistent logging.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithNamespace returns a logger with the namespace attribute set.
func WithNamespace(logger *slog.Logger, namespace string) *slog.Logger {
	return logger.With(slog.String(KeyNamespace, namespace))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Namespace returns a slog attribute for the namespace.
func Namespace(ns string) slog.Attr {
	return slog.String(KeyNamespace, ns)
}

// Pod returns a slog attribute for a pod name.
func Pod(name string) slog.Attr {
	return slog.String(KeyPod, name)
}

// Job returns a slog attribute for a job name.
func Job(name string) slog.Attr {
	return slog.String(KeyJob, name)
}

// Container returns a slog attribute for a container name.
func Container(name string) slog.Attr {
	return slog.String(KeyContainer, name)
}

// Image returns a slog attribute for a container image.
func Image(image string) slog.Attr {
	return slog.String(KeyImage, image)
}

// Context returns a slog attribute for a kubeconfig context name.
func Context(name string) slog.Attr {
	return slog.String(KeyContext, name)
}

// Duration returns a slog attribute for an elapsed duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
