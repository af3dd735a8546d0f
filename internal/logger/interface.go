package logger

import "context"

// Logger is the printf-style operational logger used across the pipeline.
// Context values set with WithRunID and WithFile are emitted as attributes.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...interface{})
	Info(ctx context.Context, msg string, args ...interface{})
	Warn(ctx context.Context, msg string, args ...interface{})
	Error(ctx context.Context, msg string, args ...interface{})
}
