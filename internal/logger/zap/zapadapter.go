package zap

import (
	"go.uber.org/zap"

	"chordring/internal/logger"
)

// Adapter adapts *zap.Logger to the logger.Logger interface used throughout
// the overlay's internal packages.
type Adapter struct {
	L *zap.Logger
}

// NewAdapter wraps l, skipping one extra caller frame so log sites report
// the caller of the logger.Logger method, not this adapter.
func NewAdapter(l *zap.Logger) Adapter {
	return Adapter{L: l.WithOptions(zap.AddCallerSkip(1))}
}

func (z Adapter) With(fields ...logger.Field) logger.Logger {
	return Adapter{L: z.L.With(toZap(fields)...)}
}

func (z Adapter) Named(name string) logger.Logger {
	return Adapter{L: z.L.Named(name)}
}

func (z Adapter) Debug(msg string, fields ...logger.Field) {
	if ce := z.L.Check(zap.DebugLevel, msg); ce != nil {
		ce.Write(toZap(fields)...)
	}
}
func (z Adapter) Info(msg string, fields ...logger.Field) {
	if ce := z.L.Check(zap.InfoLevel, msg); ce != nil {
		ce.Write(toZap(fields)...)
	}
}
func (z Adapter) Warn(msg string, fields ...logger.Field) {
	if ce := z.L.Check(zap.WarnLevel, msg); ce != nil {
		ce.Write(toZap(fields)...)
	}
}
func (z Adapter) Error(msg string, fields ...logger.Field) {
	if ce := z.L.Check(zap.ErrorLevel, msg); ce != nil {
		ce.Write(toZap(fields)...)
	}
}

func toZap(fs []logger.Field) []zap.Field {
	if len(fs) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fs))
	for _, f := range fs {
		out = append(out, zap.Any(f.Key, f.Val))
	}
	return out
}
