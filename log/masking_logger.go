/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"errors"
	"fmt"

	"github.com/ssgreg/logf"
)

// StringMasker masks secrets in a string.
type StringMasker interface {
	Mask(s string) string
}

// MaskingLogger is a logger that masks secrets in messages and string-like fields.
// Upstream tokens must never appear in logs even when an error message echoes the request.
type MaskingLogger struct {
	log    FieldLogger
	masker StringMasker
}

// NewMaskingLogger wraps l so that every message and field goes through masker.
func NewMaskingLogger(l FieldLogger, masker StringMasker) FieldLogger {
	return MaskingLogger{l, masker}
}

// With returns a new logger with the given additional fields.
func (l MaskingLogger) With(fs ...Field) FieldLogger {
	return MaskingLogger{l.log.With(l.maskFields(fs)...), l.masker}
}

// Debug logs message at "debug" level.
func (l MaskingLogger) Debug(text string, fs ...Field) {
	l.log.Debug(l.masker.Mask(text), l.maskFields(fs)...)
}

// Info logs message at "info" level.
func (l MaskingLogger) Info(text string, fs ...Field) {
	l.log.Info(l.masker.Mask(text), l.maskFields(fs)...)
}

// Warn logs message at "warn" level.
func (l MaskingLogger) Warn(text string, fs ...Field) {
	l.log.Warn(l.masker.Mask(text), l.maskFields(fs)...)
}

// Error logs message at "error" level.
func (l MaskingLogger) Error(text string, fs ...Field) {
	l.log.Error(l.masker.Mask(text), l.maskFields(fs)...)
}

// Debugf logs a formatted message at "debug" level.
func (l MaskingLogger) Debugf(format string, args ...interface{}) {
	l.Debug(fmt.Sprintf(format, args...))
}

// Infof logs a formatted message at "info" level.
func (l MaskingLogger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted message at "warn" level.
func (l MaskingLogger) Warnf(format string, args ...interface{}) {
	l.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted message at "error" level.
func (l MaskingLogger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// AtLevel calls fn if logging at the given level is enabled.
func (l MaskingLogger) AtLevel(level Level, fn func(logFunc LogFunc)) {
	l.log.AtLevel(level, func(logFunc LogFunc) {
		fn(func(msg string, fs ...Field) {
			logFunc(l.masker.Mask(msg), l.maskFields(fs)...)
		})
	})
}

// WithLevel returns a new logger with additional level check.
func (l MaskingLogger) WithLevel(level Level) FieldLogger {
	return MaskingLogger{l.log.WithLevel(level), l.masker}
}

// maskFields returns fields unchanged when nothing had to be masked.
func (l MaskingLogger) maskFields(fields []Field) []Field {
	var masked []Field
	replace := func(i int, f Field) {
		if masked == nil {
			masked = make([]Field, len(fields))
			copy(masked, fields)
		}
		masked[i] = f
	}
	for i, field := range fields {
		switch field.Type {
		case logf.FieldTypeBytesToString:
			s := string(field.Bytes)
			if m := l.masker.Mask(s); m != s {
				replace(i, String(field.Key, m))
			}
		case logf.FieldTypeBytes, logf.FieldTypeRawBytes:
			s := string(field.Bytes)
			if m := l.masker.Mask(s); m != s {
				replace(i, logf.ConstBytes(field.Key, []byte(m)))
			}
		case logf.FieldTypeError:
			err, ok := field.Any.(error)
			if !ok || err == nil {
				continue
			}
			s := err.Error()
			if m := l.masker.Mask(s); m != s {
				replace(i, logf.NamedError(field.Key, errors.New(m)))
			}
		}
	}
	if masked == nil {
		return fields
	}
	return masked
}
