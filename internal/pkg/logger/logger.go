// Package logger provides structured logging for migration runs.
//
// All methods accept a context for automatic extraction of run metadata
// (run_id, schema) which is automatically included in log output.
package logger

import (
	"context"

	"go.uber.org/zap"
)

// Logger defines the interface for structured logging.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Fatal(ctx context.Context, msg string, fields ...Field)

	// With returns a logger with preset fields.
	With(fields ...Field) Logger
}

// Field represents a structured logging field.
// Use the field constructor functions (String, Int, Bool, etc.) to create fields.
type Field struct {
	Key   string
	Value interface{}
	Type  FieldType
}

// FieldType represents the type of a logging field for type-safe conversion.
type FieldType int

const (
	FieldTypeAny FieldType = iota
	FieldTypeString
	FieldTypeInt
	FieldTypeBool
	FieldTypeDuration
	FieldTypeError
)

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value, Type: FieldTypeString}
}

// Int creates an int field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value, Type: FieldTypeInt}
}

// Bool creates a boolean field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value, Type: FieldTypeBool}
}

// Any creates a field with any type (uses reflection).
// Prefer typed constructors (String, Int, etc.) for better performance.
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value, Type: FieldTypeAny}
}

// Error creates an error field.
func Error(err error) Field {
	return Field{Key: "error", Value: err, Type: FieldTypeError}
}

// Duration creates a duration field.
func Duration(key string, value interface{}) Field {
	return Field{Key: key, Value: value, Type: FieldTypeDuration}
}

// ZapLogger wraps zap.Logger to implement the Logger interface.
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger creates a new ZapLogger instance.
func NewZapLogger(zapLog *zap.Logger) Logger {
	return &ZapLogger{logger: zapLog}
}

// Debug logs a debug message with automatic context extraction.
func (z *ZapLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	z.logger.Debug(msg, z.buildFields(ctx, fields)...)
}

// Info logs an info message with automatic context extraction.
func (z *ZapLogger) Info(ctx context.Context, msg string, fields ...Field) {
	z.logger.Info(msg, z.buildFields(ctx, fields)...)
}

// Warn logs a warning message with automatic context extraction.
func (z *ZapLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	z.logger.Warn(msg, z.buildFields(ctx, fields)...)
}

// Error logs an error message with automatic context extraction.
func (z *ZapLogger) Error(ctx context.Context, msg string, fields ...Field) {
	z.logger.Error(msg, z.buildFields(ctx, fields)...)
}

// Fatal logs a fatal message and exits with automatic context extraction.
func (z *ZapLogger) Fatal(ctx context.Context, msg string, fields ...Field) {
	z.logger.Fatal(msg, z.buildFields(ctx, fields)...)
}

// With returns a logger with preset fields.
func (z *ZapLogger) With(fields ...Field) Logger {
	return &ZapLogger{logger: z.logger.With(convertFields(fields)...)}
}

// buildFields combines user-provided fields with context-extracted fields.
func (z *ZapLogger) buildFields(ctx context.Context, fields []Field) []zap.Field {
	contextFields := extractContextFields(ctx)
	userFields := convertFields(fields)

	allFields := make([]zap.Field, 0, len(contextFields)+len(userFields))
	allFields = append(allFields, contextFields...)
	allFields = append(allFields, userFields...)

	return allFields
}

// extractContextFields extracts common fields from context.
// This automatically includes run_id and schema in all logs.
func extractContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}

	fields := make([]zap.Field, 0, 2)

	if runID := GetRunID(ctx); runID != "" {
		fields = append(fields, zap.String("run_id", runID))
	}

	if schema := GetSchema(ctx); schema != "" {
		fields = append(fields, zap.String("schema", schema))
	}

	return fields
}

// convertFields converts logger.Field to zap.Field with type preservation.
func convertFields(fields []Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		switch f.Type {
		case FieldTypeString:
			zapFields[i] = zap.String(f.Key, f.Value.(string))
		case FieldTypeInt:
			zapFields[i] = zap.Int(f.Key, f.Value.(int))
		case FieldTypeBool:
			zapFields[i] = zap.Bool(f.Key, f.Value.(bool))
		case FieldTypeError:
			if err, ok := f.Value.(error); ok {
				zapFields[i] = zap.Error(err)
			} else {
				zapFields[i] = zap.Any(f.Key, f.Value)
			}
		default:
			// FieldTypeAny, FieldTypeDuration or unknown
			zapFields[i] = zap.Any(f.Key, f.Value)
		}
	}
	return zapFields
}

// Instance is the global logger instance that implements Logger interface.
// It defaults to a no-op logger until the Initialize function in zap.go
// replaces it, so library code and tests can log unconditionally.
var Instance Logger = NewZapLogger(zap.NewNop())
