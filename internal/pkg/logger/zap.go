// Package logger provides structured logging initialization with Zap.
//
// Every run logs to two sinks with the same compact encoding: stdout and a
// rolling file in the working directory. The level defaults to info and can be
// overridden through the TX_COORDINATOR_LOG environment variable.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultLogFile is the rolling log file written alongside stdout.
const DefaultLogFile = "./tx-coordinator.log"

// LevelEnvVar names the environment variable that overrides the log level.
const LevelEnvVar = "TX_COORDINATOR_LOG"

// Log is the raw zap.Logger instance.
// Use logger.Instance (Logger interface) instead for better abstraction.
var Log *zap.Logger

// Initialize configures and initializes the global logger.
// This should be called once at application startup.
//
// The initialized logger is available via:
//   - logger.Instance (recommended - uses Logger interface)
//   - logger.Log (raw zap.Logger - for advanced use cases)
func Initialize() {
	InitializeWithFile(DefaultLogFile)
}

// InitializeWithFile is Initialize with an explicit log file path.
func InitializeWithFile(logFile string) {
	level := zapcore.InfoLevel
	if v := os.Getenv(LevelEnvVar); v != "" {
		if parsed, err := zapcore.ParseLevel(v); err == nil {
			level = parsed
		}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = "caller"
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	fileSink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     7, // days
	})

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level),
		zapcore.NewCore(encoder, fileSink, level),
	)

	Log = zap.New(core, zap.AddCaller())

	// Replace global zap logger (for libraries using zap.L())
	zap.ReplaceGlobals(Log)

	Instance = NewZapLogger(Log)
}
