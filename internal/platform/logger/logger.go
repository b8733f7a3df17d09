package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config defines the configuration for the logger.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

var (
	globalLogger *zap.Logger
	atom         zap.AtomicLevel
	once         sync.Once
)

// DefaultConfig returns a sane default configuration based on environment variables.
func DefaultConfig() Config {
	return Config{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "console"),
	}
}

// Initialize sets up the global logger using the provided configuration.
func Initialize(cfg Config) {
	once.Do(func() {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

		if cfg.Format == "console" {
			encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
			encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		}

		zapConfig := zap.Config{
			Level:             zap.NewAtomicLevelAt(parseLevel(cfg.Level)),
			Development:       false,
			Encoding:          cfg.Format,
			EncoderConfig:     encoderConfig,
			OutputPaths:       []string{"stdout"},
			ErrorOutputPaths:  []string{"stderr"},
			DisableStacktrace: cfg.Level != "debug" && cfg.Level != "error",
		}

		var err error
		globalLogger, err = zapConfig.Build(zap.AddCallerSkip(1))
		if err != nil {
			panic("failed to initialize logger: " + err.Error())
		}

		// Keep the atomic level so it can be changed at runtime if needed
		atom = zapConfig.Level
	})
}

// Get returns the global logger. Initializes with defaults if not already set.
func Get() *zap.Logger {
	if globalLogger == nil {
		Initialize(DefaultConfig())
	}
	return globalLogger
}

// With creates a child logger and adds structured context to it.
func With(fields ...zap.Field) *zap.Logger {
	return Get().With(fields...)
}

func Info(msg string, fields ...zap.Field) {
	Get().Info(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Get().Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	Get().Fatal(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	Get().Debug(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Get().Warn(msg, fields...)
}

func Sync() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.ToLower(value)
	}
	return fallback
}

func parseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
