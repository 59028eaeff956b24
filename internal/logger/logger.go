package logger

import (
	"log/slog"
	"os"
	"time"
)

var log *slog.Logger

// Init инициализирует глобальный логгер
// env: "development" или "production"
func Init(env string) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
	}

	if env == "development" || env == "test" {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log = slog.New(handler)
	slog.SetDefault(log)
}

// GetLogger возвращает глобальный логгер
func GetLogger() *slog.Logger {
	if log == nil {
		Init("development")
	}
	return log
}

// ============================================
// Convenience функции
// ============================================

func Debug(msg string, args ...any) {
	GetLogger().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}

// Fatal логирует fatal ошибку и завершает программу
func Fatal(msg string, args ...any) {
	GetLogger().Error(msg, args...)
	os.Exit(1)
}

// With создает новый логгер с дополнительными полями
// Пример: logger.With("component", "relay").Info("started")
func With(args ...any) *slog.Logger {
	return GetLogger().With(args...)
}

// WithError создает логгер с полем error
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}

// WithComponent - логгер отдельной подсистемы (relay, consumer, ws ...)
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// ============================================
// Специализированные логгеры
// ============================================

// HTTPLog логирует HTTP запрос
func HTTPLog(method, path string, status int, duration time.Duration, size int) {
	GetLogger().Info("http request",
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", duration.Milliseconds(),
		"size_bytes", size,
	)
}

// BrokerLog логирует операцию с брокером сообщений
func BrokerLog(operation, exchange, routingKey string, err error) {
	fields := []any{
		"operation", operation,
		"exchange", exchange,
		"routing_key", routingKey,
	}

	if err != nil {
		fields = append(fields, "error", err.Error())
		GetLogger().Error("broker operation failed", fields...)
	} else {
		GetLogger().Debug("broker operation", fields...)
	}
}

// WorkerLog логирует background worker операцию
func WorkerLog(worker, operation string, duration time.Duration, err error, args ...any) {
	fields := []any{
		"worker", worker,
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	}
	fields = append(fields, args...)

	if err != nil {
		fields = append(fields, "error", err.Error())
		GetLogger().Error("worker operation failed", fields...)
	} else {
		GetLogger().Info("worker operation completed", fields...)
	}
}
