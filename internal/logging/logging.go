package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Имена полей, общие для всех сервисов
const (
	FieldService    = "service"
	FieldOrderID    = "order_id"
	FieldStep       = "step"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
)

// New JSON-логгер с полем service
func New(service, level string) *slog.Logger {
	return NewWithWriter(os.Stdout, service, level)
}

func NewWithWriter(w io.Writer, service, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(h).With(FieldService, service)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Step замеряет шаг и пишет одну строку с step, status и duration_ms.
//
//	done := logging.Step(log, "order.create")
//	defer func() { done(err) }()
func Step(log *slog.Logger, step string, attrs ...any) func(err error) {
	start := time.Now()
	return func(err error) {
		args := append([]any{FieldStep, step, FieldDurationMS, time.Since(start).Milliseconds()}, attrs...)
		if err != nil {
			log.Warn("step failed", append(args, FieldStatus, "error", "error", err.Error())...)
			return
		}
		log.Info("step done", append(args, FieldStatus, "ok")...)
	}
}

// Discard логгер для тестов
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
