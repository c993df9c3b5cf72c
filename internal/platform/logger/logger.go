package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/ZhanWeiKai/eatwhat/internal/config"
)

func NewLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logger.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	var handler slog.Handler
	switch cfg.Logger.Format {
	case "TEXT":
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     level,
			AddSource: true, // critical for incident debugging
		})
	default:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})
	}
	logger := slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("env", cfg.Service.Env),
		slog.String("address", cfg.Service.Addr),
		slog.Int("pid", os.Getpid()),
	)
	slog.SetDefault(logger)
	return logger
}
