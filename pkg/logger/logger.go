package logger

import (
	"io"
	"log/slog"
	"os"
)

var log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Init configures the process-wide logger. Production emits JSON at info
// level, every other environment emits text at debug level.
func Init(env string) {
	InitWithWriter(env, os.Stdout)
}

func InitWithWriter(env string, w io.Writer) {
	if env == "production" {
		log = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	} else {
		log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	slog.SetDefault(log)
}

func Debug(msg string, keyvals ...any) { log.Debug(msg, keyvals...) }

func Info(msg string, keyvals ...any) { log.Info(msg, keyvals...) }

func Warn(msg string, keyvals ...any) { log.Warn(msg, keyvals...) }

func Error(msg string, keyvals ...any) { log.Error(msg, keyvals...) }

func Fatal(msg string, keyvals ...any) {
	log.Error(msg, keyvals...)
	os.Exit(1)
}
