package logging

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Setup builds and installs the default slog.Logger: a tint-colorized
// handler on stdout (color auto-disabled on a non-tty, matching
// cmd/client/main.go's isatty check) and a plain text.Handler appending
// to logFile. It returns the opened file so the caller can close it on
// shutdown.
func Setup(levelName, logFile string) (*os.File, error) {
	level := parseLevel(levelName)

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	console := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{Level: level})

	slog.SetDefault(slog.New(newFanoutHandler(console, fileHandler)))
	return file, nil
}

func parseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}
