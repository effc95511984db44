// log/log.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package log provides the structured logger used throughout navdb: JSON
// records written to a size-rotated file, each carrying the call stack
// of the code that logged it.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileName = "navdb.slog"
	// Rotation thresholds, in MB.
	maxLogSize      = 32
	maxDebugLogSize = 512
)

type Logger struct {
	*slog.Logger
	LogFile string
	LogDir  string
	Start   time.Time
}

// ParseLevel maps the level names used in configuration files to slog
// levels. Unknown names map to info.
func ParseLevel(level string) (slog.Level, bool) {
	switch level {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// New returns a Logger that writes JSON records to a rotated navdb.slog
// file in dir. If dir is empty, a navdb directory under the user's
// config directory is used.
func New(level string, dir string) *Logger {
	if dir == "" {
		cd, err := os.UserConfigDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Unable to find user config dir: %v\n", err)
			cd = "."
		}
		dir = filepath.Join(cd, "navdb")
	}

	lvl, ok := ParseLevel(level)
	if !ok {
		fmt.Fprintf(os.Stderr, "%s: unknown log level; using info\n", level)
	}

	w := &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    maxLogSize,
		MaxBackups: 1,
	}
	if lvl == slog.LevelDebug {
		w.MaxSize = maxDebugLogSize
	}

	l := &Logger{
		Logger:  slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})),
		LogFile: w.Filename,
		LogDir:  dir,
		Start:   time.Now(),
	}
	l.logStartup()
	return l
}

func (l *Logger) logStartup() {
	attrs := []any{
		slog.Time("start", l.Start),
		slog.String("goos", runtime.GOOS),
		slog.String("goarch", runtime.GOARCH),
		slog.Int("cpus", runtime.NumCPU()),
		slog.Bool("race", RaceEnabled),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		var deps []any
		for _, dep := range bi.Deps {
			deps = append(deps, slog.String(dep.Path, dep.Version))
		}
		attrs = append(attrs, slog.String("go", bi.GoVersion), slog.String("module", bi.Main.Path),
			slog.String("version", bi.Main.Version), slog.Group("deps", deps...))
	}
	l.Info("logging started", attrs...)
}

// enabled reports whether a record at the given level would be written
// anywhere. A nil Logger discards debug and info records and sends the
// rest to the default slog logger.
func (l *Logger) enabled(level slog.Level) bool {
	if l == nil {
		return level >= slog.LevelWarn
	}
	return l.Logger.Enabled(context.Background(), level)
}

// log must be called directly from the exported methods so that the
// callstack starts at their caller.
func (l *Logger) log(level slog.Level, msg string, args []any) {
	if !l.enabled(level) {
		return
	}
	args = append([]any{slog.Any("callstack", Callstack(2))}, args...)

	ctx := context.Background()
	if l == nil || level >= slog.LevelError {
		slog.Default().Log(ctx, level, msg, args...)
	}
	if l != nil {
		l.Logger.Log(ctx, level, msg, args...)
	}
}

func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

// Debugf and the other *f variants log a printf-style formatted message
// with no attributes other than the callstack.
func (l *Logger) Debugf(format string, args ...any) {
	if l.enabled(slog.LevelDebug) {
		l.log(slog.LevelDebug, fmt.Sprintf(format, args...), nil)
	}
}

func (l *Logger) Infof(format string, args ...any) {
	if l.enabled(slog.LevelInfo) {
		l.log(slog.LevelInfo, fmt.Sprintf(format, args...), nil)
	}
}

func (l *Logger) Warnf(format string, args ...any) {
	l.log(slog.LevelWarn, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.log(slog.LevelError, fmt.Sprintf(format, args...), nil)
}

// With returns a Logger that includes the given attributes in each
// record. A nil Logger stays nil.
func (l *Logger) With(args ...any) *Logger {
	if l == nil {
		return nil
	}
	nl := *l
	nl.Logger = l.Logger.With(args...)
	return &nl
}
