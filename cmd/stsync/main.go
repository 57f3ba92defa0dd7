package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/stlauncher/stsync/internal/client/config"
	"github.com/stlauncher/stsync/internal/utils"
)

// the log file is shared by every invocation and rotated once it passes this size
const maxLogFileSize = 10 << 20

func main() {
	file, err := openLogFile(config.DefaultLogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	session := uuid.NewString()[:8]
	sessionLog := utils.NewSessionWriter(file, session)
	defer sessionLog.Close()

	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	fileHandler := slog.NewTextHandler(sessionLog, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// the session writer stamps every line itself
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})
	slog.SetDefault(slog.New(utils.NewFanoutHandler(stdoutHandler, fileHandler)))
	slog.Debug("session started", "args", os.Args[1:], "pid", os.Getpid())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		sessionLog.Close()
		file.Close()
		os.Exit(1)
	}
}

// openLogFile opens path for appending, moving it to path.1 first when it has grown too large
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if info, err := os.Stat(path); err == nil && info.Size() > maxLogFileSize {
		if err := os.Rename(path, path+".1"); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
