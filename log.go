package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"

	"meshchat/mesh"
)

// logWriter implements an io.Writer that outputs to the console (unless it
// has been silenced) and to the log rotator when it is initialized.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	if consoleLogging.Load() {
		os.Stdout.Write(p)
	}
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

// Loggers per subsystem.  A single backend logger is created and all
// subsystem loggers created from it will write to the backend.  When adding
// new subsystems, add the subsystem logger variable here and to the
// subsystemLoggers map.
//
// Loggers can not be used before the log rotator has been initialized with a
// log file.  This must be performed early during application startup by
// calling initLogRotator.
var (
	backendLog = slog.NewBackend(logWriter{})

	// logRotator is one of the logging outputs.  It should be closed on
	// application shutdown.
	logRotator *rotator.Rotator

	// consoleLogging is cleared while the terminal UI owns the screen.
	consoleLogging atomic.Bool

	chatLog = backendLog.Logger("CHAT")
	meshLog = backendLog.Logger("MESH")
)

func init() {
	consoleLogging.Store(true)
	mesh.UseLogger(meshLog)
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]slog.Logger{
	"CHAT": chatLog,
	"MESH": meshLog,
}

// initLogRotator initializes the logging rotater to write logs to logFile and
// create roll files in the same directory.  It must be called before the
// package-global log rotater variables are used.
func initLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}

	logRotator = r
	return nil
}

// setLogLevels sets the log level for all subsystem loggers to the passed
// level.  Invalid levels are ignored.
func setLogLevels(logLevel string) {
	level, ok := slog.LevelFromString(logLevel)
	if !ok {
		return
	}
	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}
}

// closeLogRotator flushes and closes the log file.
func closeLogRotator() {
	if logRotator != nil {
		logRotator.Close()
		logRotator = nil
	}
}
