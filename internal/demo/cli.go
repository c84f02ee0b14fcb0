package demo

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/kioko/matchpulse/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "demo_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the demo match tool.
func ShowHelp() {
	os.Stdout.WriteString(`MatchPulse Demo Match Runner
============================

Simulates a live NPFL match and drives the events through a running
pipeline over HTTP.

Usage:
  go run cmd/demo/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -minutes int
        Simulated match length in minutes (default 5)
  -eps int
        On-ball events per simulated minute (default 3)
  -frames int
        Tracking frames to interleave (default 10)
  -seed int
        Generator seed; equal seeds replay the same match (default 1)
  -workers int
        Number of concurrent submit workers (default CPU cores)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Log file for run output (default: demo_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Run a short demo match against a local service
  go run cmd/demo/main.go

  # Replay a full match deterministically
  go run cmd/demo/main.go -minutes 90 -seed 42 -url http://localhost:8080
`)
}
