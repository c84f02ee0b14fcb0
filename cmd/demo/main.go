package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/kioko/matchpulse/internal/demo"
)

// Default configuration constants.
const (
	defaultMinutes        = 5
	defaultEventsPerMin   = 3
	defaultTrackingFrames = 10
	defaultSeed           = 1
	defaultTimeout        = 30 * time.Second
	defaultRunTimeout     = 10 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:8080", "Base URL of the service")
		minutes = flag.Int("minutes", defaultMinutes, "Simulated match length in minutes")
		eps     = flag.Int("eps", defaultEventsPerMin, "On-ball events per simulated minute")
		frames  = flag.Int("frames", defaultTrackingFrames, "Tracking frames to interleave")
		seed    = flag.Int64("seed", defaultSeed, "Generator seed; equal seeds replay the same match")
		workers = flag.Int("workers", runtime.NumCPU(), "Number of concurrent submit workers")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile = flag.String("log", "", "Log file for run output (default: demo_log_TIMESTAMP.log)")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		demo.ShowHelp()
		return
	}

	if err := demo.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &demo.Config{
		BaseURL:         *baseURL,
		Minutes:         *minutes,
		EventsPerMinute: *eps,
		TrackingFrames:  *frames,
		Seed:            *seed,
		Workers:         *workers,
		Timeout:         *timeout,
		LogFile:         *logFile,
		Verbose:         *verbose,
	}

	if err := demo.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Demo run failed: " + err.Error() + "\n")
		return
	}
}
