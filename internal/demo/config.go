package demo

import "time"

// Config holds configuration for the demo match run.
type Config struct {
	BaseURL         string        // Base URL of the service
	Minutes         int           // Simulated match length in minutes
	EventsPerMinute int           // On-ball events per simulated minute
	TrackingFrames  int           // Tracking frames to interleave
	Seed            int64         // Generator seed; equal seeds replay the same match
	Workers         int           // Number of concurrent submit workers
	Timeout         time.Duration // HTTP request timeout
	LogFile         string        // Log file for run output
	Verbose         bool          // Enable verbose logging
}

// AckResponse represents the response from event submission.
type AckResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	EventsGenerated  int
	EventsSubmitted  int
	EventsSuccessful int
	EventsDuplicate  int
	EventsFailed     int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
