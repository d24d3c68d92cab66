package scansim

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	Sessions     int           // Number of live scan sessions to run
	Payload      string        // Check-in code encoded into simulated frames
	FastInterval time.Duration // Software decode sampling cadence
	SlowInterval time.Duration // Native inference sampling cadence
	Native       bool          // Enable the simulated native engine
	StoreDSN     string        // SQLite DSN; empty keeps the in-memory store
	Timeout      time.Duration // Per-session completion timeout
	LogFile      string        // Log file for simulation output
	Verbose      bool          // Enable verbose logging
}

// Stats holds simulation statistics.
type Stats struct {
	SessionsRun       int
	SessionsCompleted int
	SessionsFailed    int
	SessionsCancelled int
	PhotosSubmitted   int
	PhotoMisses       int
	EventsPersisted   int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
