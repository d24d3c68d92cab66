package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/easyshift/presence/internal/scansim"
)

// Default configuration constants.
const (
	defaultSessions    = 5
	defaultPayload     = "BADGE-1234"
	defaultFast        = 50 * time.Millisecond
	defaultSlow        = 150 * time.Millisecond
	defaultTimeout     = 10 * time.Second
	defaultSimDeadline = 5 * time.Minute
)

func main() {
	var (
		sessions = flag.Int("sessions", defaultSessions, "Number of live scan sessions to run")
		payload  = flag.String("payload", defaultPayload, "Check-in code encoded into simulated frames")
		fast     = flag.Duration("fast", defaultFast, "Software decode sampling cadence")
		slow     = flag.Duration("slow", defaultSlow, "Native inference sampling cadence")
		native   = flag.Bool("native", true, "Enable the simulated native recognition engine")
		storeDSN = flag.String("store", "", "SQLite DSN for the attendance store (default: in-memory)")
		timeout  = flag.Duration("timeout", defaultTimeout, "Per-session completion timeout")
		logFile  = flag.String("log", "", "Log file for simulation output (default: scan_sim_TIMESTAMP.log)")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		scansim.ShowHelp()
		return
	}

	// Setup logging
	if err := scansim.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultSimDeadline)
	defer cancel()

	// Create simulation configuration
	config := &scansim.Config{
		Sessions:     *sessions,
		Payload:      *payload,
		FastInterval: *fast,
		SlowInterval: *slow,
		Native:       *native,
		StoreDSN:     *storeDSN,
		Timeout:      *timeout,
		LogFile:      *logFile,
		Verbose:      *verbose,
	}

	// Run the simulation
	if err := scansim.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		return
	}
}
