package scansim

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/easyshift/presence/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "scan_sim_" + timestamp + ".log"
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

// ShowHelp prints usage information for the scan simulation tool.
func ShowHelp() {
	os.Stdout.WriteString(`Presence Scan Simulator
=======================

Drives simulated scan sessions through the full pipeline (camera
negotiation, concurrent recognition, arbitration, submission) and verifies
the pipeline's guarantees against the attendance store.

Usage:
  go run cmd/scan-sim/main.go [options]

Options:
  -sessions int
        Number of live scan sessions to run (default 5)
  -payload string
        Check-in code encoded into simulated frames (default "BADGE-1234")
  -fast duration
        Software decode sampling cadence (default 50ms)
  -slow duration
        Native inference sampling cadence (default 150ms)
  -native
        Enable the simulated native recognition engine (default true)
  -store string
        SQLite DSN for the attendance store (default: in-memory)
  -timeout duration
        Per-session completion timeout (default 10s)
  -log string
        Log file for simulation output (default: scan_sim_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Simulate with default settings
  go run cmd/scan-sim/main.go

  # Stress the arbiter with a fast dual-strategy race
  go run cmd/scan-sim/main.go -sessions 50 -fast 10ms -slow 20ms

  # Persist to SQLite and inspect afterwards
  go run cmd/scan-sim/main.go -store file:attendance.db
`)
}
