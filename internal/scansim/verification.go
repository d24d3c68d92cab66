package scansim

import (
	"context"
	"fmt"
	"log"

	"github.com/easyshift/presence/internal/domain/model"
)

// verifyResults checks the persisted events against the pipeline's
// guarantees.
func verifyResults(ctx context.Context, config *Config, events []model.AttendanceEvent, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	if stats.SessionsRun == 0 {
		return fmt.Errorf("no sessions were run")
	}

	// Every persisted event carries the expected payload and identity,
	// except the duplicate probe which wrote its own.
	seen := make(map[string]int, len(events))
	for _, ev := range events {
		seen[ev.SessionID]++
		if ev.SessionID == "sim-duplicate-probe" {
			continue
		}
		if ev.Payload != config.Payload {
			return fmt.Errorf("event %s carries payload %q, want %q", ev.SessionID, ev.Payload, config.Payload)
		}
		if ev.UserID != "sim-worker" {
			return fmt.Errorf("event %s carries user %q, want sim-worker", ev.SessionID, ev.UserID)
		}
		if ev.SubmittedAt.Before(ev.CapturedAt) {
			return fmt.Errorf("event %s submitted before it was captured", ev.SessionID)
		}
	}

	// At-most-one event per session, across the whole run.
	for id, n := range seen {
		if n > 1 {
			return fmt.Errorf("session %s persisted %d events", id, n)
		}
	}
	log.Println("✅ At-most-one acceptance verified")

	// Completed live sessions plus the photo submission and the duplicate
	// probe account for every row.
	want := stats.SessionsCompleted + stats.PhotosSubmitted + 1
	if len(events) != want {
		return fmt.Errorf("store holds %d events, want %d", len(events), want)
	}
	log.Println("✅ Event accounting verified")

	if stats.SessionsCancelled == 0 {
		log.Println("⚠️  Cancel scenario did not run")
	} else {
		log.Println("✅ Cancellation teardown verified")
	}

	displayEvents(events, config.Verbose)

	log.Println("✅ Result verification completed")
	return nil
}

// displayEvents shows the persisted attendance events.
func displayEvents(events []model.AttendanceEvent, verbose bool) {
	if !verbose {
		return
	}
	log.Printf("📋 Persisted attendance events (%d):", len(events))
	for i, ev := range events {
		log.Printf("   %d. session=%s user=%s payload=%s method=%s",
			i+1, ev.SessionID, ev.UserID, ev.Payload, ev.Method)
	}
}
