package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide call counter.
var Stats = &stats{}

type stats struct {
	SessionsOpened    atomic.Int64 // cumulative count of peer sessions created since process start
	SessionsClosed    atomic.Int64 // cumulative count of peer sessions closed since process start
	CandidatesSent    atomic.Int64 // cumulative local ICE candidates emitted to the coordinator
	CandidatesApplied atomic.Int64 // cumulative remote ICE candidates applied to connections
}

func (s *stats) AddSession()       { s.SessionsOpened.Add(1) }
func (s *stats) RemoveSession()    { s.SessionsClosed.Add(1) }
func (s *stats) AddCandidateSent() { s.CandidatesSent.Add(1) }
func (s *stats) AddCandidateApplied() {
	s.CandidatesApplied.Add(1)
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs call statistics
// every 10 seconds while something changed. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevOpened, prevClosed, prevSent, prevApplied int64
		for {
			select {
			case <-ticker.C:
				opened := Stats.SessionsOpened.Load()
				closed := Stats.SessionsClosed.Load()
				sent := Stats.CandidatesSent.Load()
				applied := Stats.CandidatesApplied.Load()

				if opened != prevOpened || closed != prevClosed || sent != prevSent || applied != prevApplied {
					pterm.DefaultLogger.Info(formatStats(opened-closed, opened, sent, applied))
				}

				prevOpened = opened
				prevClosed = closed
				prevSent = sent
				prevApplied = applied

			case <-ctx.Done():
				return
			}
		}
	}()
}

// formatStats returns a formatted string of the current stats for display in the logger.
func formatStats(open, total, sent, applied int64) string {
	return fmt.Sprintf("Sessions: %2d open / %2d total | ICE: %3d sent, %3d applied",
		open,
		total,
		sent,
		applied,
	)
}
