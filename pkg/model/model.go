// Package model holds the persisted document shapes shared by the server
// and the session layer. All timestamps are unix epoch milliseconds, which
// is what the front end stores and what the duration arithmetic runs on.
package model

import "time"

// HistoricalEntry is an immutable record of completed work. Entries are
// created when a running timer is stopped and never mutated afterwards.
type HistoricalEntry struct {
	Project         string `json:"project"`
	Task            string `json:"task"`
	TotalDurationMs int64  `json:"totalDurationMs"`
	DurationSeconds int64  `json:"durationSeconds"`
	EndTime         int64  `json:"endTime"`
	CreatedAt       int64  `json:"createdAt"`
	Notes           string `json:"notes"`
}

// ActiveTimer is an in-progress or paused unit of work. A timer is either
// running (StartTime set) or paused (IsPaused true, StartTime nil) — never
// both, never neither.
type ActiveTimer struct {
	Project       string `json:"project"`
	Task          string `json:"task"`
	StartTime     *int64 `json:"startTime"`
	AccumulatedMs int64  `json:"accumulatedMs"`
	IsPaused      bool   `json:"isPaused"`
	Notes         string `json:"notes"`
	CreatedAt     int64  `json:"createdAt"`
}

// ElapsedMs returns the total tracked time of the timer at the given
// instant: the banked accumulated time plus, while running, the wall clock
// since the last start.
func (t ActiveTimer) ElapsedMs(at time.Time) int64 {
	elapsed := t.AccumulatedMs
	if !t.IsPaused && t.StartTime != nil {
		if d := at.UnixMilli() - *t.StartTime; d > 0 {
			elapsed += d
		}
	}
	return elapsed
}

// Consistent reports whether the timer satisfies the running/paused
// exclusivity invariant and has non-negative banked time.
func (t ActiveTimer) Consistent() bool {
	if t.AccumulatedMs < 0 {
		return false
	}
	if t.IsPaused {
		return t.StartTime == nil
	}
	return t.StartTime != nil
}

// Millis converts an instant to the epoch-millisecond representation used
// in the documents.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
