package model

import "time"

// CueTimer is the authoritative record for the single live cue of an event.
// At most one row per event may have IsActive set; loading a new cue replaces
// the previous row.
//
// Elapsed time is never stored. It is always derived as now - StartedAt, so
// any reader at any later instant reproduces the same countdown.
type CueTimer struct {
	EventID         int64      `json:"event_id"`
	ItemID          int64      `json:"item_id"`
	UserID          int64      `json:"user_id"`
	IsActive        bool       `json:"is_active"`
	IsRunning       bool       `json:"is_running"`
	StartedAt       *time.Time `json:"started_at"`
	DurationSeconds int        `json:"duration_seconds"`
}

// Remaining returns the seconds left on the timer at the given instant.
// Stopped timers report their full stored duration (Stop folds the elapsed
// portion into DurationSeconds, so "full duration" is the frozen remainder).
// Running timers may go negative; overtime is rendered, not clamped.
func (t *CueTimer) Remaining(now time.Time) int {
	if !t.IsRunning || t.StartedAt == nil {
		return t.DurationSeconds
	}
	elapsed := int(now.Sub(*t.StartedAt) / time.Second)
	return t.DurationSeconds - elapsed
}

// SubCueTimer is a secondary countdown attached to an indented schedule item.
// Keyed by (EventID, ItemID) with no event-wide uniqueness: its lifecycle is
// independent of the main CueTimer.
//
// RemainingSeconds is a denormalized convenience recomputed on every write;
// readers derive the live value from StartedAt and must not trust it.
type SubCueTimer struct {
	EventID          int64      `json:"event_id"`
	ItemID           int64      `json:"item_id"`
	SubCueID         int64      `json:"sub_cue_id"`
	RowIs            int        `json:"row_is"`
	CueIs            string     `json:"cue_is"`
	TimerID          int64      `json:"timer_id"`
	UserID           int64      `json:"user_id"`
	IsRunning        bool       `json:"is_running"`
	StartedAt        *time.Time `json:"started_at"`
	DurationSeconds  int        `json:"duration_seconds"`
	RemainingSeconds int        `json:"remaining_seconds"`
}

// Remaining returns the seconds left on the sub-timer at the given instant,
// derived from StartedAt exactly like CueTimer.Remaining.
func (t *SubCueTimer) Remaining(now time.Time) int {
	if !t.IsRunning || t.StartedAt == nil {
		return t.DurationSeconds
	}
	elapsed := int(now.Sub(*t.StartedAt) / time.Second)
	return t.DurationSeconds - elapsed
}
