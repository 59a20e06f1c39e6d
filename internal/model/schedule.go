package model

import "time"

// ScheduleItem is one row of the run-of-show schedule. The schedule is owned
// by the editing layer; the control core only ever reads it, and the whole
// snapshot is replaced when an event is (re)loaded.
type ScheduleItem struct {
	ID              int64     `json:"id"`
	EventID         int64     `json:"event_id"`
	Position        int       `json:"position"`
	CueLabel        string    `json:"cue_label"`
	DurationSeconds int       `json:"duration_seconds"`
	IsIndented      bool      `json:"is_indented"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
