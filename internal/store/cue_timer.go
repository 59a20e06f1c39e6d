package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rfoster/cuecall/internal/model"
)

// CueTimerStore owns the main-cue timer rows. All writes go through the
// dispatcher; display clients only read.
type CueTimerStore struct {
	db *sql.DB
}

func NewCueTimerStore(db *sql.DB) *CueTimerStore {
	return &CueTimerStore{db: db}
}

func scanCueTimer(scanner interface{ Scan(...any) error }) (*model.CueTimer, error) {
	var t model.CueTimer
	var active, running int
	var startedAt sql.NullInt64
	err := scanner.Scan(
		&t.EventID, &t.ItemID, &t.UserID, &active, &running,
		&startedAt, &t.DurationSeconds,
	)
	if err != nil {
		return nil, err
	}
	t.IsActive = active != 0
	t.IsRunning = running != 0
	if startedAt.Valid {
		ts := time.UnixMilli(startedAt.Int64).UTC()
		t.StartedAt = &ts
	}
	return &t, nil
}

const cueTimerCols = `event_id, item_id, user_id, is_active, is_running, started_at, duration_seconds`

// LoadCue makes item the single loaded cue of the event. Any previously
// loaded cue row for the event is deleted first, so the one-active-per-event
// rule holds even without relying on the partial unique index.
func (s *CueTimerStore) LoadCue(eventID, itemID, userID int64, durationSeconds int, now time.Time) (*model.CueTimer, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cue_timers WHERE event_id = ?`, eventID); err != nil {
		return nil, fmt.Errorf("retire previous cue: %w", err)
	}

	// started_at is a placeholder until Start; readers ignore it while
	// is_running is 0.
	_, err = tx.Exec(
		`INSERT INTO cue_timers (event_id, item_id, user_id, is_active, is_running, started_at, duration_seconds)
		 VALUES (?, ?, ?, 1, 0, ?, ?)`,
		eventID, itemID, userID, now.UnixMilli(), durationSeconds,
	)
	if err != nil {
		return nil, fmt.Errorf("insert cue timer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.Get(eventID, itemID)
}

// Start begins the countdown on the loaded row for (event, item), stamping a
// fresh start instant. Restarting a loaded timer always re-stamps; elapsed
// time is derived from this instant, never accumulated.
func (s *CueTimerStore) Start(eventID, itemID int64, now time.Time) (*model.CueTimer, error) {
	res, err := s.db.Exec(
		`UPDATE cue_timers SET is_running = 1, started_at = ? WHERE event_id = ? AND item_id = ? AND is_active = 1`,
		now.UnixMilli(), eventID, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("start cue timer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.Get(eventID, itemID)
}

// Stop halts whichever timer is running for the event. The elapsed portion is
// folded into duration_seconds so the frozen remainder survives without
// storing a counter; a later Start counts down from the remainder.
func (s *CueTimerStore) Stop(eventID int64, now time.Time) (*model.CueTimer, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(
		`SELECT `+cueTimerCols+` FROM cue_timers WHERE event_id = ? AND is_running = 1`,
		eventID,
	)
	t, err := scanCueTimer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get running cue timer: %w", err)
	}

	remaining := t.Remaining(now)
	_, err = tx.Exec(
		`UPDATE cue_timers SET is_running = 0, duration_seconds = ? WHERE event_id = ? AND item_id = ?`,
		remaining, eventID, t.ItemID,
	)
	if err != nil {
		return nil, fmt.Errorf("stop cue timer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.Get(eventID, t.ItemID)
}

// ResetActive deletes the active timer row for the event. Deleting rather
// than flagging matters: a stale row must not resurrect on the next poll.
// Returns false when no row was active.
func (s *CueTimerStore) ResetActive(eventID int64) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM cue_timers WHERE event_id = ? AND is_active = 1`, eventID)
	if err != nil {
		return false, fmt.Errorf("reset active cue timer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ResetAll deletes every main timer row for the event (the wide "panic
// reset" used when nothing is active).
func (s *CueTimerStore) ResetAll(eventID int64) error {
	if _, err := s.db.Exec(`DELETE FROM cue_timers WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("reset all cue timers: %w", err)
	}
	return nil
}

func (s *CueTimerStore) Get(eventID, itemID int64) (*model.CueTimer, error) {
	row := s.db.QueryRow(
		`SELECT `+cueTimerCols+` FROM cue_timers WHERE event_id = ? AND item_id = ?`,
		eventID, itemID,
	)
	t, err := scanCueTimer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cue timer: %w", err)
	}
	return t, nil
}

// GetActive returns the single loaded timer for the event, or nil.
func (s *CueTimerStore) GetActive(eventID int64) (*model.CueTimer, error) {
	row := s.db.QueryRow(
		`SELECT `+cueTimerCols+` FROM cue_timers WHERE event_id = ? AND is_active = 1`,
		eventID,
	)
	t, err := scanCueTimer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active cue timer: %w", err)
	}
	return t, nil
}
