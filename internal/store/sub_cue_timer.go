package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rfoster/cuecall/internal/model"
)

// SubCueTimerStore owns the secondary countdown rows. Sub-cue timers are
// keyed by (event, item) with no event-wide uniqueness; their lifecycle is
// independent of the main cue timer.
type SubCueTimerStore struct {
	db *sql.DB
}

func NewSubCueTimerStore(db *sql.DB) *SubCueTimerStore {
	return &SubCueTimerStore{db: db}
}

func scanSubCueTimer(scanner interface{ Scan(...any) error }) (*model.SubCueTimer, error) {
	var t model.SubCueTimer
	var running int
	var startedAt sql.NullInt64
	err := scanner.Scan(
		&t.EventID, &t.ItemID, &t.SubCueID, &t.RowIs, &t.CueIs, &t.TimerID,
		&t.UserID, &running, &startedAt, &t.DurationSeconds, &t.RemainingSeconds,
	)
	if err != nil {
		return nil, err
	}
	t.IsRunning = running != 0
	if startedAt.Valid {
		ts := time.UnixMilli(startedAt.Int64).UTC()
		t.StartedAt = &ts
	}
	return &t, nil
}

const subCueTimerCols = `event_id, item_id, sub_cue_id, row_is, cue_is, timer_id, user_id, is_running, started_at, duration_seconds, remaining_seconds`

// Start upserts a running sub-timer for the item and stamps a fresh start
// instant. timerID records which main item was live when the sub started;
// remaining_seconds is denormalized on write and never trusted by readers.
func (s *SubCueTimerStore) Start(item *model.ScheduleItem, timerID, userID int64, now time.Time) (*model.SubCueTimer, error) {
	_, err := s.db.Exec(
		`INSERT INTO sub_cue_timers
		   (event_id, item_id, sub_cue_id, row_is, cue_is, timer_id, user_id, is_running, started_at, duration_seconds, remaining_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
		 ON CONFLICT(event_id, item_id) DO UPDATE SET
		   sub_cue_id = excluded.sub_cue_id,
		   row_is = excluded.row_is,
		   cue_is = excluded.cue_is,
		   timer_id = excluded.timer_id,
		   user_id = excluded.user_id,
		   is_running = 1,
		   started_at = excluded.started_at,
		   duration_seconds = excluded.duration_seconds,
		   remaining_seconds = excluded.remaining_seconds`,
		item.EventID, item.ID, item.ID, item.Position, item.CueLabel, timerID,
		userID, now.UnixMilli(), item.DurationSeconds, item.DurationSeconds,
	)
	if err != nil {
		return nil, fmt.Errorf("start sub cue timer: %w", err)
	}
	return s.Get(item.EventID, item.ID)
}

// Stop halts the sub-timer for (event, item), folding elapsed time into the
// stored duration the same way CueTimerStore.Stop does. Returns nil when no
// row exists.
func (s *SubCueTimerStore) Stop(eventID, itemID int64, now time.Time) (*model.SubCueTimer, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(
		`SELECT `+subCueTimerCols+` FROM sub_cue_timers WHERE event_id = ? AND item_id = ?`,
		eventID, itemID,
	)
	t, err := scanSubCueTimer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sub cue timer: %w", err)
	}

	remaining := t.Remaining(now)
	_, err = tx.Exec(
		`UPDATE sub_cue_timers SET is_running = 0, duration_seconds = ?, remaining_seconds = ? WHERE event_id = ? AND item_id = ?`,
		remaining, remaining, eventID, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("stop sub cue timer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.Get(eventID, itemID)
}

func (s *SubCueTimerStore) Get(eventID, itemID int64) (*model.SubCueTimer, error) {
	row := s.db.QueryRow(
		`SELECT `+subCueTimerCols+` FROM sub_cue_timers WHERE event_id = ? AND item_id = ?`,
		eventID, itemID,
	)
	t, err := scanSubCueTimer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sub cue timer: %w", err)
	}
	return t, nil
}

func (s *SubCueTimerStore) ListByEvent(eventID int64) ([]model.SubCueTimer, error) {
	rows, err := s.db.Query(
		`SELECT `+subCueTimerCols+` FROM sub_cue_timers WHERE event_id = ? ORDER BY row_is ASC, item_id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sub cue timers: %w", err)
	}
	defer rows.Close()

	var timers []model.SubCueTimer
	for rows.Next() {
		t, err := scanSubCueTimer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sub cue timer: %w", err)
		}
		timers = append(timers, *t)
	}
	return timers, rows.Err()
}

// ClearExcept deletes the event's sub-timer rows except the one attached to
// keepItemID. Used when a new main cue loads: sub-timers targeting a cue that
// is no longer live must not keep counting.
func (s *SubCueTimerStore) ClearExcept(eventID, keepItemID int64) error {
	if _, err := s.db.Exec(
		`DELETE FROM sub_cue_timers WHERE event_id = ? AND item_id != ?`,
		eventID, keepItemID,
	); err != nil {
		return fmt.Errorf("clear sub cue timers: %w", err)
	}
	return nil
}

// ClearAll deletes every sub-timer row for the event.
func (s *SubCueTimerStore) ClearAll(eventID int64) error {
	if _, err := s.db.Exec(`DELETE FROM sub_cue_timers WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("clear all sub cue timers: %w", err)
	}
	return nil
}
