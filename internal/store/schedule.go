package store

import (
	"database/sql"
	"fmt"

	"github.com/rfoster/cuecall/internal/model"
)

// ScheduleStore reads the schedule snapshot written by the editing layer.
// The control core never writes schedule rows.
type ScheduleStore struct {
	db *sql.DB
}

func NewScheduleStore(db *sql.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

func scanScheduleItem(scanner interface{ Scan(...any) error }) (*model.ScheduleItem, error) {
	var it model.ScheduleItem
	var indented int
	err := scanner.Scan(
		&it.ID, &it.EventID, &it.Position, &it.CueLabel,
		&it.DurationSeconds, &indented, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	it.IsIndented = indented != 0
	return &it, nil
}

const scheduleItemCols = `id, event_id, position, cue_label, duration_seconds, is_indented, created_at, updated_at`

// ListByEvent returns the full ordered schedule snapshot for an event.
func (s *ScheduleStore) ListByEvent(eventID int64) ([]model.ScheduleItem, error) {
	rows, err := s.db.Query(
		`SELECT `+scheduleItemCols+` FROM schedule_items WHERE event_id = ? ORDER BY position ASC, id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list schedule items: %w", err)
	}
	defer rows.Close()

	var items []model.ScheduleItem
	for rows.Next() {
		it, err := scanScheduleItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (s *ScheduleStore) GetByID(id int64) (*model.ScheduleItem, error) {
	row := s.db.QueryRow(`SELECT `+scheduleItemCols+` FROM schedule_items WHERE id = ?`, id)
	it, err := scanScheduleItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule item: %w", err)
	}
	return it, nil
}
