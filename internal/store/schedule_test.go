package store

import "testing"

func TestScheduleListByEventOrdersByPosition(t *testing.T) {
	db, _, _ := setupTimerTestDB(t)
	ss := NewScheduleStore(db)

	seedScheduleItem(t, db, 42, 1, 2, "CUE 5", 120, false)
	seedScheduleItem(t, db, 41, 1, 1, "CUE 4", 60, false)
	seedScheduleItem(t, db, 99, 2, 1, "CUE 1", 30, false)

	items, err := ss.ListByEvent(1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != 41 || items[1].ID != 42 {
		t.Errorf("order = [%d %d], want [41 42]", items[0].ID, items[1].ID)
	}
}

func TestScheduleGetByIDNotFound(t *testing.T) {
	db, _, _ := setupTimerTestDB(t)
	ss := NewScheduleStore(db)

	got, err := ss.GetByID(9999)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent item")
	}
}

func TestScheduleIndentedFlagRoundTrips(t *testing.T) {
	db, _, _ := setupTimerTestDB(t)
	ss := NewScheduleStore(db)

	seedScheduleItem(t, db, 7, 1, 3, "5.1", 45, true)

	it, err := ss.GetByID(7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if it == nil || !it.IsIndented {
		t.Errorf("expected indented item, got %+v", it)
	}
}
