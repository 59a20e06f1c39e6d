package cue

import (
	"errors"
	"testing"

	"github.com/rfoster/cuecall/internal/model"
)

func testSnapshot() []model.ScheduleItem {
	return []model.ScheduleItem{
		{ID: 41, EventID: 1, Position: 1, CueLabel: "CUE 4", DurationSeconds: 60},
		{ID: 42, EventID: 1, Position: 2, CueLabel: "CUE 5", DurationSeconds: 120},
		{ID: 43, EventID: 1, Position: 3, CueLabel: "1A", DurationSeconds: 30},
		{ID: 44, EventID: 1, Position: 4, CueLabel: "5.1", DurationSeconds: 45, IsIndented: true},
		{ID: 45, EventID: 1, Position: 5, CueLabel: "", DurationSeconds: 15},
	}
}

func TestResolveBareNumberMatchesCuePrefix(t *testing.T) {
	d := NewDirectory(1, testSnapshot())

	it, err := d.Resolve("5")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if it.ID != 42 {
		t.Errorf("resolved item = %d, want 42", it.ID)
	}
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	d := NewDirectory(1, testSnapshot())

	it, err := d.Resolve("cue 4")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if it.ID != 41 {
		t.Errorf("resolved item = %d, want 41", it.ID)
	}
}

func TestResolveVerbatimLabel(t *testing.T) {
	d := NewDirectory(1, testSnapshot())

	it, err := d.Resolve("1A")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if it.ID != 43 {
		t.Errorf("resolved item = %d, want 43", it.ID)
	}
}

func TestResolveRawItemID(t *testing.T) {
	d := NewDirectory(1, testSnapshot())

	it, err := d.Resolve("45")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if it.ID != 45 {
		t.Errorf("resolved item = %d, want 45", it.ID)
	}
}

// Every item with a label resolves back to itself via its own label.
func TestResolveRoundTripsAllLabels(t *testing.T) {
	snapshot := testSnapshot()
	d := NewDirectory(1, snapshot)

	for _, it := range snapshot {
		if it.CueLabel == "" {
			continue
		}
		got, err := d.Resolve(it.CueLabel)
		if err != nil {
			t.Fatalf("resolve %q: %v", it.CueLabel, err)
		}
		if got.ID != it.ID {
			t.Errorf("resolve(%q) = item %d, want %d", it.CueLabel, got.ID, it.ID)
		}
	}
}

func TestResolveUnknownTokenIsNotFound(t *testing.T) {
	d := NewDirectory(1, testSnapshot())

	_, err := d.Resolve("99")
	if err == nil {
		t.Fatal("expected error for unknown token")
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %T, want *NotFoundError", err)
	}
	if nf.Token != "99" {
		t.Errorf("token = %q, want %q", nf.Token, "99")
	}
}

func TestResolveDoesNotUseContainment(t *testing.T) {
	// "5" containment would also match "5.1"; the main resolver must only
	// use the exact rules, so ".1" resolves nothing.
	d := NewDirectory(1, testSnapshot())

	if _, err := d.Resolve(".1"); err == nil {
		t.Fatal("expected NotFound for partial token on main resolve")
	}
}

func TestResolveSubAllowsContainment(t *testing.T) {
	d := NewDirectory(1, testSnapshot())

	it, err := d.ResolveSub(".1")
	if err != nil {
		t.Fatalf("resolve sub: %v", err)
	}
	if it.ID != 44 {
		t.Errorf("resolved item = %d, want 44", it.ID)
	}
}

func TestResolveSubExactRulesStillWinOverContainment(t *testing.T) {
	d := NewDirectory(1, testSnapshot())

	// "5" is contained in "5.1", but the exact "CUE 5" match comes first.
	it, err := d.ResolveSub("5")
	if err != nil {
		t.Fatalf("resolve sub: %v", err)
	}
	if it.ID != 42 {
		t.Errorf("resolved item = %d, want 42", it.ID)
	}
}

func TestActiveSlot(t *testing.T) {
	d := NewDirectory(1, testSnapshot())

	if d.ActiveItem() != nil {
		t.Fatal("expected empty active slot")
	}
	d.SetActive(42)
	if got := d.ActiveItem(); got == nil || got.ID != 42 {
		t.Fatalf("active = %+v, want item 42", got)
	}
	d.SetActive(0)
	if d.ActiveItem() != nil {
		t.Fatal("expected cleared active slot")
	}
}
