// Package cue indexes the current schedule snapshot and resolves
// operator-entered cue tokens ("5", "1A", "5.1", a raw item id) to exactly
// one schedule item.
package cue

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rfoster/cuecall/internal/model"
)

// NotFoundError reports a token that matched no schedule item. Callers must
// surface it to the command's originator, never fall back to a guess.
type NotFoundError struct {
	Token string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cue not found: %q", e.Token)
}

// Directory is a read-only index over one event's schedule snapshot. It is
// rebuilt wholesale whenever the event is (re)loaded; the only mutable piece
// is the active-cue slot used by generic start/stop.
type Directory struct {
	eventID int64
	items   []model.ScheduleItem

	mu       sync.RWMutex
	activeID int64
}

// NewDirectory builds a directory for the event from its ordered snapshot.
func NewDirectory(eventID int64, items []model.ScheduleItem) *Directory {
	return &Directory{eventID: eventID, items: items}
}

func (d *Directory) EventID() int64 {
	return d.eventID
}

// Items returns the backing snapshot in schedule order.
func (d *Directory) Items() []model.ScheduleItem {
	return d.items
}

func normalizeLabel(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Resolve maps a cue token to its schedule item. Matching order, first match
// wins:
//  1. normalized label equality, including the "CUE n" / "CUEn" prefix forms
//  2. verbatim raw label equality (labels like "1A" that don't parse)
//  3. token parsed as an integer matching the item id
//
// A miss returns *NotFoundError.
func (d *Directory) Resolve(token string) (*model.ScheduleItem, error) {
	return d.resolve(token, false)
}

// ResolveSub resolves a sub-cue token. In addition to the Resolve rules it
// accepts substring containment of the token inside the label, so compound
// tokens like "5.1" can select an item whose label carries more text.
func (d *Directory) ResolveSub(token string) (*model.ScheduleItem, error) {
	return d.resolve(token, true)
}

func (d *Directory) resolve(token string, allowContains bool) (*model.ScheduleItem, error) {
	norm := normalizeLabel(token)

	for i := range d.items {
		label := normalizeLabel(d.items[i].CueLabel)
		if label == "" {
			continue
		}
		if label == norm || label == "CUE "+norm || label == "CUE"+norm {
			return &d.items[i], nil
		}
	}

	raw := strings.TrimSpace(token)
	for i := range d.items {
		if d.items[i].CueLabel != "" && d.items[i].CueLabel == raw {
			return &d.items[i], nil
		}
	}

	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		for i := range d.items {
			if d.items[i].ID == id {
				return &d.items[i], nil
			}
		}
	}

	if allowContains && norm != "" {
		for i := range d.items {
			label := normalizeLabel(d.items[i].CueLabel)
			if label != "" && strings.Contains(label, norm) {
				return &d.items[i], nil
			}
		}
	}

	return nil, &NotFoundError{Token: token}
}

// SetActive records which item occupies the active-cue slot. Zero clears it.
func (d *Directory) SetActive(itemID int64) {
	d.mu.Lock()
	d.activeID = itemID
	d.mu.Unlock()
}

// ActiveItem returns the item in the active-cue slot, or nil.
func (d *Directory) ActiveItem() *model.ScheduleItem {
	d.mu.RLock()
	id := d.activeID
	d.mu.RUnlock()
	if id == 0 {
		return nil
	}
	for i := range d.items {
		if d.items[i].ID == id {
			return &d.items[i]
		}
	}
	return nil
}
