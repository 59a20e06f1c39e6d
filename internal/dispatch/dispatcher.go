// Package dispatch executes resolved command operations against the cue
// directory and the timer state store. The dispatcher is the only writer of
// timer state; display clients and status queries only read.
package dispatch

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/rfoster/cuecall/internal/command"
	"github.com/rfoster/cuecall/internal/cue"
	"github.com/rfoster/cuecall/internal/metrics"
	"github.com/rfoster/cuecall/internal/model"
	"github.com/rfoster/cuecall/internal/store"
	"github.com/rfoster/cuecall/internal/websocket"
)

// Ack is the single acknowledgement every command elicits. The wire ingress
// renders it as a response datagram; the HTTP fallback as a JSON body.
type Ack struct {
	Address string
	EventID int64
	ItemID  int64
	Args    []command.Arg
}

// StatusReport is the read-only authoritative state for one event.
// Main and Subs carry raw started_at timestamps so display clients can
// derive elapsed time themselves; MainRemaining is a server-side convenience
// for thin callers.
type StatusReport struct {
	EventID       int64               `json:"event_id"`
	Main          *model.CueTimer     `json:"main"`
	MainRemaining *int                `json:"main_remaining,omitempty"`
	ActiveLabel   string              `json:"active_label,omitempty"`
	Subs          []model.SubCueTimer `json:"subs"`
}

// Dispatcher applies transition rules, serialized per event: commands for a
// given event are processed to completion one at a time. Across operators it
// is last-write-wins; a live show has one human driving it at a time.
type Dispatcher struct {
	schedules *store.ScheduleStore
	timers    *store.CueTimerStore
	subs      *store.SubCueTimerStore
	hub       *websocket.Hub
	logger    *slog.Logger
	now       func() time.Time

	mu         sync.Mutex
	eventLocks map[int64]*sync.Mutex
}

func New(schedules *store.ScheduleStore, timers *store.CueTimerStore, subs *store.SubCueTimerStore, hub *websocket.Hub, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		schedules:  schedules,
		timers:     timers,
		subs:       subs,
		hub:        hub,
		logger:     logger,
		now:        time.Now,
		eventLocks: make(map[int64]*sync.Mutex),
	}
}

// SetNow overrides the dispatcher's clock. Tests pin transition instants
// with it; production code leaves the default.
func (d *Dispatcher) SetNow(now func() time.Time) {
	d.now = now
}

// Execute runs one operation for the session and returns its acknowledgement
// or a taxonomy error. Failures are reported, never redirected to a best
// guess.
func (d *Dispatcher) Execute(sess *Session, op command.Op) (*Ack, error) {
	start := time.Now()
	ack, err := d.execute(sess, op)
	metrics.DispatchDuration.Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
		d.logger.Warn("command failed", "op", op.Kind.String(), "error", err)
	} else {
		d.logger.Debug("command ok", "op", op.Kind.String(), "ack", ack.Address)
	}
	metrics.CommandsTotal.WithLabelValues(op.Kind.String(), outcome).Inc()
	return ack, err
}

func (d *Dispatcher) execute(sess *Session, op command.Op) (*Ack, error) {
	if op.Kind == command.KindLoadEvent {
		unlock := d.lockEvent(op.EventID)
		defer unlock()
		return d.loadEvent(sess, op.EventID)
	}

	dir := sess.Directory()
	if dir == nil {
		return nil, ErrNoEventLoaded
	}
	eventID := dir.EventID()
	unlock := d.lockEvent(eventID)
	defer unlock()

	switch op.Kind {
	case command.KindLoadCue:
		return d.loadCue(dir, op.Token)
	case command.KindStartMain:
		return d.startMain(dir)
	case command.KindStopMain:
		return d.stopMain(eventID)
	case command.KindResetMain:
		return d.resetMain(dir)
	case command.KindStartSub:
		return d.startSub(dir, op.Token)
	case command.KindStopSub:
		return d.stopSub(dir, op.Token)
	case command.KindStatus:
		return d.statusAck(eventID)
	case command.KindCueList:
		return d.cueList(dir)
	}
	return nil, &command.UnknownError{Address: op.Kind.String()}
}

// lockEvent serializes command processing per event.
func (d *Dispatcher) lockEvent(eventID int64) func() {
	d.mu.Lock()
	m, ok := d.eventLocks[eventID]
	if !ok {
		m = &sync.Mutex{}
		d.eventLocks[eventID] = m
	}
	d.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func (d *Dispatcher) loadEvent(sess *Session, eventID int64) (*Ack, error) {
	items, err := d.schedules.ListByEvent(eventID)
	if err != nil {
		return nil, storeErr("load event", err)
	}

	dir := cue.NewDirectory(eventID, items)

	// A restarted process picks the active slot back up from the store so
	// generic start/stop keep working across restarts.
	if active, err := d.timers.GetActive(eventID); err == nil && active != nil {
		dir.SetActive(active.ItemID)
	}

	sess.SetDirectory(dir)
	d.broadcast(websocket.NewMessage("event", "loaded", eventID, 0, map[string]any{
		"item_count": len(items),
	}))
	return &Ack{
		Address: "/event/loaded",
		EventID: eventID,
		Args:    []command.Arg{command.Int(int64(len(items)))},
	}, nil
}

func (d *Dispatcher) loadCue(dir *cue.Directory, token string) (*Ack, error) {
	item, err := dir.Resolve(token)
	if err != nil {
		return nil, err
	}
	eventID := dir.EventID()

	t, err := d.timers.LoadCue(eventID, item.ID, 0, item.DurationSeconds, d.now())
	if err != nil {
		return nil, storeErr("load cue", err)
	}

	// Sub-cue timers attached to an item other than the newly loaded one are
	// cleared: a sub-timer must never keep counting against a cue that is no
	// longer live. Re-loading the live item keeps its own sub-timer alive.
	if err := d.subs.ClearExcept(eventID, item.ID); err != nil {
		return nil, storeErr("clear sub timers", err)
	}

	dir.SetActive(item.ID)
	d.broadcast(websocket.NewMessage("cue", "loaded", eventID, item.ID, map[string]any{
		"cue_label":        item.CueLabel,
		"duration_seconds": t.DurationSeconds,
	}))
	return &Ack{
		Address: "/cue/loaded",
		EventID: eventID,
		ItemID:  item.ID,
		Args:    []command.Arg{command.String(token), command.Int(item.ID)},
	}, nil
}

func (d *Dispatcher) startMain(dir *cue.Directory) (*Ack, error) {
	active := dir.ActiveItem()
	if active == nil {
		return nil, fmt.Errorf("start: %w", ErrNoActiveItem)
	}
	eventID := dir.EventID()

	t, err := d.timers.Start(eventID, active.ID, d.now())
	if err != nil {
		return nil, storeErr("start timer", err)
	}
	if t == nil {
		// The loaded row vanished underneath us (e.g. a concurrent reset).
		dir.SetActive(0)
		return nil, fmt.Errorf("start: %w", ErrNoActiveItem)
	}

	d.broadcast(websocket.NewMessage("timer", "started", eventID, t.ItemID, map[string]any{
		"duration_seconds": t.DurationSeconds,
		"started_at":       t.StartedAt,
	}))
	return &Ack{
		Address: "/timer/started",
		EventID: eventID,
		ItemID:  t.ItemID,
		Args:    []command.Arg{command.Int(t.ItemID), command.Int(int64(t.DurationSeconds))},
	}, nil
}

func (d *Dispatcher) stopMain(eventID int64) (*Ack, error) {
	t, err := d.timers.Stop(eventID, d.now())
	if err != nil {
		return nil, storeErr("stop timer", err)
	}
	if t == nil {
		return nil, fmt.Errorf("stop: %w", ErrNoActiveItem)
	}

	d.broadcast(websocket.NewMessage("timer", "stopped", eventID, t.ItemID, map[string]any{
		"remaining_seconds": t.DurationSeconds,
	}))
	return &Ack{
		Address: "/timer/stopped",
		EventID: eventID,
		ItemID:  t.ItemID,
		Args:    []command.Arg{command.Int(t.ItemID), command.Int(int64(t.DurationSeconds))},
	}, nil
}

func (d *Dispatcher) resetMain(dir *cue.Directory) (*Ack, error) {
	eventID := dir.EventID()

	ok, err := d.timers.ResetActive(eventID)
	if err != nil {
		return nil, storeErr("reset timer", err)
	}
	if !ok {
		// Nothing active: wide panic reset, every timer row for the event.
		if err := d.timers.ResetAll(eventID); err != nil {
			return nil, storeErr("reset all timers", err)
		}
		if err := d.subs.ClearAll(eventID); err != nil {
			return nil, storeErr("reset sub timers", err)
		}
	}

	dir.SetActive(0)
	d.broadcast(websocket.NewMessage("timer", "reset", eventID, 0, nil))
	return &Ack{Address: "/timer/reset", EventID: eventID}, nil
}

func (d *Dispatcher) startSub(dir *cue.Directory, token string) (*Ack, error) {
	item, err := dir.ResolveSub(token)
	if err != nil {
		return nil, err
	}
	eventID := dir.EventID()

	var timerID int64
	if active := dir.ActiveItem(); active != nil {
		timerID = active.ID
	}

	t, err := d.subs.Start(item, timerID, 0, d.now())
	if err != nil {
		return nil, storeErr("start sub timer", err)
	}

	d.broadcast(websocket.NewMessage("subtimer", "started", eventID, item.ID, map[string]any{
		"cue_label":        t.CueIs,
		"duration_seconds": t.DurationSeconds,
		"started_at":       t.StartedAt,
	}))
	return &Ack{
		Address: "/subtimer/started",
		EventID: eventID,
		ItemID:  item.ID,
		Args:    []command.Arg{command.String(token), command.Int(item.ID)},
	}, nil
}

func (d *Dispatcher) stopSub(dir *cue.Directory, token string) (*Ack, error) {
	item, err := dir.ResolveSub(token)
	if err != nil {
		return nil, err
	}
	eventID := dir.EventID()

	t, err := d.subs.Stop(eventID, item.ID, d.now())
	if err != nil {
		return nil, storeErr("stop sub timer", err)
	}
	if t == nil {
		return nil, fmt.Errorf("no sub-cue timer for %q: %w", token, ErrNoActiveItem)
	}

	d.broadcast(websocket.NewMessage("subtimer", "stopped", eventID, item.ID, map[string]any{
		"remaining_seconds": t.RemainingSeconds,
	}))
	return &Ack{
		Address: "/subtimer/stopped",
		EventID: eventID,
		ItemID:  item.ID,
		Args:    []command.Arg{command.String(token), command.Int(int64(t.RemainingSeconds))},
	}, nil
}

// Status assembles the authoritative read-only state for an event. It is the
// single fetch point for display clients (HTTP and in-process alike).
func (d *Dispatcher) Status(eventID int64) (*StatusReport, error) {
	main, err := d.timers.GetActive(eventID)
	if err != nil {
		return nil, storeErr("status main", err)
	}
	subs, err := d.subs.ListByEvent(eventID)
	if err != nil {
		return nil, storeErr("status subs", err)
	}

	report := &StatusReport{EventID: eventID, Main: main, Subs: subs}
	if main != nil {
		remaining := main.Remaining(d.now())
		report.MainRemaining = &remaining
		if item, err := d.schedules.GetByID(main.ItemID); err == nil && item != nil {
			report.ActiveLabel = item.CueLabel
		}
	}
	return report, nil
}

func (d *Dispatcher) statusAck(eventID int64) (*Ack, error) {
	report, err := d.Status(eventID)
	if err != nil {
		return nil, err
	}

	ack := &Ack{Address: "/status", EventID: eventID}
	if report.Main == nil {
		ack.Args = []command.Arg{command.String("none")}
		return ack, nil
	}
	running := int64(0)
	if report.Main.IsRunning {
		running = 1
	}
	ack.ItemID = report.Main.ItemID
	ack.Args = []command.Arg{
		command.Int(report.Main.ItemID),
		command.Int(int64(*report.MainRemaining)),
		command.Int(running),
	}
	return ack, nil
}

func (d *Dispatcher) cueList(dir *cue.Directory) (*Ack, error) {
	items := dir.Items()
	args := make([]command.Arg, 0, len(items))
	for _, it := range items {
		label := it.CueLabel
		if label == "" {
			label = strconv.FormatInt(it.ID, 10)
		}
		args = append(args, command.String(label))
	}
	return &Ack{Address: "/cues", EventID: dir.EventID(), Args: args}, nil
}

func (d *Dispatcher) broadcast(msg websocket.Message) {
	if d.hub != nil {
		d.hub.Broadcast(msg)
	}
}
