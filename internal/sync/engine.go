// Package sync keeps a display client's countdown aligned with the
// authoritative timer store. Each client runs one engine: a fast local tick
// renders a jitter-free countdown from the last-known (startedAt, duration)
// pair, and a slow resync re-fetches authoritative state and hard re-anchors
// when it changed. Because elapsed time is derived from a timestamp rather
// than accumulated, a re-anchor never compounds error; at worst it causes
// one visible jump bounded by clock skew plus network latency.
package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rfoster/cuecall/internal/metrics"
	"github.com/rfoster/cuecall/internal/model"
)

const (
	defaultTickInterval     = time.Second
	defaultResyncInterval   = time.Second
	defaultForceResyncAfter = 30 * time.Second
)

// Config controls one display client's engine.
type Config struct {
	EventID  int64
	ClientID string // assigned a fresh uuid when empty

	TickInterval     time.Duration // local render cadence
	ResyncInterval   time.Duration // authoritative poll cadence
	ForceResyncAfter time.Duration // re-anchor running timers at least this often
}

// TimerDisplay is one rendered countdown.
type TimerDisplay struct {
	ItemID    int64  `json:"item_id"`
	CueLabel  string `json:"cue_label,omitempty"`
	Total     int    `json:"total_seconds"`
	Remaining int    `json:"remaining_seconds"`
	Running   bool   `json:"running"`
	Overtime  bool   `json:"overtime"`
}

// Display is what the engine hands the renderer on every tick. It also
// doubles as the frame pushed to websocket displays, hence the json tags.
type Display struct {
	ClientID     string         `json:"client_id"`
	EventID      int64          `json:"event_id"`
	At           time.Time      `json:"at"`
	Main         *TimerDisplay  `json:"main"`
	Subs         []TimerDisplay `json:"subs,omitempty"`
	StaleResyncs int            `json:"stale_resyncs"` // consecutive failed resyncs, for an operator-visible warning
}

// anchor is the client-held snapshot of one authoritative timer: the
// (startedAt, total) pair plus the local instant it was synced at. It is
// rebuilt, never adjusted, on every successful resync.
type anchor struct {
	itemID    int64
	timerID   int64 // main item live when a sub started; zero for the main anchor
	label     string
	total     int
	startedAt time.Time
	running   bool
	syncedAt  time.Time // local clock
}

func (a *anchor) remaining(now time.Time) int {
	if !a.running {
		return a.total
	}
	elapsed := int(now.Sub(a.startedAt) / time.Second)
	return a.total - elapsed
}

// Engine is one display client's sync loop. Engines are fully independent:
// no shared state, no cross-client coordination.
type Engine struct {
	cfg      Config
	fetcher  Fetcher
	clock    Clock
	logger   *slog.Logger
	onUpdate func(Display)

	main         *anchor
	subs         map[int64]*anchor
	staleResyncs int
}

// New creates an engine. onUpdate is called with a fresh Display on every
// tick and after every successful resync; it must not block.
func New(cfg Config, fetcher Fetcher, onUpdate func(Display), logger *slog.Logger) *Engine {
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.ResyncInterval <= 0 {
		cfg.ResyncInterval = defaultResyncInterval
	}
	if cfg.ForceResyncAfter <= 0 {
		cfg.ForceResyncAfter = defaultForceResyncAfter
	}
	return &Engine{
		cfg:      cfg,
		fetcher:  fetcher,
		clock:    SystemClock{},
		logger:   logger.With("client_id", cfg.ClientID),
		onUpdate: onUpdate,
		subs:     make(map[int64]*anchor),
	}
}

// SetClock overrides the local clock for tests.
func (e *Engine) SetClock(c Clock) {
	e.clock = c
}

// Run drives the tick and resync cadences until the context is cancelled.
// One goroutine owns both tickers, so disconnect tears everything down
// together and no timer can leak.
func (e *Engine) Run(ctx context.Context) {
	tick := time.NewTicker(e.cfg.TickInterval)
	defer tick.Stop()
	resync := time.NewTicker(e.cfg.ResyncInterval)
	defer resync.Stop()

	e.resync(ctx)
	e.tick()

	for {
		select {
		case <-tick.C:
			e.tick()
		case <-resync.C:
			e.resync(ctx)
		case <-ctx.Done():
			e.logger.Debug("sync engine stopped")
			return
		}
	}
}

// tick renders the current display from held anchors. Purely local: no
// network, no stored counters, just now - startedAt.
func (e *Engine) tick() {
	now := e.clock.Now()
	d := Display{
		ClientID:     e.cfg.ClientID,
		EventID:      e.cfg.EventID,
		At:           now,
		StaleResyncs: e.staleResyncs,
	}

	if e.main != nil {
		remaining := e.main.remaining(now)
		d.Main = &TimerDisplay{
			ItemID:    e.main.itemID,
			CueLabel:  e.main.label,
			Total:     e.main.total,
			Remaining: remaining,
			Running:   e.main.running,
			Overtime:  remaining < 0,
		}
	}

	for _, a := range e.subs {
		remaining := a.remaining(now)
		// An expired sub-cue is finished from the viewer's perspective even
		// while its authoritative row lingers until explicitly stopped.
		if a.running && remaining <= 0 {
			continue
		}
		d.Subs = append(d.Subs, TimerDisplay{
			ItemID:    a.itemID,
			CueLabel:  a.label,
			Total:     a.total,
			Remaining: remaining,
			Running:   a.running,
			Overtime:  false,
		})
	}

	e.onUpdate(d)
}

// resync fetches authoritative state and re-anchors. A failed fetch is a
// stale resync: the engine keeps ticking from its last anchors and recovers
// on the next success, with error bounded by real latency rather than by the
// number of misses.
func (e *Engine) resync(ctx context.Context) {
	report, err := e.fetcher.Fetch(ctx, e.cfg.EventID)
	if err != nil {
		e.staleResyncs++
		metrics.ResyncsTotal.WithLabelValues("stale").Inc()
		e.logger.Debug("resync failed", "consecutive", e.staleResyncs, "error", err)
		return
	}
	metrics.ResyncsTotal.WithLabelValues("ok").Inc()
	e.staleResyncs = 0

	now := e.clock.Now()
	e.applyMain(report.Main, report.ActiveLabel, now)
	e.applySubs(report.Subs, now)
	e.tick()
}

func (e *Engine) applyMain(main *model.CueTimer, label string, now time.Time) {
	if main == nil {
		if e.main != nil {
			e.clearSubsForItem(e.main.itemID)
		}
		e.main = nil
		return
	}

	startedAt := time.Time{}
	if main.StartedAt != nil {
		startedAt = *main.StartedAt
	}

	if e.main != nil {
		cueChanged := e.main.itemID != main.ItemID || !e.main.startedAt.Equal(startedAt)
		stateChanged := cueChanged || e.main.running != main.IsRunning || e.main.total != main.DurationSeconds
		forced := main.IsRunning && now.Sub(e.main.syncedAt) >= e.cfg.ForceResyncAfter

		if cueChanged {
			// The live cue moved (or was restarted): sub-cue display state
			// tied to the old item must not keep counting.
			e.clearSubsForItem(e.main.itemID)
		}
		if !stateChanged && !forced {
			return
		}
	}

	e.main = &anchor{
		itemID:    main.ItemID,
		label:     label,
		total:     main.DurationSeconds,
		startedAt: startedAt,
		running:   main.IsRunning,
		syncedAt:  now,
	}
}

func (e *Engine) applySubs(subs []model.SubCueTimer, now time.Time) {
	seen := make(map[int64]struct{}, len(subs))
	for i := range subs {
		sub := &subs[i]
		seen[sub.ItemID] = struct{}{}

		startedAt := time.Time{}
		if sub.StartedAt != nil {
			startedAt = *sub.StartedAt
		}

		held, ok := e.subs[sub.ItemID]
		if ok && held.startedAt.Equal(startedAt) && held.running == sub.IsRunning && held.total == sub.DurationSeconds {
			continue
		}
		e.subs[sub.ItemID] = &anchor{
			itemID:    sub.ItemID,
			timerID:   sub.TimerID,
			label:     sub.CueIs,
			total:     sub.DurationSeconds,
			startedAt: startedAt,
			running:   sub.IsRunning,
			syncedAt:  now,
		}
	}

	// Rows gone from the authoritative list were stopped or cleared.
	for id := range e.subs {
		if _, ok := seen[id]; !ok {
			delete(e.subs, id)
		}
	}
}

// clearSubsForItem drops held sub anchors that were started against the
// given main item.
func (e *Engine) clearSubsForItem(oldItemID int64) {
	for id, a := range e.subs {
		if a.timerID == oldItemID {
			delete(e.subs, id)
		}
	}
}
