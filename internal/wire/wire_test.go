package wire

import (
	"database/sql"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rfoster/cuecall/internal/command"
	"github.com/rfoster/cuecall/internal/database"
	"github.com/rfoster/cuecall/internal/dispatch"
	"github.com/rfoster/cuecall/internal/store"
)

func TestParseDatagram(t *testing.T) {
	addr, args := parseDatagram([]byte("cue/load 5"))
	if addr != "cue/load" {
		t.Errorf("address = %q, want %q", addr, "cue/load")
	}
	if len(args) != 1 || args[0] != command.Int(5) {
		t.Errorf("args = %+v, want [Int(5)]", args)
	}

	addr, args = parseDatagram([]byte("  timer/start  "))
	if addr != "timer/start" || len(args) != 0 {
		t.Errorf("got (%q, %+v), want (timer/start, [])", addr, args)
	}

	addr, args = parseDatagram([]byte(""))
	if addr != "" || args != nil {
		t.Errorf("got (%q, %+v) for empty datagram", addr, args)
	}
}

func TestFormatAck(t *testing.T) {
	ack := &dispatch.Ack{
		Address: "/timer/started",
		Args:    []command.Arg{command.Int(42), command.Int(120)},
	}
	if got := string(formatAck(ack)); got != "/timer/started 42 120" {
		t.Errorf("formatted ack = %q", got)
	}

	bare := &dispatch.Ack{Address: "/timer/reset"}
	if got := string(formatAck(bare)); got != "/timer/reset" {
		t.Errorf("formatted ack = %q", got)
	}
}

func setupWireServer(t *testing.T) *Server {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	seedWireSchedule(t, db)

	d := dispatch.New(
		store.NewScheduleStore(db),
		store.NewCueTimerStore(db),
		store.NewSubCueTimerStore(db),
		nil,
		slog.Default(),
	)
	d.SetNow(func() time.Time { return time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC) })
	return NewServer("127.0.0.1:0", d, slog.Default())
}

func seedWireSchedule(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO schedule_items (id, event_id, position, cue_label, duration_seconds) VALUES (42, 1, 1, 'CUE 5', 120)`,
	)
	if err != nil {
		t.Fatalf("seed schedule: %v", err)
	}
}

func TestHandleCommandSequence(t *testing.T) {
	s := setupWireServer(t)
	sender := "10.0.0.5:5000"

	if got := string(s.handle(sender, []byte("set-event 1"))); got != "/event/loaded 1" {
		t.Errorf("set-event response = %q", got)
	}
	if got := string(s.handle(sender, []byte("cue/5/load"))); got != "/cue/loaded 5 42" {
		t.Errorf("load response = %q", got)
	}
	if got := string(s.handle(sender, []byte("timer/start"))); got != "/timer/started 42 120" {
		t.Errorf("start response = %q", got)
	}
	if got := string(s.handle(sender, []byte("timer/stop"))); got != "/timer/stopped 42 120" {
		t.Errorf("stop response = %q", got)
	}
	if got := string(s.handle(sender, []byte("timer/reset"))); got != "/timer/reset" {
		t.Errorf("reset response = %q", got)
	}
}

func TestHandleUnknownAddressEchoesError(t *testing.T) {
	s := setupWireServer(t)

	got := string(s.handle("10.0.0.5:5000", []byte("timer/pause")))
	if !strings.HasPrefix(got, "/error ") {
		t.Fatalf("response = %q, want /error prefix", got)
	}
	if !strings.Contains(got, "unknown command") {
		t.Errorf("response = %q, want unknown command detail", got)
	}
}

func TestHandleCommandBeforeSetEventEchoesError(t *testing.T) {
	s := setupWireServer(t)

	got := string(s.handle("10.0.0.5:5000", []byte("timer/start")))
	if !strings.HasPrefix(got, "/error ") {
		t.Fatalf("response = %q, want /error prefix", got)
	}
	if !strings.Contains(got, "no event loaded") {
		t.Errorf("response = %q, want no-event detail", got)
	}
}

func TestIdleSessionsAreEvicted(t *testing.T) {
	s := setupWireServer(t)
	now := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if got := string(s.handle("10.0.0.5:5000", []byte("set-event 1"))); got != "/event/loaded 1" {
		t.Fatalf("set-event response = %q", got)
	}

	// Another sender arrives after the first has been silent past the
	// timeout; the first sender's session goes away.
	now = now.Add(sessionIdleTimeout + time.Minute)
	s.handle("10.0.0.6:5000", []byte("status"))

	if len(s.lastSeen) != 1 {
		t.Errorf("lastSeen holds %d senders, want 1", len(s.lastSeen))
	}
	got := string(s.handle("10.0.0.5:5000", []byte("timer/start")))
	if !strings.Contains(got, "no event loaded") {
		t.Errorf("response = %q, want no-event error from a fresh session", got)
	}
}

func TestActiveSessionsSurviveEviction(t *testing.T) {
	s := setupWireServer(t)
	now := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if got := string(s.handle("10.0.0.5:5000", []byte("set-event 1"))); got != "/event/loaded 1" {
		t.Fatalf("set-event response = %q", got)
	}

	// Regular traffic inside the window keeps the session alive.
	for i := 0; i < 3; i++ {
		now = now.Add(sessionIdleTimeout / 2)
		s.handle("10.0.0.5:5000", []byte("status"))
	}
	now = now.Add(sessionIdleTimeout / 2)
	if got := string(s.handle("10.0.0.5:5000", []byte("cue/5/load"))); got != "/cue/loaded 5 42" {
		t.Errorf("load response = %q, want loaded ack from the surviving session", got)
	}
}

func TestHandleSessionsAreIsolatedBySender(t *testing.T) {
	s := setupWireServer(t)

	if got := string(s.handle("10.0.0.5:5000", []byte("set-event 1"))); got != "/event/loaded 1" {
		t.Fatalf("set-event response = %q", got)
	}

	// A different sender has no event loaded.
	got := string(s.handle("10.0.0.6:5000", []byte("cue/5/load")))
	if !strings.HasPrefix(got, "/error ") {
		t.Errorf("response = %q, want /error for second sender", got)
	}
}
