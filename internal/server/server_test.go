package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/rfoster/cuecall/internal/command"
	"github.com/rfoster/cuecall/internal/config"
	"github.com/rfoster/cuecall/internal/database"
	"github.com/rfoster/cuecall/internal/dispatch"
	"github.com/rfoster/cuecall/internal/sync"
)

func setupServer(t *testing.T) *Server {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(
		`INSERT INTO schedule_items (id, event_id, position, cue_label, duration_seconds) VALUES (42, 1, 1, 'CUE 5', 300)`,
	)
	if err != nil {
		t.Fatalf("seed schedule: %v", err)
	}

	return New(db, config.Default(), slog.Default())
}

func runOp(t *testing.T, srv *Server, sess *dispatch.Session, address string, args ...command.Arg) {
	t.Helper()
	op, err := command.Parse(address, args)
	if err != nil {
		t.Fatalf("parse %q: %v", address, err)
	}
	if _, err := srv.Dispatcher().Execute(sess, op); err != nil {
		t.Fatalf("execute %q: %v", address, err)
	}
}

// A display that names its event on connect gets drift-corrected countdown
// frames pushed to it without issuing a single poll.
func TestWebsocketDisplayReceivesCountdownFrames(t *testing.T) {
	srv := setupServer(t)

	sess := dispatch.NewSession()
	runOp(t, srv, sess, "set-event", command.Int(1))
	runOp(t, srv, sess, "cue/5/load")
	runOp(t, srv, sess, "timer/start")

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, ts.URL+"/ws?event_id=1", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(ws.StatusNormalClosure, "")

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}

	var d sync.Display
	if err := json.Unmarshal(data, &d); err != nil {
		t.Fatalf("unmarshal frame %q: %v", data, err)
	}
	if d.EventID != 1 {
		t.Errorf("event = %d, want 1", d.EventID)
	}
	if d.Main == nil || d.Main.ItemID != 42 || !d.Main.Running {
		t.Fatalf("frame main = %+v, want running item 42", d.Main)
	}
	if d.Main.Remaining > 300 || d.Main.Remaining < 299 {
		t.Errorf("remaining = %d, want ~300", d.Main.Remaining)
	}
	if d.Main.CueLabel != "CUE 5" {
		t.Errorf("label = %q, want %q", d.Main.CueLabel, "CUE 5")
	}
}

// Without an event id the connection is a plain broadcast display: no frames
// until something happens, then hub messages arrive.
func TestWebsocketBroadcastWithoutEventID(t *testing.T) {
	srv := setupServer(t)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, ts.URL+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(ws.StatusNormalClosure, "")

	// Give the hub time to register the client before dispatching.
	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.Hub().ClientCount() == 0 {
		t.Fatal("display never registered with the hub")
	}

	sess := dispatch.NewSession()
	runOp(t, srv, sess, "set-event", command.Int(1))

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal broadcast %q: %v", data, err)
	}
	if msg.Type != "event_loaded" {
		t.Errorf("type = %q, want %q", msg.Type, "event_loaded")
	}
}
