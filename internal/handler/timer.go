// Package handler is the HTTP fallback for thicker control clients. Every
// request is normalized into the same command grammar the UDP wire uses, so
// both transports drive one state machine.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/rfoster/cuecall/internal/command"
	"github.com/rfoster/cuecall/internal/dispatch"
)

type TimerHandler struct {
	dispatcher *dispatch.Dispatcher
	sessions   *dispatch.SessionRegistry
	logger     *slog.Logger
}

func NewTimerHandler(d *dispatch.Dispatcher, logger *slog.Logger) *TimerHandler {
	return &TimerHandler{
		dispatcher: d,
		sessions:   dispatch.NewSessionRegistry(),
		logger:     logger,
	}
}

type timerRequest struct {
	EventID int64  `json:"event_id"`
	Cue     string `json:"cue"`
	ItemID  int64  `json:"item_id"`
}

func (h *TimerHandler) decode(w http.ResponseWriter, r *http.Request) (*timerRequest, bool) {
	var req timerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return nil, false
	}
	if req.EventID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "event_id is required"})
		return nil, false
	}
	return &req, true
}

// token picks the cue token from a request; an explicit item id works as a
// token because the directory resolves raw ids.
func (req *timerRequest) token() string {
	if req.Cue != "" {
		return strings.TrimSpace(req.Cue)
	}
	if req.ItemID > 0 {
		return strconv.FormatInt(req.ItemID, 10)
	}
	return ""
}

// session returns the command session for an event, loading the event's
// snapshot on first use. HTTP clients name their event on every request, so
// there is no "no event loaded" race here; re-loading is explicit via
// LoadEvent.
func (h *TimerHandler) session(eventID int64) (*dispatch.Session, error) {
	sess := h.sessions.Get("event:" + strconv.FormatInt(eventID, 10))
	if sess.EventID() != eventID {
		op, err := command.Parse("set-event", []command.Arg{command.Int(eventID)})
		if err != nil {
			return nil, err
		}
		if _, err := h.dispatcher.Execute(sess, op); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

func (h *TimerHandler) run(w http.ResponseWriter, eventID int64, address string, args ...command.Arg) {
	op, err := command.Parse(address, args)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.session(eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	ack, err := h.dispatcher.Execute(sess, op)
	if err != nil {
		h.logger.Warn("command failed", "address", address, "event_id", eventID, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAckResponse(ack))
}

// LoadEvent handles POST /api/events/load.
func (h *TimerHandler) LoadEvent(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	sess := h.sessions.Get("event:" + strconv.FormatInt(req.EventID, 10))
	op, err := command.Parse("set-event", []command.Arg{command.Int(req.EventID)})
	if err != nil {
		writeError(w, err)
		return
	}
	ack, err := h.dispatcher.Execute(sess, op)
	if err != nil {
		h.logger.Warn("event load failed", "event_id", req.EventID, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAckResponse(ack))
}

// LoadCue handles POST /api/cues/load.
func (h *TimerHandler) LoadCue(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	token := req.token()
	if token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cue or item_id is required"})
		return
	}
	h.run(w, req.EventID, "cue/load", command.String(token))
}

// StartTimer handles POST /api/timers/start.
func (h *TimerHandler) StartTimer(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.run(w, req.EventID, "timer/start")
}

// StopTimer handles POST /api/timers/stop.
func (h *TimerHandler) StopTimer(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.run(w, req.EventID, "timer/stop")
}

// ResetTimer handles POST /api/timers/reset.
func (h *TimerHandler) ResetTimer(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.run(w, req.EventID, "timer/reset")
}

// StartSub handles POST /api/subtimers/start.
func (h *TimerHandler) StartSub(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	token := req.token()
	if token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cue or item_id is required"})
		return
	}
	h.run(w, req.EventID, "subtimer/start", command.String(token))
}

// StopSub handles POST /api/subtimers/stop.
func (h *TimerHandler) StopSub(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	token := req.token()
	if token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cue or item_id is required"})
		return
	}
	h.run(w, req.EventID, "subtimer/stop", command.String(token))
}

// Status handles GET /api/status. Display clients poll this; the report
// carries raw started_at instants so clients derive elapsed time themselves.
func (h *TimerHandler) Status(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(r.URL.Query().Get("event_id"), 10, 64)
	if err != nil || eventID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "event_id is required"})
		return
	}
	report, err := h.dispatcher.Status(eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// CueList handles GET /api/cues.
func (h *TimerHandler) CueList(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(r.URL.Query().Get("event_id"), 10, 64)
	if err != nil || eventID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "event_id is required"})
		return
	}
	op, err := command.Parse("list-cues", nil)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.session(eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	ack, err := h.dispatcher.Execute(sess, op)
	if err != nil {
		writeError(w, err)
		return
	}
	cues := make([]string, 0, len(ack.Args))
	for _, a := range ack.Args {
		cues = append(cues, a.AsString())
	}
	writeJSON(w, http.StatusOK, map[string]any{"event_id": eventID, "cues": cues})
}
