package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rfoster/cuecall/internal/command"
	"github.com/rfoster/cuecall/internal/cue"
	"github.com/rfoster/cuecall/internal/dispatch"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errStatus(err), map[string]string{"error": err.Error()})
}

// errStatus maps the command error taxonomy onto HTTP statuses. Unknown and
// malformed commands are the caller's fault; missing cues are 404; state
// preconditions are conflicts; store trouble is retryable 503.
func errStatus(err error) int {
	var (
		unknown   *command.UnknownError
		malformed *command.MalformedError
		notFound  *cue.NotFoundError
		storeErr  *dispatch.StoreUnavailableError
	)
	switch {
	case errors.As(err, &unknown), errors.As(err, &malformed):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.Is(err, dispatch.ErrNoEventLoaded), errors.Is(err, dispatch.ErrNoActiveItem):
		return http.StatusConflict
	case errors.As(err, &storeErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ackResponse is the JSON rendering of a wire acknowledgement.
type ackResponse struct {
	Ack     string   `json:"ack"`
	EventID int64    `json:"event_id"`
	ItemID  int64    `json:"item_id,omitempty"`
	Args    []string `json:"args,omitempty"`
}

func toAckResponse(ack *dispatch.Ack) ackResponse {
	resp := ackResponse{Ack: ack.Address, EventID: ack.EventID, ItemID: ack.ItemID}
	for _, a := range ack.Args {
		resp.Args = append(resp.Args, a.AsString())
	}
	return resp
}
