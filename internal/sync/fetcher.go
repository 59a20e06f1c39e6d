package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rfoster/cuecall/internal/dispatch"
)

// Fetcher retrieves the authoritative timer state for an event. Display
// clients embedded in the server process fetch straight from the dispatcher;
// remote displays fetch over the HTTP fallback. Either way the engine only
// reads, never writes.
type Fetcher interface {
	Fetch(ctx context.Context, eventID int64) (*dispatch.StatusReport, error)
}

// DispatcherFetcher serves in-process displays from the shared dispatcher.
type DispatcherFetcher struct {
	d *dispatch.Dispatcher
}

func NewDispatcherFetcher(d *dispatch.Dispatcher) *DispatcherFetcher {
	return &DispatcherFetcher{d: d}
}

func (f *DispatcherFetcher) Fetch(_ context.Context, eventID int64) (*dispatch.StatusReport, error) {
	return f.d.Status(eventID)
}

// HTTPFetcher serves remote displays from GET /api/status.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

func NewHTTPFetcher(baseURL string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{baseURL: baseURL, client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, eventID int64) (*dispatch.StatusReport, error) {
	url := f.baseURL + "/api/status?event_id=" + strconv.FormatInt(eventID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch status: unexpected status %d", resp.StatusCode)
	}

	var report dispatch.StatusReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &report, nil
}
