package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hanksha/camping-booking-backend/aggregate"
	"github.com/hanksha/camping-booking-backend/booking"
)

// LocalSource builds snapshots in process from the booking store.
type LocalSource struct {
	src      aggregate.Source
	pageSize int
	now      func() time.Time
}

func NewLocalSource(src aggregate.Source, pageSize int) *LocalSource {
	return &LocalSource{src: src, pageSize: pageSize, now: time.Now}
}

func (s *LocalSource) Fetch(ctx context.Context) (Snapshot, error) {
	serverTime := s.now()
	view := aggregate.Fetch(ctx, s.src, booking.ListFilter{}, booking.Page{Number: 1, Size: s.pageSize})

	return Snapshot{View: view, ServerTime: serverTime}, nil
}

const SnapshotPath = "/api/v1/dashboard/snapshot"

// HTTPSource pulls snapshots from another instance's dashboard endpoint.
type HTTPSource struct {
	endpoint    string
	accessToken string
	client      *http.Client
}

func NewHTTPSource(baseURL, accessToken string) (*HTTPSource, error) {
	endpoint, err := url.JoinPath(baseURL, SnapshotPath)

	if err != nil {
		return nil, fmt.Errorf("failed to create URL: %w", err)
	}

	return &HTTPSource{
		endpoint:    endpoint,
		accessToken: accessToken,
		client:      &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *HTTPSource) Fetch(ctx context.Context) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, http.NoBody)

	if err != nil {
		return Snapshot{}, fmt.Errorf("failed create new request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if s.accessToken != "" {
		req.Header.Set("accesstoken", s.accessToken)
	}

	res, err := s.client.Do(req)

	if err != nil {
		return Snapshot{}, &booking.NetworkError{Op: "failed to fetch snapshot", Err: err}
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return Snapshot{}, &booking.NetworkError{
			Op:  "failed to fetch snapshot",
			Err: fmt.Errorf("request failed with status '%v' and body:\n%v", res.StatusCode, string(body)),
		}
	}

	var snap Snapshot

	if err := json.NewDecoder(res.Body).Decode(&snap); err != nil {
		return Snapshot{}, &booking.NetworkError{Op: "failed to decode snapshot", Err: err}
	}

	return snap, nil
}
