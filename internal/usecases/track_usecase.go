package usecases

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	domainerrors "agency-proxy.backend/internal/domain/errors"
)

const maxTrackResponseBytes = 1 << 20

// TrackResponse is the upstream answer relayed to the caller
type TrackResponse struct {
	Status int
	Body   json.RawMessage
}

// TrackUsecase relays shipment tracking queries to the upstream service
type TrackUsecase struct {
	url    string
	client *http.Client
}

func NewTrackUsecase(url string, timeout time.Duration) *TrackUsecase {
	return &TrackUsecase{url: url, client: &http.Client{Timeout: timeout}}
}

// Track posts body upstream and returns its status and JSON body unchanged
func (u *TrackUsecase) Track(ctx context.Context, body []byte) (*TrackResponse, error) {
	if len(bytes.TrimSpace(body)) == 0 || !json.Valid(body) {
		return nil, domainerrors.BadRequest("request body must be valid JSON")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build track request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(io.LimitReader(resp.Body, maxTrackResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domainerrors.ErrUpstream, err)
	}
	if !json.Valid(out) {
		return nil, fmt.Errorf("%w: upstream returned non-JSON body with status %d", domainerrors.ErrUpstream, resp.StatusCode)
	}
	return &TrackResponse{Status: resp.StatusCode, Body: out}, nil
}
