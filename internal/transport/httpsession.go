package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hfdsp/receivercore/internal/protocol"
)

// HTTPSession performs the HTTP negotiation that precedes opening the
// control-plane websocket: a connection admission check and a metadata
// fetch.
type HTTPSession struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSession creates an HTTPSession against baseURL (scheme http/https).
func NewHTTPSession(baseURL string) *HTTPSession {
	return &HTTPSession{baseURL: baseURL, client: http.DefaultClient}
}

// CheckConnection posts the user session ID to /connection and
// interprets the three possible outcomes: 200 ok, 410 terminated, 4xx
// rejected.
func (h *HTTPSession) CheckConnection(ctx context.Context, userSessionID string) (protocol.ConnectionCheckResponse, error) {
	body, err := json.Marshal(protocol.ConnectionCheckRequest{UserSessionID: userSessionID})
	if err != nil {
		return protocol.ConnectionCheckResponse{}, fmt.Errorf("transport: marshal connection check: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/connection", bytes.NewReader(body))
	if err != nil {
		return protocol.ConnectionCheckResponse{}, fmt.Errorf("transport: build connection check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return protocol.ConnectionCheckResponse{}, fmt.Errorf("transport: connection check: %w", err)
	}
	defer resp.Body.Close()

	var out protocol.ConnectionCheckResponse
	out.HTTPStatus = resp.StatusCode
	_ = json.NewDecoder(resp.Body).Decode(&out)

	switch {
	case resp.StatusCode == http.StatusOK:
		out.Allowed = true
	case resp.StatusCode == http.StatusGone:
		out.Allowed = false
		if out.Reason == "" {
			out.Reason = "session terminated"
		}
	default:
		out.Allowed = false
		if out.Reason == "" {
			out.Reason = fmt.Sprintf("rejected: %d", resp.StatusCode)
		}
	}
	return out, nil
}

// Description fetches receiver metadata from /api/description.
func (h *HTTPSession) Description(ctx context.Context) (protocol.InstanceDescription, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/api/description", nil)
	if err != nil {
		return protocol.InstanceDescription{}, fmt.Errorf("transport: build description request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return protocol.InstanceDescription{}, fmt.Errorf("transport: fetch description: %w", err)
	}
	defer resp.Body.Close()

	var desc protocol.InstanceDescription
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return protocol.InstanceDescription{}, fmt.Errorf("transport: decode description: %w", err)
	}
	return desc, nil
}

// ControlPlaneURL builds the /ws upgrade URL carrying frequency, mode, and
// user_session_id query parameters.
func ControlPlaneURL(baseURL string, frequency int, mode protocol.Mode, userSessionID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("transport: parse base URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"

	q := u.Query()
	q.Set("frequency", fmt.Sprintf("%d", frequency))
	q.Set("mode", string(mode))
	q.Set("user_session_id", userSessionID)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
