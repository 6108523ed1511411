package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"emberhollow/client/internal/session"
	"emberhollow/client/internal/update"
)

// Client talks to the remote session authority over HTTP. It implements
// update.Authority: a version mismatch comes back as a conflict result
// carrying the authority's current session, never as an error; only
// transport-level failures error out.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type updateRequest struct {
	ExpectedVersion int64         `json:"expectedVersion"`
	Ops             session.Patch `json:"ops"`
}

type sessionEnvelope struct {
	Session *session.Session `json:"session"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// UpdateSession sends the patch with the caller's expected version. HTTP 409
// is the authority's version-check rejection and decodes into a conflict
// result; any other non-200 status is a transport error.
func (c *Client) UpdateSession(ctx context.Context, id string, expectedVersion int64, patch session.Patch) (update.Result, error) {
	body, err := json.Marshal(updateRequest{ExpectedVersion: expectedVersion, Ops: patch})
	if err != nil {
		return update.Result{}, fmt.Errorf("encode update request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(id), body)
	if err != nil {
		return update.Result{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var envelope sessionEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return update.Result{}, fmt.Errorf("decode update response: %w", err)
		}
		if envelope.Session == nil {
			return update.Result{}, fmt.Errorf("update response missing session")
		}
		return update.Result{Session: envelope.Session}, nil
	case http.StatusConflict:
		var envelope sessionEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return update.Result{}, fmt.Errorf("decode conflict response: %w", err)
		}
		if envelope.Session == nil {
			return update.Result{}, fmt.Errorf("conflict response missing server session")
		}
		return update.Result{Conflict: true, ServerSession: envelope.Session}, nil
	default:
		return update.Result{}, statusError("update session", resp)
	}
}

// FetchSession loads the authoritative session by id.
func (c *Client) FetchSession(ctx context.Context, id string) (*session.Session, error) {
	resp, err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("fetch session", resp)
	}
	var envelope sessionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if envelope.Session == nil {
		return nil, fmt.Errorf("session response missing session")
	}
	return envelope.Session, nil
}

// World is the authority's world snapshot.
type World struct {
	WorldTime int64  `json:"worldTime"`
	Location  string `json:"location,omitempty"`
}

// GetWorld reads the authority's world clock.
func (c *Client) GetWorld(ctx context.Context) (World, error) {
	resp, err := c.do(ctx, http.MethodGet, "/world", nil)
	if err != nil {
		return World{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return World{}, statusError("get world", resp)
	}
	var world World
	if err := json.NewDecoder(resp.Body).Decode(&world); err != nil {
		return World{}, fmt.Errorf("decode world: %w", err)
	}
	return world, nil
}

// AdvanceWorldTime asks the authority to move the world clock forward.
func (c *Client) AdvanceWorldTime(ctx context.Context, minutes int64) (World, error) {
	body, err := json.Marshal(map[string]int64{"minutes": minutes})
	if err != nil {
		return World{}, fmt.Errorf("encode advance request: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/world/advance", body)
	if err != nil {
		return World{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return World{}, statusError("advance world time", resp)
	}
	var world World
	if err := json.NewDecoder(resp.Body).Decode(&world); err != nil {
		return World{}, fmt.Errorf("decode world: %w", err)
	}
	return world, nil
}

// RemoteInteraction describes an interaction the authority knows about.
type RemoteInteraction struct {
	ID     string `json:"id"`
	UIMode string `json:"uiMode,omitempty"`
}

// ListInteractions fetches the authority's interaction catalog.
func (c *Client) ListInteractions(ctx context.Context) ([]RemoteInteraction, error) {
	resp, err := c.do(ctx, http.MethodGet, "/interactions", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("list interactions", resp)
	}
	var out []RemoteInteraction
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode interactions: %w", err)
	}
	return out, nil
}

// ExecuteInteraction runs a server-side interaction and returns its raw data.
func (c *Client) ExecuteInteraction(ctx context.Context, id string, payload map[string]any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode interaction payload: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/interactions/"+url.PathEscape(id), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("execute interaction", resp)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode interaction result: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func statusError(op string, resp *http.Response) error {
	var envelope errorEnvelope
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error != "" {
		return fmt.Errorf("%s: %s (status %d)", op, envelope.Error, resp.StatusCode)
	}
	return fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
}
