// Package roomclient connects a room.Controller to a running server: the
// REST API for spaces and blocks, the translation endpoint, and the
// websocket room.
package roomclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"polyform-sync/internal/domain"
)

const apiPrefix = "/api/v1"

// APIError is a non-2xx reply. Data carries the envelope's detail object,
// e.g. the failing block id of a PATCH.
type APIError struct {
	StatusCode int
	Message    string
	Data       json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server replied %d: %s", e.StatusCode, e.Message)
}

// StatusOf returns the HTTP status of an *APIError anywhere in err's chain,
// or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient talks to the server at baseURL (scheme and host, no path).
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) ListSpaces(ctx context.Context) ([]*domain.Space, error) {
	var spaces []*domain.Space
	if err := c.do(ctx, http.MethodGet, "/spaces", "", nil, &spaces); err != nil {
		return nil, err
	}
	return spaces, nil
}

func (c *Client) CreateSpace(ctx context.Context, req *domain.CreateSpaceRequest) (*domain.SpaceResponse, error) {
	var out domain.SpaceResponse
	if err := c.do(ctx, http.MethodPost, "/spaces", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSpace loads a space with its blocks and a room ticket. mode and token
// come from a share link and may be empty.
func (c *Client) GetSpace(ctx context.Context, spaceID, mode, token string) (*domain.SpaceResponse, error) {
	q := url.Values{}
	if mode != "" {
		q.Set("mode", mode)
	}
	if token != "" {
		q.Set("token", token)
	}
	path := "/spaces/" + url.PathEscape(spaceID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out domain.SpaceResponse
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSpace(ctx context.Context, spaceID string, req *domain.UpdateSpaceRequest) (*domain.Space, error) {
	var out domain.Space
	if err := c.do(ctx, http.MethodPatch, "/spaces/"+url.PathEscape(spaceID), "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSpace(ctx context.Context, spaceID string) error {
	return c.do(ctx, http.MethodDelete, "/spaces/"+url.PathEscape(spaceID), "", nil, nil)
}

func (c *Client) CreateShareLink(ctx context.Context, spaceID string, mode domain.ShareMode) (*domain.ShareLinkResponse, error) {
	var out domain.ShareLinkResponse
	body := &domain.CreateShareLinkRequest{Mode: mode}
	if err := c.do(ctx, http.MethodPost, "/spaces/"+url.PathEscape(spaceID)+"/share", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateSnapshot(ctx context.Context, spaceID string) (*domain.CreateSnapshotResponse, error) {
	var out domain.CreateSnapshotResponse
	if err := c.do(ctx, http.MethodPost, "/spaces/"+url.PathEscape(spaceID)+"/snapshot", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSnapshot(ctx context.Context, snapshotID string) (*domain.Snapshot, error) {
	var out domain.Snapshot
	if err := c.do(ctx, http.MethodGet, "/snapshots/"+url.PathEscape(snapshotID), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Languages(ctx context.Context) ([]domain.Language, error) {
	var out []domain.Language
	if err := c.do(ctx, http.MethodGet, "/languages", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PatchBlocks sends field-level block updates. ticket must grant edit access
// to spaceID.
func (c *Client) PatchBlocks(ctx context.Context, spaceID, ticket string, patches []domain.BlockPatch) ([]*domain.Block, error) {
	var out struct {
		Blocks []*domain.Block `json:"blocks"`
	}
	body := &domain.PatchBlocksRequest{Blocks: patches}
	if err := c.do(ctx, http.MethodPatch, "/spaces/"+url.PathEscape(spaceID)+"/blocks", ticket, body, &out); err != nil {
		return nil, err
	}
	return out.Blocks, nil
}

// Translate calls the translation endpoint. It satisfies room.Translator.
func (c *Client) Translate(ctx context.Context, req *domain.TranslateRequest) (*domain.TranslateResponse, error) {
	var out domain.TranslateResponse
	if err := c.do(ctx, http.MethodPost, "/translate", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RoomURL is the websocket address of the room a ticket admits to.
func (c *Client) RoomURL(ticket, sessionID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"ticket": {ticket}, "session_id": {sessionID}}.Encode()
	return u.String(), nil
}

func (c *Client) do(ctx context.Context, method, path, ticket string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ticket != "" {
		req.Header.Set("Authorization", "Bearer "+ticket)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg, Data: env.Data}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", method, path, err)
	}
	return nil
}
