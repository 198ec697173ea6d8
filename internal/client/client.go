// Package client is a Go client for the Darter Assistant REST API,
// used by CLI tooling and integration tests. Every request carries the
// session id header; non-2xx responses become structured APIErrors.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/adrianmirek/darterassistant-sub002/internal/domain"
	"github.com/adrianmirek/darterassistant-sub002/internal/middleware"
	"github.com/adrianmirek/darterassistant-sub002/internal/service"
)

const defaultTimeout = 15 * time.Second

// APIError mirrors the server's error envelope plus the HTTP status.
type APIError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Status  int             `json:"-"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s (%d): %s", e.Code, e.Status, e.Message)
}

// IsLockConflict reports whether the error is the typed lock-conflict
// outcome of an acquire attempt.
func (e *APIError) IsLockConflict() bool {
	return e.Code == "LOCK_CONFLICT"
}

type Client struct {
	baseURL   string
	sessionID string
	http      *fasthttp.Client
}

func New(baseURL, sessionID string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		sessionID: sessionID,
		http: &fasthttp.Client{
			MaxConnsPerHost: 16,
			ReadTimeout:     defaultTimeout,
			WriteTimeout:    defaultTimeout,
		},
	}
}

func (c *Client) CreateMatch(ctx context.Context, req service.CreateMatchRequest) (*domain.Match, error) {
	var m domain.Match
	if err := c.do(ctx, http.MethodPost, "/matches", req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) GetMatch(ctx context.Context, id uuid.UUID, include ...string) (*domain.Match, error) {
	path := fmt.Sprintf("/matches/%s", id)
	if len(include) > 0 {
		path += "?include=" + strings.Join(include, ",")
	}
	var m domain.Match
	if err := c.do(ctx, http.MethodGet, path, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) UpdateMatch(ctx context.Context, id uuid.UUID, req service.UpdateMatchRequest) (*domain.Match, error) {
	var m domain.Match
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/matches/%s", id), req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) AcquireLock(ctx context.Context, id uuid.UUID, req service.AcquireLockRequest) (*domain.MatchLock, error) {
	var lock domain.MatchLock
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/matches/%s/lock", id), req, &lock); err != nil {
		return nil, err
	}
	return &lock, nil
}

func (c *Client) ExtendLock(ctx context.Context, id uuid.UUID, d time.Duration) (*domain.MatchLock, error) {
	body := map[string]int{"duration_seconds": int(d.Seconds())}
	var lock domain.MatchLock
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/matches/%s/lock", id), body, &lock); err != nil {
		return nil, err
	}
	return &lock, nil
}

func (c *Client) ReleaseLock(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/matches/%s/lock", id), nil, nil)
}

func (c *Client) LockStatus(ctx context.Context, id uuid.UUID) (*service.LockStatus, error) {
	var status service.LockStatus
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/matches/%s/lock", id), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) RecordThrow(ctx context.Context, id uuid.UUID, req service.RecordThrowRequest) (*domain.Throw, error) {
	var t domain.Throw
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/matches/%s/legs/throws", id), req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) RecordThrowBatch(ctx context.Context, id uuid.UUID, reqs []service.RecordThrowRequest) ([]domain.Throw, error) {
	body := map[string][]service.RecordThrowRequest{"throws": reqs}
	var throws []domain.Throw
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/matches/%s/legs/throws/batch", id), body, &throws); err != nil {
		return nil, err
	}
	return throws, nil
}

func (c *Client) CorrectThrow(ctx context.Context, id uuid.UUID, throwID string, score int) (*domain.Throw, error) {
	body := map[string]int{"score": score}
	var t domain.Throw
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/matches/%s/legs/throws/%s", id, throwID), body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) UndoThrow(ctx context.Context, id uuid.UUID, throwID string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/matches/%s/legs/throws/%s", id, throwID), nil, nil)
}

func (c *Client) MatchStats(ctx context.Context, id uuid.UUID, playerNumber int) ([]domain.PlayerStats, error) {
	path := fmt.Sprintf("/matches/%s/stats", id)
	if playerNumber != 0 {
		path += fmt.Sprintf("?player_number=%d", playerNumber)
	}
	var stats []domain.PlayerStats
	if err := c.do(ctx, http.MethodGet, path, nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set(middleware.SessionHeader, c.sessionID)

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.http.DoDeadline(req, resp, deadline); err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
	} else {
		if err := c.http.DoTimeout(req, resp, defaultTimeout); err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
	}

	status := resp.StatusCode()
	if status == http.StatusNoContent {
		return nil
	}
	if status < 200 || status > 299 {
		return parseAPIError(status, resp.Body())
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseAPIError turns an error envelope into an APIError, falling back
// to a generic one when the body is not the expected shape.
func parseAPIError(status int, body []byte) error {
	var envelope struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Code == "" {
		return &APIError{Code: "UNKNOWN", Message: http.StatusText(status), Status: status}
	}
	apiErr := envelope.Error
	apiErr.Status = status
	return &apiErr
}
