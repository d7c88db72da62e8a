package newapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUserNotFound is returned by GetUser when the site reports no such user.
var ErrUserNotFound = errors.New("newapi: user not found")

// Client talks to a NewAPI instance with an admin access token.
type Client struct {
	baseURL     string
	token       string
	adminUserID string

	HTTPClient *http.Client
}

func NewClient(baseURL, token, adminUserID string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		adminUserID: adminUserID,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) request(ctx context.Context, method, path string, body any) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("New-Api-User", c.adminUserID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &env, nil
}

// GetUser fetches the full user record by site user id. Safe to retry.
func (c *Client) GetUser(ctx context.Context, id int64) (*User, error) {
	env, err := c.request(ctx, http.MethodGet, fmt.Sprintf("/api/user/%d", id), nil)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, ErrUserNotFound
	}

	var u User
	if err := json.Unmarshal(env.Data, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

// UpdateUser replaces the whole user record on the site. The record must come
// from a fresh GetUser so unmodeled fields round-trip intact.
func (c *Client) UpdateUser(ctx context.Context, u *User) error {
	env, err := c.request(ctx, http.MethodPut, "/api/user/", u)
	if err != nil {
		return err
	}
	if !env.Success {
		return fmt.Errorf("newapi: update rejected: %s", env.Message)
	}
	return nil
}
