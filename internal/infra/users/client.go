package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainuser "talenthub/internal/domain/user"
)

// Config defines user-service client settings.
type Config struct {
	BaseURL     string
	CallTimeout time.Duration
}

// Client talks to the user service that owns accounts and profiles. Chat only
// reads from it: existence checks before starting a conversation and profile
// resolution for listing screens.
type Client struct {
	baseURL     string
	http        *http.Client
	callTimeout time.Duration
	logger      *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("users: base url required")
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 5 * time.Second
	}
	return &Client{
		baseURL:     base,
		http:        &http.Client{Timeout: callTimeout},
		callTimeout: callTimeout,
		logger:      logger,
	}, nil
}

type profilePayload struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}

func (p profilePayload) toDomain() *domainuser.Profile {
	return &domainuser.Profile{
		ID:          domainuser.ID(p.ID),
		DisplayName: p.DisplayName,
		Email:       p.Email,
		Role:        domainuser.NormalizeRole(domainuser.Role(p.Role)),
	}
}

// FindUser loads one profile by id.
func (c *Client) FindUser(ctx context.Context, id domainuser.ID) (*domainuser.Profile, error) {
	var payload profilePayload
	status, err := c.getJSON(ctx, "/users/"+url.PathEscape(string(id)), &payload)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, domainuser.ErrNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("users: unexpected status %d", status)
	}
	return payload.toDomain(), nil
}

// Search matches profiles by display name or email substring.
func (c *Client) Search(ctx context.Context, q string) ([]*domainuser.Profile, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	var payload struct {
		Users []profilePayload `json:"users"`
	}
	status, err := c.getJSON(ctx, "/users?q="+url.QueryEscape(q), &payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("users: unexpected status %d", status)
	}
	out := make([]*domainuser.Profile, 0, len(payload.Users))
	for _, p := range payload.Users {
		out = append(out, p.toDomain())
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, into any) (int, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return resp.StatusCode, fmt.Errorf("users: decode response: %w", err)
	}
	return resp.StatusCode, nil
}

var _ domainuser.Directory = (*Client)(nil)
