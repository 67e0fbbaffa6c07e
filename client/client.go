// Package client talks to the whitelist backend REST API on behalf of the dashboard
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tywin1104/mc-dashboard/types"
)

const (
	authPath     = "/api/v1/auth/"
	requestsPath = "/api/v1/internal/requests"
)

// ErrUnauthorized is returned when the backend rejects the admin credentials
var ErrUnauthorized = errors.New("backend rejected admin credentials")

// StatusError is returned for unexpected backend responses
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s: unexpected status code %d", e.Path, e.Code)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token struct {
		Value   string    `json:"value"`
		Expires time.Time `json:"expires"`
	} `json:"token"`
}

type requestsResponse struct {
	Requests []types.WhitelistRequest `json:"requests"`
}

// Client fetches whitelist requests from the backend's internal API,
// authenticating as the admin user
type Client struct {
	baseURL    string
	creds      credentials
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

// New creates a client for the backend at baseURL
func New(baseURL, username, password string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      credentials{Username: username, Password: password},
		httpClient: httpClient,
	}
}

// Login exchanges the admin credentials for a JWT and keeps it for later calls
func (c *Client) Login(ctx context.Context) (string, error) {
	body, err := json.Marshal(c.creds)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return "", ErrUnauthorized
	default:
		return "", &StatusError{Path: authPath, Code: resp.StatusCode}
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if tr.Token.Value == "" {
		return "", errors.New("backend returned an empty token")
	}
	c.mu.Lock()
	c.token = tr.Token.Value
	c.mu.Unlock()
	return tr.Token.Value, nil
}

// FetchRequests returns every whitelist request known to the backend. The
// client logs in on first use and once more when the token has expired.
func (c *Client) FetchRequests(ctx context.Context) ([]types.WhitelistRequest, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token == "" {
		var err error
		if token, err = c.Login(ctx); err != nil {
			return nil, err
		}
	}
	requests, err := c.getRequests(ctx, token)
	if !errors.Is(err, ErrUnauthorized) {
		return requests, err
	}
	if token, err = c.Login(ctx); err != nil {
		return nil, err
	}
	return c.getRequests(ctx, token)
}

func (c *Client) getRequests(ctx context.Context, token string) ([]types.WhitelistRequest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+requestsPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get requests: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		io.Copy(io.Discard, resp.Body)
		return nil, ErrUnauthorized
	default:
		return nil, &StatusError{Path: requestsPath, Code: resp.StatusCode}
	}
	var rr requestsResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("decode requests: %w", err)
	}
	if rr.Requests == nil {
		rr.Requests = make([]types.WhitelistRequest, 0)
	}
	return rr.Requests, nil
}
