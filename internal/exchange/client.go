// Package exchange is the Upbit REST client used for quotation, account and order calls.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public Upbit REST endpoint.
const DefaultBaseURL = "https://api.upbit.com"

// APIError is a non-2xx response from the exchange.
type APIError struct {
	Status  int
	Name    string
	Message string
}

func (e *APIError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("upbit: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upbit: status %d: %s: %s", e.Status, e.Name, e.Message)
}

// Client talks to the Upbit REST API.
type Client struct {
	BaseURL string
	Auth    Authorizer
	Client  *http.Client
}

// NewClient creates a client with optional proxy support.
func NewClient(baseURL string, auth Authorizer, timeout time.Duration, proxyURL string) *Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Auth:    auth,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// get performs a GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, authenticated bool, out any) error {
	endpoint := c.BaseURL + path
	encoded := query.Encode()
	if encoded != "" {
		endpoint += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if authenticated {
		if err := c.authorize(req, encoded); err != nil {
			return err
		}
	}
	return c.do(req, out)
}

// post sends params as a JSON body; the token hashes the same params form-encoded.
func (c *Client) post(ctx context.Context, path string, params url.Values, out any) error {
	body := make(map[string]string, len(params))
	for k := range params {
		body[k] = params.Get(k)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(req, params.Encode()); err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) authorize(req *http.Request, encodedQuery string) error {
	if c.Auth == nil {
		return fmt.Errorf("authorize %s: no authorizer configured", req.URL.Path)
	}
	query, err := url.QueryUnescape(encodedQuery)
	if err != nil {
		return fmt.Errorf("unescape query: %w", err)
	}
	token, err := c.Auth.Authorize(query)
	if err != nil {
		return fmt.Errorf("authorize %s: %w", req.URL.Path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("upbit %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("upbit read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("upbit decode %s: %w, body: %s", req.URL.Path, err, truncate(body, 512))
	}
	return nil
}

func decodeAPIError(status int, body []byte) error {
	var payload struct {
		Error struct {
			Name    any    `json:"name"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error.Message == "" {
		apiErr.Message = string(truncate(body, 512))
		return apiErr
	}
	// name is a string for most errors and a number for some rate-limit responses
	if payload.Error.Name != nil {
		apiErr.Name = fmt.Sprint(payload.Error.Name)
	}
	apiErr.Message = payload.Error.Message
	return apiErr
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
