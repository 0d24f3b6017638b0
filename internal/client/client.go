// Package client provides an HTTP client for the grammable JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/evcraddock/grammable/internal/comment"
	"github.com/evcraddock/grammable/internal/gram"
)

// Client is an HTTP client for the grammable API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// ShowResponse is the response from GET /api/grams/{id}.
type ShowResponse struct {
	gram.Gram
	Comments []*comment.Comment `json:"comments"`
}

// ListOptions controls filtering for ListGrams.
type ListOptions struct {
	Limit  int
	Offset int
	UserID int64
}

// ListGrams returns grams, newest first.
func (c *Client) ListGrams(ctx context.Context, opts ListOptions) ([]*gram.Gram, error) {
	params := url.Values{}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.UserID > 0 {
		params.Set("user_id", strconv.FormatInt(opts.UserID, 10))
	}

	path := "/api/grams"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var grams []*gram.Gram
	if err := c.send(ctx, http.MethodGet, path, nil, &grams); err != nil {
		return nil, err
	}
	return grams, nil
}

// GetGram returns a gram with its comments.
func (c *Client) GetGram(ctx context.Context, id int64) (*ShowResponse, error) {
	var resp ShowResponse
	if err := c.send(ctx, http.MethodGet, fmt.Sprintf("/api/grams/%d", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateGram posts a new gram.
func (c *Client) CreateGram(ctx context.Context, message string) (*gram.Gram, error) {
	var g gram.Gram
	if err := c.send(ctx, http.MethodPost, "/api/grams", map[string]string{"message": message}, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// UpdateGram replaces a gram's message.
func (c *Client) UpdateGram(ctx context.Context, id int64, message string) (*gram.Gram, error) {
	var g gram.Gram
	if err := c.send(ctx, http.MethodPatch, fmt.Sprintf("/api/grams/%d", id), map[string]string{"message": message}, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// DeleteGram removes a gram.
func (c *Client) DeleteGram(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/grams/%d", id), nil, nil)
}

// AddComment comments on a gram.
func (c *Client) AddComment(ctx context.Context, id int64, body string) (*comment.Comment, error) {
	var comm comment.Comment
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/api/grams/%d/comments", id), map[string]string{"body": body}, &comm); err != nil {
		return nil, err
	}
	return &comm, nil
}

// ListComments returns a gram's comments.
func (c *Client) ListComments(ctx context.Context, id int64) ([]*comment.Comment, error) {
	var comments []*comment.Comment
	if err := c.send(ctx, http.MethodGet, fmt.Sprintf("/api/grams/%d/comments", id), nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// APIKey is an API key as listed by the server. The raw key is never returned.
type APIKey struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	KeyPrefix  string  `json:"key_prefix"`
	CreatedAt  string  `json:"created_at"`
	LastUsedAt *string `json:"last_used_at,omitempty"`
}

// ListKeys returns the caller's API keys.
func (c *Client) ListKeys(ctx context.Context) ([]APIKey, error) {
	var keys []APIKey
	if err := c.send(ctx, http.MethodGet, "/api/keys", nil, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// send performs a request with an optional JSON body and decodes the response.
func (c *Client) send(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, result)
}

// do executes an HTTP request with auth header and handles errors.
func (c *Client) do(req *http.Request, result interface{}) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Debug("closing response body", "err", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: "server error: " + http.StatusText(resp.StatusCode)}
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
