// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package client provides a Go client library for the slidesmith API.
//
// slidesmith runs an AI coding CLI against a slide-deck project and streams its
// output back as Server-Sent Events. This package starts those streams, decodes
// them into a readable transcript, and reads the server's event log.
//
// # Getting Started
//
//	c := client.New("http://localhost:3001")
//
//	stream, err := c.Edit(ctx, client.EditRequest{
//	    Prompt:   "Make the title larger",
//	    FilePath: "src/slides/intro.tsx",
//	})
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//
//	err = stream.Decode(ctx, client.Handlers{
//	    OnSession: func(id string) { sessionID = id },
//	    OnText:    func(text string) { render(text) },
//	})
//
// Pass the session id back in the next EditRequest to continue the conversation.
//
// # Cancellation
//
// A stream lives as long as the context passed to the method that opened it.
// Cancelling that context disconnects, and the server kills the generator.
//
// # Error Handling
//
// Requests the server rejects return *APIError values carrying the HTTP status
// and the server's message:
//
//	var apiErr *client.APIError
//	if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
//	    fmt.Println(apiErr.Message) // "prompt is required"
//	}
//
// Generation failures reported inside a stream are returned by Stream.Decode as
// *GenerationError.
package client

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

// Client is a slidesmith API client.
//
// The Client is safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// streamClient has no overall timeout; streams end by context.
	streamClient *http.Client

	timeout time.Duration
}

// Option configures a [Client]. Options are passed to [New] to customize
// client behavior.
type Option func(*Client)

// New creates a new slidesmith API client with the given base URL and options.
//
// The baseURL should be the root URL of the server (e.g., "http://localhost:3001").
// Any trailing slash is automatically removed.
//
// By default, non-streaming requests time out after 30 seconds.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	// Callers may share the client they pass in
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}

	if c.streamClient == nil {
		c.streamClient = &http.Client{
			Transport:     c.httpClient.Transport,
			CheckRedirect: c.httpClient.CheckRedirect,
			Jar:           c.httpClient.Jar,
		}
	}
	return c
}

// WithHTTPClient sets a custom HTTP client for making requests. Streams use a
// copy of it without the timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the timeout for non-streaming requests. It applies to a copy of
// any client given with [WithHTTPClient], whatever the option order.
//
// Streams are not affected; bound them with the context instead.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// BaseURL returns the base URL of the API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a request the server rejected.
type APIError struct {
	// Status is the HTTP status code.
	Status int

	// Message is the server's error message, e.g. "prompt is required".
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Stream is an open generation stream.
type Stream struct {
	resp *http.Response
}

// Decode reads the stream until it completes, calling h as events arrive.
// See [Decoder.Decode] for the return values.
func (s *Stream) Decode(ctx context.Context, h Handlers) error {
	return NewDecoder(h).Decode(ctx, s.resp.Body)
}

// Close releases the connection. Closing before the stream completes disconnects,
// which stops the generator.
func (s *Stream) Close() error {
	return s.resp.Body.Close()
}

// Generate creates a new slide.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Stream, error) {
	return c.stream(ctx, "/api/generate", req)
}

// Edit edits a slide file, resuming its conversation when req.SessionID is set.
func (c *Client) Edit(ctx context.Context, req EditRequest) (*Stream, error) {
	return c.stream(ctx, "/api/edit", req)
}

// EditDesignSystem edits the design system.
func (c *Client) EditDesignSystem(ctx context.Context, req EditDesignSystemRequest) (*Stream, error) {
	return c.stream(ctx, "/api/edit-design-system", req)
}

// ApplyDesignSystem restyles one slide to match the current design system.
// fileKey is a slide key ("intro") or a project-relative path.
func (c *Client) ApplyDesignSystem(ctx context.Context, fileKey string) (*Stream, error) {
	return c.stream(ctx, "/api/apply-design-system", applyDesignSystemRequest{FileKey: fileKey})
}

// CreateDesignSystem designs a new design system.
func (c *Client) CreateDesignSystem(ctx context.Context, req CreateDesignSystemRequest) (*Stream, error) {
	return c.stream(ctx, "/api/create-design-system", req)
}

// AssessDesignSystem starts a background assessment and returns once the server
// has accepted it. The brief is written to the project; watch for a
// "design_system.assessed" event.
func (c *Client) AssessDesignSystem(ctx context.Context, req AssessDesignSystemRequest) error {
	_, err := c.postJSON(ctx, "/api/assess-design-system", req)
	return err
}

// Health returns the server's liveness report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	data, err := c.get(ctx, "/api/health")
	if err != nil {
		return nil, err
	}
	var h Health
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to parse health: %w", err)
	}
	return &h, nil
}

// Events returns past events, oldest first.
func (c *Client) Events(ctx context.Context, opts *ListOptions) ([]Event, error) {
	path := "/api/events"

	if opts != nil {
		params := url.Values{}
		if opts.Limit > 0 {
			params.Set("limit", fmt.Sprintf("%d", opts.Limit))
		}
		for _, t := range opts.Types {
			params.Add("type", t)
		}
		if opts.Item != "" {
			params.Set("item", opts.Item)
		}
		if !opts.Since.IsZero() {
			params.Set("since", opts.Since.Format(time.RFC3339))
		}
		if !opts.Until.IsZero() {
			params.Set("until", opts.Until.Format(time.RFC3339))
		}
		if len(params) > 0 {
			path += "?" + params.Encode()
		}
	}

	data, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to parse events: %w", err)
	}
	return events, nil
}

// stream posts body and returns the open event stream.
func (c *Client) stream(ctx context.Context, path string, body interface{}) (*Stream, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, parseError(resp.StatusCode, respBody)
	}
	return &Stream{resp: resp}, nil
}

// get performs a GET request to the given path.
func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// postJSON performs a POST request with a JSON body.
func (c *Client) postJSON(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(data))
}

// do performs an HTTP request and returns the response body.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, parseError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// parseError builds an APIError from an {"error": "..."} body, falling back to the
// raw body text.
func parseError(status int, body []byte) error {
	var e struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		msg = e.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Message: msg}
}
