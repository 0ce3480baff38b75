// Package mailbridge provides a Go client for the mailjet-bridge API.
//
// Usage:
//
//	client := mailbridge.New("https://bridge.internal")
//
//	job, err := client.SendMessage(ctx, mailbridge.SendRequest{ ... })
//	status, err := client.Job(ctx, job.JobID)
package mailbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client is the mailjet-bridge API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a bridge client. baseURL is the root URL of the bridge server.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SendMessage enqueues a message for asynchronous delivery and returns the
// job reference to poll.
func (c *Client) SendMessage(ctx context.Context, req SendRequest) (*JobRef, error) {
	return doRequest[JobRef](ctx, c, http.MethodPost, "/v1/messages", req, http.StatusAccepted)
}

// SendTestMessage sends a message synchronously through the configured
// transport, bypassing the queue. Intended for configuration smoke tests.
func (c *Client) SendTestMessage(ctx context.Context, req SendRequest) error {
	_, err := doRequest[StatusResponse](ctx, c, http.MethodPost, "/v1/messages/test", req, http.StatusOK)
	return err
}

// Job retrieves the current state of a queued send.
func (c *Client) Job(ctx context.Context, jobID string) (*Job, error) {
	return doRequest[Job](ctx, c, http.MethodGet, "/v1/jobs/"+jobID, nil, http.StatusOK)
}

// Suppressions lists the suppression entries recorded for an address.
func (c *Client) Suppressions(ctx context.Context, email string) (*SuppressionList, error) {
	path := "/v1/suppressions?email=" + email
	return doRequest[SuppressionList](ctx, c, http.MethodGet, path, nil, http.StatusOK)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("mailbridge: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func doRequest[T any](ctx context.Context, c *Client, method, path string, body any, expectedStatus int) (*T, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		return nil, parseError(resp)
	}

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("mailbridge: decode response: %w", err)
	}
	return &out, nil
}

func parseError(resp *http.Response) *APIError {
	e := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		e.Message = body.Error
	} else {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}
