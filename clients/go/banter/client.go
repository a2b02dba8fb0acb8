// Package banter provides the chat session and message-synchronization
// engine for the Banter assistant service: a typed API client, a totally
// ordered message timeline with optimistic inserts, thread identity
// management with durable recovery, and the attachment pipeline.
package banter

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

// TokenProvider supplies the bearer credential attached to every call.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider for a fixed credential.
type StaticToken string

// Token implements TokenProvider.
func (t StaticToken) Token(ctx context.Context) (string, error) {
	return string(t), nil
}

// Client is a Banter API client.
type Client struct {
	BaseURL    string
	Tokens     TokenProvider
	HTTPClient *http.Client
}

// NewClient creates a new Banter client.
func NewClient(baseURL string, tokens TokenProvider) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    baseURL,
		Tokens:     tokens,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// doRequest performs an HTTP request with the bearer credential attached.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	if c.Tokens == nil {
		return nil, ErrAuthRequired
	}
	token, err := c.Tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAuthRequired, err)
	}
	if token == "" {
		return nil, ErrAuthRequired
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		// The soft not-found classification applies to threads only; a 404
		// from any other endpoint is a hard remote error.
		if resp.StatusCode == http.StatusNotFound && strings.HasPrefix(path, "/chat/threads/") {
			return nil, fmt.Errorf("%w: %s", ErrThreadNotFound, errResp.Error)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}

	return respBody, nil
}

// ThreadInfo is a thread as listed by the remote service.
type ThreadInfo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateThreadRequest is the request body for minting a thread.
type CreateThreadRequest struct {
	Title string `json:"title"`
}

// CreateThreadResponse is the response from minting a thread.
type CreateThreadResponse struct {
	ThreadID string `json:"threadId"`
}

// CreateThread asks the remote service to mint a new thread.
func (c *Client) CreateThread(ctx context.Context, title string) (string, error) {
	body, _ := json.Marshal(CreateThreadRequest{Title: title})
	respBody, err := c.doRequest(ctx, "POST", "/chat/threads", body)
	if err != nil {
		return "", err
	}

	var resp CreateThreadResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", err
	}
	return resp.ThreadID, nil
}

// ThreadsResponse is the response from listing threads.
type ThreadsResponse struct {
	Success bool         `json:"success"`
	Threads []ThreadInfo `json:"threads"`
}

// ListThreads lists the caller's threads.
func (c *Client) ListThreads(ctx context.Context) ([]ThreadInfo, error) {
	respBody, err := c.doRequest(ctx, "GET", "/chat/threads", nil)
	if err != nil {
		return nil, err
	}

	var resp ThreadsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp.Threads, nil
}

// ThreadExists checks whether a thread still exists remotely. A not-found
// response is (false, nil); any other failure is a hard error.
func (c *Client) ThreadExists(ctx context.Context, id string) (bool, error) {
	_, err := c.doRequest(ctx, "GET", "/chat/threads/"+id, nil)
	if err != nil {
		if errors.Is(err, ErrThreadNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteThread deletes a thread remotely.
func (c *Client) DeleteThread(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, "DELETE", "/chat/threads/"+id, nil)
	return err
}

// WireMessage is a message as returned by the history endpoint. Content may
// be a plain string or a structured envelope with a textual payload.
type WireMessage struct {
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Timestamp string          `json:"timestamp"`
}

// MessagesResponse is the response from the history endpoint.
type MessagesResponse struct {
	Success  bool          `json:"success"`
	Messages []WireMessage `json:"messages"`
}

// GetMessages retrieves a thread's history. A not-found response is treated
// as an empty history, not an error.
func (c *Client) GetMessages(ctx context.Context, threadID string) ([]WireMessage, error) {
	respBody, err := c.doRequest(ctx, "GET", "/chat/threads/"+threadID+"/messages", nil)
	if err != nil {
		if errors.Is(err, ErrThreadNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var resp MessagesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SendRequest is the request body for sending a turn.
type SendRequest struct {
	Message     string `json:"message"`
	Style       string `json:"style"`
	ThreadID    string `json:"threadId,omitempty"`
	ImageBase64 string `json:"imageBase64,omitempty"`
	ImageType   string `json:"imageType,omitempty"`
}

// AssistantReply is the confirmed assistant turn inside a send response.
type AssistantReply struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// SendResponse is the response from sending a turn. ThreadID echoes the
// thread the exchange landed in, which may differ from the one sent when the
// first message created the thread.
type SendResponse struct {
	Success  bool           `json:"success"`
	Response AssistantReply `json:"response"`
	ThreadID string         `json:"threadId"`
}

// Send submits a user turn and returns the assistant's confirmed reply.
func (c *Client) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	body, _ := json.Marshal(req)
	respBody, err := c.doRequest(ctx, "POST", "/chat/send", body)
	if err != nil {
		return nil, err
	}

	var resp SendResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
