package api

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the transport shared by the component clients. Requests are
// signed when Key is set.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Key     *ecdsa.PrivateKey
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, key *ecdsa.PrivateKey) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Key:     key,
	}
}

// Do sends in as JSON (if non-nil) and decodes a 2xx response into out (if
// non-nil). Non-2xx responses are returned as ReadError errors.
func (c *Client) Do(ctx context.Context, method, path string, in, out any, signed bool) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("could not initialize request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if signed {
		if c.Key == nil {
			return fmt.Errorf("%s %s requires a signing key", method, path)
		}
		if err := SignRequest(req, c.Key, time.Now()); err != nil {
			return err
		}
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not reach %s: %w", c.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ReadError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	return nil
}
