package oraclehandler

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ruteri/entropy-vault/api"
	"github.com/ruteri/entropy-vault/interfaces"
)

// Client talks to the oracle endpoints.
type Client struct {
	*api.Client
}

func NewClient(base *api.Client) *Client {
	return &Client{Client: base}
}

func (c *Client) GetFee(ctx context.Context) (*big.Int, error) {
	var resp api.FeeMessage
	if err := c.Do(ctx, "GET", "/api/oracle/fee", nil, &resp, false); err != nil {
		return nil, err
	}
	return resp.Fee, nil
}

func (c *Client) SetFee(ctx context.Context, fee *big.Int) error {
	return c.Do(ctx, "PUT", "/api/oracle/fee", api.FeeMessage{Fee: fee}, nil, true)
}

func (c *Client) RequestEntropy(ctx context.Context, tag interfaces.Tag, fee *big.Int) (interfaces.RequestID, error) {
	var resp api.RequestEntropyResponse
	err := c.Do(ctx, "POST", "/api/oracle/requests", api.RequestEntropyRequest{Tag: tag, Fee: fee}, &resp, true)
	return resp.RequestID, err
}

func (c *Client) FulfillEntropy(ctx context.Context, id interfaces.RequestID, value interfaces.Ciphertext) error {
	return c.Do(ctx, "POST", fmt.Sprintf("/api/oracle/requests/%s/fulfill", id.String()), api.FulfillRequest{Value: []byte(value)}, nil, true)
}

func (c *Client) GetRequest(ctx context.Context, id interfaces.RequestID) (*api.EntropyRequestResponse, error) {
	var resp api.EntropyRequestResponse
	if err := c.Do(ctx, "GET", "/api/oracle/requests/"+id.String(), nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRequestStatus implements interfaces.EntropyStatusReader over HTTP.
func (c *Client) GetRequestStatus(ctx context.Context, id interfaces.RequestID) (interfaces.RequestStatus, error) {
	resp, err := c.GetRequest(ctx, id)
	if err != nil {
		return interfaces.StatusUnknown, err
	}
	return interfaces.ParseRequestStatus(resp.Status)
}

func (c *Client) GetRequestValue(ctx context.Context, id interfaces.RequestID) (interfaces.Ciphertext, error) {
	var resp api.RequestValueResponse
	if err := c.Do(ctx, "GET", fmt.Sprintf("/api/oracle/requests/%s/value", id.String()), nil, &resp, false); err != nil {
		return nil, err
	}
	return interfaces.Ciphertext(resp.Value), nil
}

func (c *Client) PendingRequests(ctx context.Context) ([]api.EntropyRequestResponse, error) {
	var resp []api.EntropyRequestResponse
	err := c.Do(ctx, "GET", "/api/oracle/requests/pending", nil, &resp, false)
	return resp, err
}

// WaitForFulfillment polls until the request is fulfilled or ctx is done.
func (c *Client) WaitForFulfillment(ctx context.Context, id interfaces.RequestID, interval time.Duration) (interfaces.Ciphertext, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		value, err := c.GetRequestValue(ctx, id)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, interfaces.ErrNotFulfilled) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
