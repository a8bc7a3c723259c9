package seedhandler

import (
	"context"

	"github.com/ruteri/entropy-vault/api"
	"github.com/ruteri/entropy-vault/interfaces"
)

// Client talks to the seed endpoints.
type Client struct {
	*api.Client
}

func NewClient(base *api.Client) *Client {
	return &Client{Client: base}
}

func (c *Client) Status(ctx context.Context) (*api.SeedStatusResponse, error) {
	var resp api.SeedStatusResponse
	if err := c.Do(ctx, "GET", "/api/entropy/seed", nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// InitializeSeed submits an encrypted seed. The client key must hold the
// admin role and be the caller the input is bound to.
func (c *Client) InitializeSeed(ctx context.Context, input interfaces.EncryptedInput) error {
	return c.Do(ctx, "POST", "/api/entropy/seed", api.SeedInitRequest{
		EncryptedSeed: []byte(input.Ciphertext),
		Proof:         []byte(input.Proof),
	}, nil, true)
}
