package storehandler

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/entropy-vault/api"
	"github.com/ruteri/entropy-vault/interfaces"
)

// Client talks to the store endpoints. The signing key is the caller
// identity inputs must be bound to.
type Client struct {
	*api.Client
}

func NewClient(base *api.Client) *Client {
	return &Client{Client: base}
}

func (c *Client) Info(ctx context.Context) (*api.StoreInfoResponse, error) {
	var resp api.StoreInfoResponse
	if err := c.Do(ctx, "GET", "/api/store", nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Store writes input for allowedUser. A non-nil requestID gates the write on
// that entropy request.
func (c *Client) Store(ctx context.Context, key uint64, input interfaces.EncryptedInput, allowedUser interfaces.Identity, requestID *interfaces.RequestID) error {
	return c.Do(ctx, "POST", "/api/store/values", api.StoreRequest{
		Key:         key,
		Ciphertext:  []byte(input.Ciphertext),
		Proof:       []byte(input.Proof),
		AllowedUser: allowedUser,
		RequestID:   requestID,
	}, nil, true)
}

func (c *Client) StoreBatch(ctx context.Context, keys []uint64, inputs []interfaces.EncryptedInput, allowedUsers []interfaces.Identity, requestID *interfaces.RequestID) error {
	req := api.StoreBatchRequest{
		Keys:         keys,
		Ciphertexts:  make([]hexutil.Bytes, len(inputs)),
		Proofs:       make([]hexutil.Bytes, len(inputs)),
		AllowedUsers: allowedUsers,
		RequestID:    requestID,
	}
	for i, input := range inputs {
		req.Ciphertexts[i] = []byte(input.Ciphertext)
		req.Proofs[i] = []byte(input.Proof)
	}
	return c.Do(ctx, "POST", "/api/store/batch", req, nil, true)
}

func (c *Client) GetValue(ctx context.Context, key uint64) (*api.ValueResponse, error) {
	var resp api.ValueResponse
	if err := c.Do(ctx, "GET", fmt.Sprintf("/api/store/values/%d", key), nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) IsKeyInitialized(ctx context.Context, key uint64) (bool, error) {
	var resp api.KeyStatusResponse
	err := c.Do(ctx, "GET", fmt.Sprintf("/api/store/values/%d/status", key), nil, &resp, false)
	return resp.Initialized, err
}

func (c *Client) IsAllowed(ctx context.Context, key uint64, user interfaces.Identity) (bool, error) {
	var resp api.AllowedResponse
	err := c.Do(ctx, "GET", fmt.Sprintf("/api/store/values/%d/allowed/0x%s", key, user.String()), nil, &resp, false)
	return resp.Allowed, err
}
