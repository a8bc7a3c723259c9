package api

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/entropy-vault/interfaces"
)

// RequestEntropyRequest is the body of POST /api/oracle/requests.
type RequestEntropyRequest struct {
	Tag interfaces.Tag `json:"tag"`
	Fee *big.Int       `json:"fee"`
}

// RequestEntropyResponse identifies a newly recorded request.
type RequestEntropyResponse struct {
	RequestID interfaces.RequestID `json:"request_id"`
}

// FulfillRequest is the body of POST /api/oracle/requests/{id}/fulfill.
type FulfillRequest struct {
	Value hexutil.Bytes `json:"value"`
}

// FeeMessage carries the oracle fee in both directions.
type FeeMessage struct {
	Fee *big.Int `json:"fee"`
}

// EntropyRequestResponse describes a ledger entry. Value is only set once
// the request is fulfilled.
type EntropyRequestResponse struct {
	RequestID   interfaces.RequestID `json:"request_id"`
	Seq         uint64               `json:"seq"`
	Tag         interfaces.Tag       `json:"tag"`
	Requester   interfaces.Identity  `json:"requester"`
	FeePaid     *big.Int             `json:"fee_paid"`
	Status      string               `json:"status"`
	Value       hexutil.Bytes        `json:"value,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	FulfilledAt *time.Time           `json:"fulfilled_at,omitempty"`
}

// NewEntropyRequestResponse converts a ledger entry.
func NewEntropyRequestResponse(req interfaces.EntropyRequest) EntropyRequestResponse {
	resp := EntropyRequestResponse{
		RequestID: req.ID,
		Seq:       req.Seq,
		Tag:       req.Tag,
		Requester: req.Requester,
		FeePaid:   req.FeePaid,
		Status:    req.Status.String(),
		CreatedAt: req.CreatedAt,
	}
	if req.Fulfilled() {
		resp.Value = hexutil.Bytes(req.Value)
		at := req.FulfilledAt
		resp.FulfilledAt = &at
	}
	return resp
}

// RequestValueResponse is returned for a fulfilled request's value.
type RequestValueResponse struct {
	RequestID interfaces.RequestID `json:"request_id"`
	Value     hexutil.Bytes        `json:"value"`
}

// StoreRequest is the body of POST /api/store/values. A set RequestID routes
// the write through the entropy gate.
type StoreRequest struct {
	Key         uint64                `json:"key"`
	Ciphertext  hexutil.Bytes         `json:"ciphertext"`
	Proof       hexutil.Bytes         `json:"proof"`
	AllowedUser interfaces.Identity   `json:"allowed_user"`
	RequestID   *interfaces.RequestID `json:"request_id,omitempty"`
}

// StoreBatchRequest is the body of POST /api/store/batch. The arrays are
// positional and must have equal length.
type StoreBatchRequest struct {
	Keys         []uint64              `json:"keys"`
	Ciphertexts  []hexutil.Bytes       `json:"ciphertexts"`
	Proofs       []hexutil.Bytes       `json:"proofs"`
	AllowedUsers []interfaces.Identity `json:"allowed_users"`
	RequestID    *interfaces.RequestID `json:"request_id,omitempty"`
}

// ValueResponse describes a stored record.
type ValueResponse struct {
	Key            uint64                `json:"key"`
	Ciphertext     hexutil.Bytes         `json:"ciphertext"`
	AllowedUser    interfaces.Identity   `json:"allowed_user"`
	EntropyRequest *interfaces.RequestID `json:"entropy_request,omitempty"`
	StoredAt       time.Time             `json:"stored_at"`
}

// AllowedResponse answers whether a user may decrypt a key.
type AllowedResponse struct {
	Key     uint64              `json:"key"`
	User    interfaces.Identity `json:"user"`
	Allowed bool                `json:"allowed"`
}

// KeyStatusResponse answers whether a key is initialized.
type KeyStatusResponse struct {
	Key         uint64 `json:"key"`
	Initialized bool   `json:"initialized"`
}

// StoreInfoResponse describes the store and the oracle it gates on.
type StoreInfoResponse struct {
	Address     interfaces.Identity `json:"address"`
	Oracle      interfaces.Identity `json:"oracle"`
	TotalValues uint64              `json:"total_values"`
}

// SeedInitRequest is the body of POST /api/entropy/seed.
type SeedInitRequest struct {
	EncryptedSeed hexutil.Bytes `json:"encrypted_seed"`
	Proof         hexutil.Bytes `json:"proof"`
}

// SeedStatusResponse reports whether the entropy source can derive values.
type SeedStatusResponse struct {
	Address     interfaces.Identity `json:"address"`
	Initialized bool                `json:"initialized"`
}

// ErrorResponse is the body of every non-2xx response. Code names the
// domain error, if any, so clients can map it back.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
