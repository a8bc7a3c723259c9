package interfaces

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/event"
)

// AccessGate authorizes role-restricted operations.
type AccessGate interface {
	// Authorize returns ErrUnauthorized if caller does not hold role.
	Authorize(caller Identity, role Role) error
}

// RoleTable is the externally configured assignment of roles to identities.
type RoleTable interface {
	HasRole(caller Identity, role Role) bool
}

// EntropyStatusReader is the read-only view of the oracle the value store depends on.
type EntropyStatusReader interface {
	// Address identifies the oracle instance.
	Address() Identity

	// GetRequestStatus returns the status of a request, or ErrUnknownRequest.
	GetRequestStatus(ctx context.Context, id RequestID) (RequestStatus, error)
}

// EntropyOracle accepts entropy requests and their one-time fulfillment.
type EntropyOracle interface {
	EntropyStatusReader

	// RequestEntropy records a new request and emits EntropyRequested.
	RequestEntropy(ctx context.Context, caller Identity, tag Tag, feePaid *big.Int) (RequestID, error)

	// FulfillEntropy binds value to a pending request and emits EntropyFulfilled.
	FulfillEntropy(ctx context.Context, caller Identity, id RequestID, value Ciphertext) error

	// GetFee returns the current minimum fee.
	GetFee() *big.Int

	// SetFee updates the minimum fee. Admin only.
	SetFee(ctx context.Context, caller Identity, fee *big.Int) error

	// GetRequest returns a copy of the ledger entry.
	GetRequest(ctx context.Context, id RequestID) (EntropyRequest, error)

	// GetRequestValue returns the fulfilled value, or ErrNotFulfilled.
	GetRequestValue(ctx context.Context, id RequestID) (Ciphertext, error)

	SubscribeRequested(ch chan<- EntropyRequestedEvent) event.Subscription
	SubscribeFulfilled(ch chan<- EntropyFulfilledEvent) event.Subscription
}
