package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ruteri/entropy-vault/interfaces"
)

var errDuplicateRequest = errors.New("request id already recorded")

// Oracle accepts entropy requests and their one-time fulfillment.
// All mutations are serialized by a single mutex; events are sent only after
// the ledger write succeeded, outside the lock.
type Oracle struct {
	address interfaces.Identity
	gate    interfaces.AccessGate
	ledger  Ledger
	log     *slog.Logger

	mu  sync.Mutex
	fee *big.Int

	requestedFeed event.Feed
	fulfilledFeed event.Feed

	now func() time.Time
}

// NewOracle creates an oracle charging minFee per request.
func NewOracle(address interfaces.Identity, gate interfaces.AccessGate, ledger Ledger, minFee *big.Int, log *slog.Logger) *Oracle {
	fee := new(big.Int)
	if minFee != nil {
		fee.Set(minFee)
	}
	return &Oracle{
		address: address,
		gate:    gate,
		ledger:  ledger,
		log:     log,
		fee:     fee,
		now:     time.Now,
	}
}

// RequestIDFor derives the id of the seq-th request of an oracle.
func RequestIDFor(oracle, requester interfaces.Identity, tag interfaces.Tag, seq uint64) (interfaces.RequestID, error) {
	addressTy, _ := abi.NewType("address", "", nil)
	bytes32Ty, _ := abi.NewType("bytes32", "", nil)
	uintTy, _ := abi.NewType("uint256", "", nil)

	arguments := abi.Arguments{
		{Type: addressTy},
		{Type: addressTy},
		{Type: bytes32Ty},
		{Type: uintTy},
	}

	packed, err := arguments.Pack(common.Address(oracle), common.Address(requester), [32]byte(tag), new(big.Int).SetUint64(seq))
	if err != nil {
		return interfaces.RequestID{}, err
	}
	return interfaces.RequestID(crypto.Keccak256Hash(packed)), nil
}

// Address implements interfaces.EntropyStatusReader.
func (o *Oracle) Address() interfaces.Identity {
	return o.address
}

// GetFee returns the current minimum fee.
func (o *Oracle) GetFee() *big.Int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return new(big.Int).Set(o.fee)
}

// SetFee updates the minimum fee. Admin only.
func (o *Oracle) SetFee(ctx context.Context, caller interfaces.Identity, fee *big.Int) error {
	if err := o.gate.Authorize(caller, interfaces.RoleAdmin); err != nil {
		return err
	}
	if fee == nil || fee.Sign() < 0 {
		return interfaces.ErrInvalidFee
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.log.Info("fee updated", "old", o.fee.String(), "new", fee.String(), "admin", caller.String())
	o.fee = new(big.Int).Set(fee)
	return nil
}

// RequestEntropy records a request and emits EntropyRequested.
func (o *Oracle) RequestEntropy(ctx context.Context, caller interfaces.Identity, tag interfaces.Tag, feePaid *big.Int) (interfaces.RequestID, error) {
	o.mu.Lock()

	if feePaid == nil || feePaid.Cmp(o.fee) < 0 {
		minFee := o.fee.String()
		o.mu.Unlock()
		return interfaces.RequestID{}, fmt.Errorf("%w: minimum is %s", interfaces.ErrInsufficientFee, minFee)
	}

	seq, err := o.ledger.Count(ctx)
	if err != nil {
		o.mu.Unlock()
		return interfaces.RequestID{}, fmt.Errorf("could not read ledger: %w", err)
	}

	id, err := RequestIDFor(o.address, caller, tag, seq)
	if err != nil {
		o.mu.Unlock()
		return interfaces.RequestID{}, fmt.Errorf("could not derive request id: %w", err)
	}

	err = o.ledger.Insert(ctx, interfaces.EntropyRequest{
		ID:        id,
		Seq:       seq,
		Tag:       tag,
		Requester: caller,
		FeePaid:   new(big.Int).Set(feePaid),
		Status:    interfaces.StatusRequested,
		CreatedAt: o.now(),
	})
	o.mu.Unlock()
	if err != nil {
		return interfaces.RequestID{}, fmt.Errorf("could not record request: %w", err)
	}

	o.log.Debug("entropy requested", "requestID", id.String(), "requester", caller.String(), "seq", seq)
	o.requestedFeed.Send(interfaces.EntropyRequestedEvent{RequestID: id, Tag: tag, Requester: caller, Seq: seq})
	return id, nil
}

// FulfillEntropy binds value to a pending request and emits EntropyFulfilled.
func (o *Oracle) FulfillEntropy(ctx context.Context, caller interfaces.Identity, id interfaces.RequestID, value interfaces.Ciphertext) error {
	if err := o.gate.Authorize(caller, interfaces.RoleFulfiller); err != nil {
		return err
	}
	if len(value) == 0 {
		return interfaces.ErrEmptyValue
	}

	o.mu.Lock()
	req, err := o.ledger.Get(ctx, id)
	if err != nil {
		o.mu.Unlock()
		return err
	}
	if req.Fulfilled() {
		o.mu.Unlock()
		return interfaces.ErrAlreadyFulfilled
	}

	err = o.ledger.Fulfill(ctx, id, value, o.now())
	o.mu.Unlock()
	if err != nil {
		return err
	}

	o.log.Debug("entropy fulfilled", "requestID", id.String(), "fulfiller", caller.String())
	o.fulfilledFeed.Send(interfaces.EntropyFulfilledEvent{RequestID: id, Value: append(interfaces.Ciphertext{}, value...)})
	return nil
}

// GetRequest returns a copy of the ledger entry.
func (o *Oracle) GetRequest(ctx context.Context, id interfaces.RequestID) (interfaces.EntropyRequest, error) {
	return o.ledger.Get(ctx, id)
}

// GetRequestStatus implements interfaces.EntropyStatusReader.
func (o *Oracle) GetRequestStatus(ctx context.Context, id interfaces.RequestID) (interfaces.RequestStatus, error) {
	req, err := o.ledger.Get(ctx, id)
	if err != nil {
		return interfaces.StatusUnknown, err
	}
	return req.Status, nil
}

// GetRequestValue returns the fulfilled value, or ErrNotFulfilled.
func (o *Oracle) GetRequestValue(ctx context.Context, id interfaces.RequestID) (interfaces.Ciphertext, error) {
	req, err := o.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.Fulfilled() {
		return nil, interfaces.ErrNotFulfilled
	}
	return req.Value, nil
}

// PendingRequests lists requests awaiting fulfillment, oldest first.
func (o *Oracle) PendingRequests(ctx context.Context) ([]interfaces.EntropyRequest, error) {
	return o.ledger.ListPending(ctx)
}

// SubscribeRequested delivers every EntropyRequested event to ch. The send
// blocks RequestEntropy callers until ch accepts it, so ch should be buffered
// and drained promptly.
func (o *Oracle) SubscribeRequested(ch chan<- interfaces.EntropyRequestedEvent) event.Subscription {
	return o.requestedFeed.Subscribe(ch)
}

// SubscribeFulfilled delivers every EntropyFulfilled event to ch.
func (o *Oracle) SubscribeFulfilled(ch chan<- interfaces.EntropyFulfilledEvent) event.Subscription {
	return o.fulfilledFeed.Subscribe(ch)
}
