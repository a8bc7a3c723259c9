package oracle

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ruteri/entropy-vault/interfaces"
)

// Ledger persists entropy requests. It is append-only: the only mutation is
// the one-time Requested -> Fulfilled transition.
type Ledger interface {
	// Insert records a new request.
	Insert(ctx context.Context, req interfaces.EntropyRequest) error

	// Get returns the request, or ErrUnknownRequest.
	Get(ctx context.Context, id interfaces.RequestID) (interfaces.EntropyRequest, error)

	// Fulfill sets value and status if the request is still pending. It fails
	// with ErrUnknownRequest or ErrAlreadyFulfilled otherwise.
	Fulfill(ctx context.Context, id interfaces.RequestID, value interfaces.Ciphertext, at time.Time) error

	// Count returns the number of requests ever recorded.
	Count(ctx context.Context) (uint64, error)

	// ListPending returns requests still awaiting fulfillment, oldest first.
	ListPending(ctx context.Context) ([]interfaces.EntropyRequest, error)

	Close() error
}

// MemoryLedger is an in-process Ledger.
type MemoryLedger struct {
	mu       sync.RWMutex
	requests map[interfaces.RequestID]*interfaces.EntropyRequest
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{requests: make(map[interfaces.RequestID]*interfaces.EntropyRequest)}
}

func (l *MemoryLedger) Insert(ctx context.Context, req interfaces.EntropyRequest) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.requests[req.ID]; exists {
		return errDuplicateRequest
	}

	stored := copyRequest(req)
	l.requests[req.ID] = &stored
	return nil
}

func (l *MemoryLedger) Get(ctx context.Context, id interfaces.RequestID) (interfaces.EntropyRequest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	req, ok := l.requests[id]
	if !ok {
		return interfaces.EntropyRequest{}, interfaces.ErrUnknownRequest
	}
	return copyRequest(*req), nil
}

func (l *MemoryLedger) Fulfill(ctx context.Context, id interfaces.RequestID, value interfaces.Ciphertext, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	req, ok := l.requests[id]
	if !ok {
		return interfaces.ErrUnknownRequest
	}
	if req.Fulfilled() {
		return interfaces.ErrAlreadyFulfilled
	}

	req.Value = append(interfaces.Ciphertext{}, value...)
	req.Status = interfaces.StatusFulfilled
	req.FulfilledAt = at
	return nil
}

func (l *MemoryLedger) Count(ctx context.Context) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.requests)), nil
}

func (l *MemoryLedger) ListPending(ctx context.Context) ([]interfaces.EntropyRequest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var pending []interfaces.EntropyRequest
	for _, req := range l.requests {
		if !req.Fulfilled() {
			pending = append(pending, copyRequest(*req))
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Seq < pending[j].Seq })
	return pending, nil
}

func (l *MemoryLedger) Close() error { return nil }

func copyRequest(req interfaces.EntropyRequest) interfaces.EntropyRequest {
	if req.FeePaid != nil {
		req.FeePaid = new(big.Int).Set(req.FeePaid)
	}
	if req.Value != nil {
		req.Value = append(interfaces.Ciphertext{}, req.Value...)
	}
	return req
}
