package oracle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ruteri/entropy-vault/interfaces"
)

// FulfillmentTarget is the part of the oracle a Fulfiller drives.
type FulfillmentTarget interface {
	FulfillEntropy(ctx context.Context, caller interfaces.Identity, id interfaces.RequestID, value interfaces.Ciphertext) error
	PendingRequests(ctx context.Context) ([]interfaces.EntropyRequest, error)
	SubscribeRequested(ch chan<- interfaces.EntropyRequestedEvent) event.Subscription
}

// Fulfiller answers entropy requests in-process. Each request is fulfilled
// with the value derived for its sequence number, which is unique per oracle,
// so no counter is ever reused.
type Fulfiller struct {
	oracle   FulfillmentTarget
	source   interfaces.EntropySource
	identity interfaces.Identity
	log      *slog.Logger

	// RescanInterval controls how often pending requests are retried, e.g.
	// those received before the master seed was initialized.
	RescanInterval time.Duration
}

// NewFulfiller creates a fulfiller acting as identity, which must hold the
// fulfiller role.
func NewFulfiller(oracle FulfillmentTarget, source interfaces.EntropySource, identity interfaces.Identity, log *slog.Logger) *Fulfiller {
	return &Fulfiller{
		oracle:         oracle,
		source:         source,
		identity:       identity,
		log:            log,
		RescanInterval: 10 * time.Second,
	}
}

// Run processes requests until ctx is cancelled.
func (f *Fulfiller) Run(ctx context.Context) error {
	requests := make(chan interfaces.EntropyRequestedEvent, 64)
	sub := f.oracle.SubscribeRequested(requests)
	defer sub.Unsubscribe()

	f.rescan(ctx)

	ticker := time.NewTicker(f.RescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case ev := <-requests:
			f.fulfill(ctx, ev.RequestID, ev.Seq)
		case <-ticker.C:
			f.rescan(ctx)
		}
	}
}

func (f *Fulfiller) rescan(ctx context.Context) {
	pending, err := f.oracle.PendingRequests(ctx)
	if err != nil {
		f.log.Error("could not list pending requests", "err", err)
		return
	}
	for _, req := range pending {
		f.fulfill(ctx, req.ID, req.Seq)
	}
}

func (f *Fulfiller) fulfill(ctx context.Context, id interfaces.RequestID, seq uint64) {
	value, err := f.source.DeriveEntropy(seq)
	if errors.Is(err, interfaces.ErrSeedNotInitialized) {
		f.log.Warn("master seed not initialized, request left pending", "requestID", id.String())
		return
	} else if err != nil {
		f.log.Error("could not derive entropy", "err", err, "requestID", id.String())
		return
	}

	err = f.oracle.FulfillEntropy(ctx, f.identity, id, value)
	if errors.Is(err, interfaces.ErrAlreadyFulfilled) {
		return
	} else if err != nil {
		f.log.Error("could not fulfill request", "err", err, "requestID", id.String())
		return
	}

	f.log.Info("request fulfilled", "requestID", id.String(), "seq", seq)
}
