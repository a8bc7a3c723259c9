package oracle

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ruteri/entropy-vault/accessgate"
	"github.com/ruteri/entropy-vault/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	oracleAddr = interfaces.Identity{0x0e}
	admin      = interfaces.Identity{0x0a}
	fulfiller  = interfaces.Identity{0x0f}
	alice      = interfaces.Identity{0x01}
	bob        = interfaces.Identity{0x02}
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOracle(t *testing.T, ledger Ledger, fee int64) *Oracle {
	t.Helper()
	roles := accessgate.NewStaticRoleTable().
		WithMembers(interfaces.RoleAdmin, admin).
		WithMembers(interfaces.RoleFulfiller, fulfiller)
	return NewOracle(oracleAddr, accessgate.NewGate(roles, testLogger()), ledger, big.NewInt(fee), testLogger())
}

func ledgers() map[string]func(t *testing.T) Ledger {
	return map[string]func(t *testing.T) Ledger{
		"memory": func(t *testing.T) Ledger { return NewMemoryLedger() },
		"sqlite": func(t *testing.T) Ledger {
			l, err := OpenSQLiteLedger(context.Background(), ":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { _ = l.Close() })
			return l
		},
	}
}

func TestOracle_RequestEntropyFee(t *testing.T) {
	for name, newLedger := range ledgers() {
		t.Run(name, func(t *testing.T) {
			o := newTestOracle(t, newLedger(t), 100)
			ctx := context.Background()

			requested := make(chan interfaces.EntropyRequestedEvent, 16)
			sub := o.SubscribeRequested(requested)
			defer sub.Unsubscribe()

			_, err := o.RequestEntropy(ctx, alice, interfaces.Tag{1}, big.NewInt(99))
			assert.ErrorIs(t, err, interfaces.ErrInsufficientFee)
			_, err = o.RequestEntropy(ctx, alice, interfaces.Tag{1}, nil)
			assert.ErrorIs(t, err, interfaces.ErrInsufficientFee)
			assert.Empty(t, requested, "rejected requests emit no event")

			id, err := o.RequestEntropy(ctx, alice, interfaces.Tag{1}, big.NewInt(100))
			require.NoError(t, err)

			select {
			case ev := <-requested:
				assert.Equal(t, id, ev.RequestID)
				assert.Equal(t, interfaces.Tag{1}, ev.Tag)
				assert.Equal(t, alice, ev.Requester)
			case <-time.After(time.Second):
				t.Fatal("no EntropyRequested event")
			}
			assert.Empty(t, requested, "exactly one event per request")

			req, err := o.GetRequest(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, interfaces.StatusRequested, req.Status)
			assert.Equal(t, alice, req.Requester)
			assert.Equal(t, 0, req.FeePaid.Cmp(big.NewInt(100)))
			assert.Nil(t, req.Value)
		})
	}
}

func TestOracle_UniqueIDsForRepeatedTags(t *testing.T) {
	for name, newLedger := range ledgers() {
		t.Run(name, func(t *testing.T) {
			o := newTestOracle(t, newLedger(t), 0)
			ctx := context.Background()

			seen := make(map[interfaces.RequestID]bool)
			for i := 0; i < 20; i++ {
				requester := alice
				if i%2 == 1 {
					requester = bob
				}
				id, err := o.RequestEntropy(ctx, requester, interfaces.Tag{7}, big.NewInt(0))
				require.NoError(t, err)
				require.False(t, seen[id], "request id reused")
				seen[id] = true
			}
		})
	}
}

func TestOracle_FulfillEntropy(t *testing.T) {
	for name, newLedger := range ledgers() {
		t.Run(name, func(t *testing.T) {
			o := newTestOracle(t, newLedger(t), 0)
			ctx := context.Background()

			fulfilled := make(chan interfaces.EntropyFulfilledEvent, 16)
			sub := o.SubscribeFulfilled(fulfilled)
			defer sub.Unsubscribe()

			id, err := o.RequestEntropy(ctx, alice, interfaces.Tag{}, big.NewInt(0))
			require.NoError(t, err)

			_, err = o.GetRequestValue(ctx, id)
			assert.ErrorIs(t, err, interfaces.ErrNotFulfilled)

			err = o.FulfillEntropy(ctx, alice, id, interfaces.Ciphertext("v1"))
			assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

			err = o.FulfillEntropy(ctx, fulfiller, interfaces.RequestID{0xde, 0xad}, interfaces.Ciphertext("v1"))
			assert.ErrorIs(t, err, interfaces.ErrUnknownRequest)

			require.NoError(t, o.FulfillEntropy(ctx, fulfiller, id, interfaces.Ciphertext("v1")))

			select {
			case ev := <-fulfilled:
				assert.Equal(t, id, ev.RequestID)
				assert.Equal(t, interfaces.Ciphertext("v1"), ev.Value)
			case <-time.After(time.Second):
				t.Fatal("no EntropyFulfilled event")
			}

			err = o.FulfillEntropy(ctx, fulfiller, id, interfaces.Ciphertext("v2"))
			assert.ErrorIs(t, err, interfaces.ErrAlreadyFulfilled)
			assert.Empty(t, fulfilled)

			value, err := o.GetRequestValue(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, interfaces.Ciphertext("v1"), value, "second fulfillment does not alter the value")

			status, err := o.GetRequestStatus(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, interfaces.StatusFulfilled, status)
		})
	}
}

func TestOracle_FulfillRejectsEmptyValue(t *testing.T) {
	for name, newLedger := range ledgers() {
		t.Run(name, func(t *testing.T) {
			o := newTestOracle(t, newLedger(t), 0)
			ctx := context.Background()

			id, err := o.RequestEntropy(ctx, alice, interfaces.Tag{}, big.NewInt(0))
			require.NoError(t, err)

			assert.ErrorIs(t, o.FulfillEntropy(ctx, fulfiller, id, nil), interfaces.ErrEmptyValue)
			assert.ErrorIs(t, o.FulfillEntropy(ctx, fulfiller, id, interfaces.Ciphertext{}), interfaces.ErrEmptyValue)

			status, err := o.GetRequestStatus(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, interfaces.StatusRequested, status)

			pending, err := o.PendingRequests(ctx)
			require.NoError(t, err)
			assert.Len(t, pending, 1)

			require.NoError(t, o.FulfillEntropy(ctx, fulfiller, id, interfaces.Ciphertext("v1")))
			value, err := o.GetRequestValue(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, interfaces.Ciphertext("v1"), value)
		})
	}
}

func TestOracle_UnknownRequestReads(t *testing.T) {
	o := newTestOracle(t, NewMemoryLedger(), 0)
	ctx := context.Background()
	unknown := interfaces.RequestID{0x42}

	status, err := o.GetRequestStatus(ctx, unknown)
	assert.ErrorIs(t, err, interfaces.ErrUnknownRequest)
	assert.Equal(t, interfaces.StatusUnknown, status)

	_, err = o.GetRequestValue(ctx, unknown)
	assert.ErrorIs(t, err, interfaces.ErrUnknownRequest)

	_, err = o.GetRequest(ctx, unknown)
	assert.ErrorIs(t, err, interfaces.ErrUnknownRequest)
}

func TestOracle_SetFee(t *testing.T) {
	o := newTestOracle(t, NewMemoryLedger(), 10)
	ctx := context.Background()

	assert.ErrorIs(t, o.SetFee(ctx, alice, big.NewInt(1)), interfaces.ErrUnauthorized)
	assert.ErrorIs(t, o.SetFee(ctx, admin, big.NewInt(-1)), interfaces.ErrInvalidFee)
	assert.ErrorIs(t, o.SetFee(ctx, admin, nil), interfaces.ErrInvalidFee)
	assert.Equal(t, int64(10), o.GetFee().Int64())

	require.NoError(t, o.SetFee(ctx, admin, big.NewInt(50)))
	assert.Equal(t, int64(50), o.GetFee().Int64())

	_, err := o.RequestEntropy(ctx, alice, interfaces.Tag{}, big.NewInt(10))
	assert.ErrorIs(t, err, interfaces.ErrInsufficientFee)

	// The returned fee is a copy.
	o.GetFee().SetInt64(0)
	assert.Equal(t, int64(50), o.GetFee().Int64())
}

func TestOracle_ConcurrentFulfillment(t *testing.T) {
	o := newTestOracle(t, NewMemoryLedger(), 0)
	ctx := context.Background()

	id, err := o.RequestEntropy(ctx, alice, interfaces.Tag{}, big.NewInt(0))
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := o.FulfillEntropy(ctx, fulfiller, id, interfaces.Ciphertext{byte(i)})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, interfaces.ErrAlreadyFulfilled)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestRequestIDFor(t *testing.T) {
	a, err := RequestIDFor(oracleAddr, alice, interfaces.Tag{1}, 0)
	require.NoError(t, err)
	b, err := RequestIDFor(oracleAddr, alice, interfaces.Tag{1}, 0)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	for _, other := range []func() (interfaces.RequestID, error){
		func() (interfaces.RequestID, error) { return RequestIDFor(oracleAddr, alice, interfaces.Tag{1}, 1) },
		func() (interfaces.RequestID, error) { return RequestIDFor(oracleAddr, bob, interfaces.Tag{1}, 0) },
		func() (interfaces.RequestID, error) { return RequestIDFor(oracleAddr, alice, interfaces.Tag{2}, 0) },
		func() (interfaces.RequestID, error) { return RequestIDFor(interfaces.Identity{0xff}, alice, interfaces.Tag{1}, 0) },
	} {
		id, err := other()
		require.NoError(t, err)
		assert.NotEqual(t, a, id)
	}
}
