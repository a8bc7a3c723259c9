package oraclehandler

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/ruteri/entropy-vault/accessgate"
	"github.com/ruteri/entropy-vault/api"
	"github.com/ruteri/entropy-vault/interfaces"
	"github.com/ruteri/entropy-vault/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server    *httptest.Server
	oracle    *oracle.Oracle
	admin     *ecdsa.PrivateKey
	fulfiller *ecdsa.PrivateKey
	user      *ecdsa.PrivateKey
}

func identityOf(key *ecdsa.PrivateKey) interfaces.Identity {
	return interfaces.Identity(crypto.PubkeyToAddress(key.PublicKey))
}

func setupTestEnvironment(t *testing.T) *testEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	env := &testEnv{}
	for _, key := range []**ecdsa.PrivateKey{&env.admin, &env.fulfiller, &env.user} {
		k, err := crypto.GenerateKey()
		require.NoError(t, err)
		*key = k
	}

	roles := accessgate.NewStaticRoleTable().
		WithMembers(interfaces.RoleAdmin, identityOf(env.admin)).
		WithMembers(interfaces.RoleFulfiller, identityOf(env.fulfiller))
	env.oracle = oracle.NewOracle(interfaces.Identity{0x0c}, accessgate.NewGate(roles, logger), oracle.NewMemoryLedger(), big.NewInt(5), logger)

	mux := chi.NewRouter()
	NewHandler(env.oracle, api.NewAuthenticator(time.Minute, logger), logger).RegisterRoutes(mux)
	env.server = httptest.NewServer(mux)
	t.Cleanup(env.server.Close)
	return env
}

func (env *testEnv) client(key *ecdsa.PrivateKey) *Client {
	return NewClient(api.NewClient(env.server.URL, key))
}

func TestOracleHandler_RequestAndFulfill(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnvironment(t)
	user := env.client(env.user)
	fulfiller := env.client(env.fulfiller)

	fee, err := user.GetFee(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), fee.Int64())

	_, err = user.RequestEntropy(ctx, interfaces.Tag{1}, big.NewInt(4))
	assert.ErrorIs(t, err, interfaces.ErrInsufficientFee)

	id, err := user.RequestEntropy(ctx, interfaces.Tag{1}, big.NewInt(5))
	require.NoError(t, err)

	req, err := user.GetRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "requested", req.Status)
	assert.Equal(t, identityOf(env.user), req.Requester)
	assert.Nil(t, req.FulfilledAt)

	status, err := user.GetRequestStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, interfaces.StatusRequested, status)

	pending, err := user.PendingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].RequestID)

	_, err = user.GetRequestValue(ctx, id)
	assert.ErrorIs(t, err, interfaces.ErrNotFulfilled)

	// Only fulfillers may fulfill.
	err = user.FulfillEntropy(ctx, id, interfaces.Ciphertext{0xaa})
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	err = fulfiller.FulfillEntropy(ctx, id, interfaces.Ciphertext{})
	assert.ErrorIs(t, err, interfaces.ErrEmptyValue)

	require.NoError(t, fulfiller.FulfillEntropy(ctx, id, interfaces.Ciphertext{0xaa, 0xbb}))

	err = fulfiller.FulfillEntropy(ctx, id, interfaces.Ciphertext{0xcc})
	assert.ErrorIs(t, err, interfaces.ErrAlreadyFulfilled)

	value, err := user.GetRequestValue(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, interfaces.Ciphertext{0xaa, 0xbb}, value)

	req, err = user.GetRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "fulfilled", req.Status)
	assert.NotNil(t, req.FulfilledAt)
}

func TestOracleHandler_UnknownRequest(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnvironment(t)
	user := env.client(env.user)

	_, err := user.GetRequest(ctx, interfaces.RequestID{0xde, 0xad})
	assert.ErrorIs(t, err, interfaces.ErrUnknownRequest)

	status, err := user.GetRequestStatus(ctx, interfaces.RequestID{0xde, 0xad})
	assert.ErrorIs(t, err, interfaces.ErrUnknownRequest)
	assert.Equal(t, interfaces.StatusUnknown, status)

	err = env.client(env.fulfiller).FulfillEntropy(ctx, interfaces.RequestID{0xde, 0xad}, interfaces.Ciphertext{1})
	assert.ErrorIs(t, err, interfaces.ErrUnknownRequest)

	resp, err := http.Get(env.server.URL + "/api/oracle/requests/not-hex")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOracleHandler_SetFee(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnvironment(t)

	err := env.client(env.user).SetFee(ctx, big.NewInt(100))
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	err = env.client(env.admin).SetFee(ctx, big.NewInt(-1))
	assert.ErrorIs(t, err, interfaces.ErrInvalidFee)

	require.NoError(t, env.client(env.admin).SetFee(ctx, big.NewInt(100)))

	fee, err := env.client(nil).GetFee(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), fee.Int64())
}

func TestOracleHandler_RequiresSignature(t *testing.T) {
	env := setupTestEnvironment(t)

	resp, err := http.Post(env.server.URL+"/api/oracle/requests", "application/json", strings.NewReader(`{"fee":5}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Clients without a key refuse to send signed calls.
	_, err = env.client(nil).RequestEntropy(context.Background(), interfaces.Tag{}, big.NewInt(5))
	assert.Error(t, err)
}

func TestClient_WaitForFulfillment(t *testing.T) {
	env := setupTestEnvironment(t)
	user := env.client(env.user)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := user.RequestEntropy(ctx, interfaces.Tag{2}, big.NewInt(5))
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = env.oracle.FulfillEntropy(context.Background(), identityOf(env.fulfiller), id, interfaces.Ciphertext{0x42})
	}()

	value, err := user.WaitForFulfillment(ctx, id, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, interfaces.Ciphertext{0x42}, value)

	short, cancelShort := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancelShort()
	pendingID, err := user.RequestEntropy(ctx, interfaces.Tag{3}, big.NewInt(5))
	require.NoError(t, err)
	_, err = user.WaitForFulfillment(short, pendingID, 10*time.Millisecond)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline"), err)
}
