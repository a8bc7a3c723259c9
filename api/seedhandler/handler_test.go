package seedhandler

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/ruteri/entropy-vault/accessgate"
	"github.com/ruteri/entropy-vault/api"
	"github.com/ruteri/entropy-vault/coprocessor"
	"github.com/ruteri/entropy-vault/cryptoutils"
	"github.com/ruteri/entropy-vault/entropy"
	"github.com/ruteri/entropy-vault/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedHandler_Initialize(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	pub, _, err := cryptoutils.RandomNetworkKeypair()
	require.NoError(t, err)
	inputSigner, err := crypto.GenerateKey()
	require.NoError(t, err)
	builder, err := coprocessor.NewInputBuilder(pub, inputSigner)
	require.NoError(t, err)
	verifier := coprocessor.NewSignedInputVerifier(
		[]interfaces.Identity{interfaces.Identity(crypto.PubkeyToAddress(inputSigner.PublicKey))}, logger)

	adminKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	admin := interfaces.Identity(crypto.PubkeyToAddress(adminKey.PublicKey))
	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	engineAddr := interfaces.Identity{0xe0}
	roles := accessgate.NewStaticRoleTable().WithMembers(interfaces.RoleAdmin, admin)
	engine := entropy.NewEngine(engineAddr, accessgate.NewGate(roles, logger), verifier, logger)

	mux := chi.NewRouter()
	NewHandler(engine, api.NewAuthenticator(time.Minute, logger), logger).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	adminClient := NewClient(api.NewClient(server.URL, adminKey))
	otherClient := NewClient(api.NewClient(server.URL, otherKey))

	status, err := adminClient.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Initialized)
	assert.Equal(t, engineAddr, status.Address)

	seed, err := entropy.GenerateSeed()
	require.NoError(t, err)
	input, err := builder.EncryptBytes(engineAddr, admin, seed)
	require.NoError(t, err)

	err = otherClient.InitializeSeed(ctx, input)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	// Bound to the wrong component.
	wrong, err := builder.EncryptBytes(interfaces.Identity{0x01}, admin, seed)
	require.NoError(t, err)
	err = adminClient.InitializeSeed(ctx, wrong)
	assert.ErrorIs(t, err, interfaces.ErrInvalidProof)

	require.NoError(t, adminClient.InitializeSeed(ctx, input))

	err = adminClient.InitializeSeed(ctx, input)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyInitialized)

	status, err = adminClient.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Initialized)
}
