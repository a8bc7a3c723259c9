package coprocessor

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/entropy-vault/cryptoutils"
	"github.com/ruteri/entropy-vault/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T) (*InputBuilder, *SignedInputVerifier, cryptoutils.NetworkPrivkey) {
	t.Helper()

	pub, priv, err := cryptoutils.RandomNetworkKeypair()
	require.NoError(t, err)

	signer, err := crypto.GenerateKey()
	require.NoError(t, err)

	builder, err := NewInputBuilder(pub, signer)
	require.NoError(t, err)

	verifier := NewSignedInputVerifier(
		[]interfaces.Identity{interfaces.Identity(crypto.PubkeyToAddress(signer.PublicKey))},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return builder, verifier, priv
}

func TestSignedInputVerifier(t *testing.T) {
	builder, verifier, _ := newTestBuilder(t)

	store := interfaces.Identity{0xaa}
	caller := interfaces.Identity{0x01}

	input, err := builder.EncryptUint64(store, caller, 42)
	require.NoError(t, err)
	require.NoError(t, verifier.VerifyInput(context.Background(), input))

	tests := []struct {
		name   string
		mutate func(in interfaces.EncryptedInput) interfaces.EncryptedInput
	}{
		{"other contract", func(in interfaces.EncryptedInput) interfaces.EncryptedInput {
			in.Contract = interfaces.Identity{0xbb}
			return in
		}},
		{"other caller", func(in interfaces.EncryptedInput) interfaces.EncryptedInput {
			in.Caller = interfaces.Identity{0x02}
			return in
		}},
		{"tampered ciphertext", func(in interfaces.EncryptedInput) interfaces.EncryptedInput {
			ct := append(interfaces.Ciphertext{}, in.Ciphertext...)
			ct[len(ct)-1] ^= 0xff
			in.Ciphertext = ct
			return in
		}},
		{"empty ciphertext", func(in interfaces.EncryptedInput) interfaces.EncryptedInput {
			in.Ciphertext = nil
			return in
		}},
		{"short proof", func(in interfaces.EncryptedInput) interfaces.EncryptedInput {
			in.Proof = in.Proof[:10]
			return in
		}},
		{"garbage proof", func(in interfaces.EncryptedInput) interfaces.EncryptedInput {
			in.Proof = make(interfaces.InputProof, ProofLength)
			return in
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifier.VerifyInput(context.Background(), tt.mutate(input))
			assert.ErrorIs(t, err, interfaces.ErrInvalidProof)
		})
	}
}

func TestSignedInputVerifier_UntrustedSigner(t *testing.T) {
	builder, _, _ := newTestBuilder(t)
	_, otherVerifier, _ := newTestBuilder(t)

	input, err := builder.EncryptBytes(interfaces.Identity{0xaa}, interfaces.Identity{0x01}, []byte("payload"))
	require.NoError(t, err)

	err = otherVerifier.VerifyInput(context.Background(), input)
	assert.ErrorIs(t, err, interfaces.ErrInvalidProof)
}

func TestInputBuilder_NetworkCanOpen(t *testing.T) {
	builder, _, priv := newTestBuilder(t)

	store := interfaces.Identity{0xaa}
	caller := interfaces.Identity{0x01}

	input, err := builder.EncryptBytes(store, caller, []byte("seed material"))
	require.NoError(t, err)

	plaintext, err := cryptoutils.Open(priv, input.Ciphertext, InputBinding(store, caller))
	require.NoError(t, err)
	assert.Equal(t, []byte("seed material"), plaintext)

	_, err = cryptoutils.Open(priv, input.Ciphertext, InputBinding(interfaces.Identity{0xbb}, caller))
	assert.Error(t, err)
}
