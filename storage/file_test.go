package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/entropy-vault/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_StoreFetch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	backend, err := NewFileBackend(dir, silentLogger())
	require.NoError(t, err)
	assert.True(t, backend.Available(ctx))

	data := []byte{0x00, 0xff, 0x10, 0x42}
	id, err := backend.Store(ctx, data, interfaces.CiphertextType)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeID(data), id)

	_, err = os.Stat(filepath.Join(dir, "ciphertexts", id.String()))
	require.NoError(t, err)

	fetched, err := backend.Fetch(ctx, id, interfaces.CiphertextType)
	require.NoError(t, err)
	assert.Equal(t, data, fetched)

	// Types are separate namespaces.
	_, err = backend.Fetch(ctx, id, interfaces.ProofType)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)

	again, err := backend.Store(ctx, data, interfaces.CiphertextType)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestFileBackend_DetectsCorruption(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	backend, err := NewFileBackend(dir, silentLogger())
	require.NoError(t, err)

	id, err := backend.Store(ctx, []byte("proof"), interfaces.ProofType)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "proofs", id.String()), []byte("tampered"), 0o644))

	_, err = backend.Fetch(ctx, id, interfaces.ProofType)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestStorageBackendFactory(t *testing.T) {
	factory := NewStorageBackendFactory(silentLogger())
	dir := t.TempDir()

	tests := []struct {
		name    string
		uri     string
		wantErr bool
		prefix  string
	}{
		{name: "file", uri: "file://" + dir, prefix: "file-"},
		{name: "s3", uri: "s3://AKID:SECRET@payloads/vault?region=eu-west-1&endpoint=http://localhost:9000", prefix: "s3-payloads"},
		{name: "ipfs", uri: "ipfs://localhost:5001/entropy-vault?timeout=5s", prefix: "ipfs-localhost-5001"},
		{name: "ipfs bad timeout", uri: "ipfs://localhost:5001/?timeout=soon", wantErr: true},
		{name: "vault", uri: "vault://token@localhost:8200/secret/entropy-vault", prefix: "vault-secret"},
		{name: "vault without path", uri: "vault://localhost:8200/secret", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			location, err := interfaces.NewStorageBackendLocation(tt.uri)
			require.NoError(t, err)

			backend, err := factory.StorageBackendFor(location)
			if tt.wantErr {
				assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, backend.Name(), tt.prefix)
		})
	}

	_, err := interfaces.NewStorageBackendLocation("github://owner/repo")
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}

func TestStorageBackendFactory_CreateMultiBackend(t *testing.T) {
	factory := NewStorageBackendFactory(silentLogger())

	locations, err := ParseLocations([]string{"file://" + t.TempDir(), "file://" + t.TempDir()})
	require.NoError(t, err)

	backend, err := factory.CreateMultiBackend(locations)
	require.NoError(t, err)
	assert.Equal(t, "multi-storage", backend.Name())

	ctx := context.Background()
	id, err := backend.Store(ctx, []byte("payload"), interfaces.CiphertextType)
	require.NoError(t, err)

	data, err := backend.Fetch(ctx, id, interfaces.CiphertextType)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	_, err = factory.CreateMultiBackend(nil)
	assert.Error(t, err)
}
