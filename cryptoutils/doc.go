// Package cryptoutils encrypts inputs to the coprocessor network key.
//
// The network keypair is a P-256 key held in PEM. Seal encrypts with an
// ephemeral ECDH key, derives an AES-256-GCM key from the shared secret with
// SHA-256, and authenticates a caller-supplied binding as additional data.
// Open reverses it; a sealed payload opened with a different binding fails.
//
// Sealed layout:
//
//	key length (2 bytes) || ephemeral pubkey || nonce (12 bytes) || ciphertext+tag
package cryptoutils
