package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const gcmNonceSize = 12

// ErrMalformedCiphertext is returned for sealed data that cannot be parsed.
var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// Seal encrypts data to pub with ECIES: ephemeral ECDH on P-256, SHA-256 of the
// shared secret as the AES-256-GCM key. binding is authenticated but not
// encrypted, so a ciphertext only opens under the same binding.
//
// Output layout: [ephemeral key length (2 bytes)][ephemeral key][nonce][sealed data]
func Seal(pub NetworkPubkey, data []byte, binding []byte) ([]byte, error) {
	ecdsaKey, err := pub.PublicKey()
	if err != nil {
		return nil, err
	}
	recipient, err := ecdsaKey.ECDH()
	if err != nil {
		return nil, fmt.Errorf("failed to convert public key: %w", err)
	}

	ephemeral, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}

	gcm, err := sharedGCM(ephemeral, recipient)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ephemeralBytes := ephemeral.PublicKey().Bytes()
	out := make([]byte, 2, 2+len(ephemeralBytes)+gcmNonceSize+len(data)+gcm.Overhead())
	binary.BigEndian.PutUint16(out, uint16(len(ephemeralBytes)))
	out = append(out, ephemeralBytes...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, data, binding), nil
}

// Open reverses Seal.
func Open(priv NetworkPrivkey, sealed []byte, binding []byte) ([]byte, error) {
	ecdsaKey, err := priv.PrivateKey()
	if err != nil {
		return nil, err
	}
	recipient, err := ecdsaKey.ECDH()
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key: %w", err)
	}

	if len(sealed) < 2 {
		return nil, ErrMalformedCiphertext
	}
	keyLen := int(binary.BigEndian.Uint16(sealed[:2]))
	if len(sealed) < 2+keyLen+gcmNonceSize {
		return nil, ErrMalformedCiphertext
	}

	ephemeral, err := ecdh.P256().NewPublicKey(sealed[2 : 2+keyLen])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}

	gcm, err := sharedGCM(recipient, ephemeral)
	if err != nil {
		return nil, err
	}

	nonce := sealed[2+keyLen : 2+keyLen+gcmNonceSize]
	plaintext, err := gcm.Open(nil, nonce, sealed[2+keyLen+gcmNonceSize:], binding)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

func sharedGCM(priv *ecdh.PrivateKey, pub *ecdh.PublicKey) (cipher.AEAD, error) {
	shared, err := priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("key agreement failed: %w", err)
	}
	key := sha256.Sum256(shared)

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
