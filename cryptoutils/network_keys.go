package cryptoutils

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// NetworkPubkey is the coprocessor network's P-256 public key in PEM format.
// Clients encrypt inputs to it.
type NetworkPubkey []byte

// NewNetworkPubkey validates PEM-encoded P-256 public key data.
func NewNetworkPubkey(data []byte) (NetworkPubkey, error) {
	pub := NetworkPubkey(data)
	if _, err := pub.PublicKey(); err != nil {
		return nil, err
	}
	return pub, nil
}

// PublicKey parses the PEM data.
func (pub NetworkPubkey) PublicKey() (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(pub)
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, errors.New("invalid public key: not in PEM format or not a public key")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("invalid public key structure: %w", err)
	}

	key, ok := parsed.(*ecdsa.PublicKey)
	if !ok || key.Curve != elliptic.P256() {
		return nil, errors.New("not a P-256 public key")
	}
	return key, nil
}

// NetworkPrivkey is the coprocessor network's P-256 private key in PEM format.
type NetworkPrivkey []byte

// NewNetworkPrivkey validates PEM-encoded P-256 private key data.
func NewNetworkPrivkey(data []byte) (NetworkPrivkey, error) {
	priv := NetworkPrivkey(data)
	if _, err := priv.PrivateKey(); err != nil {
		return nil, err
	}
	return priv, nil
}

// PrivateKey parses the PEM data. Both SEC 1 and PKCS #8 encodings are accepted.
func (priv NetworkPrivkey) PrivateKey() (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(priv)
	if block == nil {
		return nil, errors.New("invalid private key: not in PEM format")
	}

	switch block.Type {
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("invalid private key structure: %w", err)
		}
		key, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("unsupported private key type: %T", parsed)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unexpected PEM block %q", block.Type)
	}
}

// Pubkey returns the matching public key PEM.
func (priv NetworkPrivkey) Pubkey() (NetworkPubkey, error) {
	key, err := priv.PrivateKey()
	if err != nil {
		return nil, err
	}
	return encodePubkey(&key.PublicKey)
}

// RandomNetworkKeypair generates a fresh P-256 keypair.
func RandomNetworkKeypair() (NetworkPubkey, NetworkPrivkey, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	privateKeyBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return nil, nil, err
	}

	pub, err := encodePubkey(&privateKey.PublicKey)
	if err != nil {
		return nil, nil, err
	}

	return pub, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: privateKeyBytes}), nil
}

func encodePubkey(key *ecdsa.PublicKey) (NetworkPubkey, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
