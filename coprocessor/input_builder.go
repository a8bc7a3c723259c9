package coprocessor

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"

	"github.com/ruteri/entropy-vault/cryptoutils"
	"github.com/ruteri/entropy-vault/interfaces"
)

// InputBuilder creates encrypted inputs the way a coprocessor gateway would:
// the plaintext is sealed to the network key and the resulting ciphertext is
// signed for a (contract, caller) pair.
type InputBuilder struct {
	networkKey cryptoutils.NetworkPubkey
	signer     *ecdsa.PrivateKey
}

// NewInputBuilder creates a builder. signer must be one of the keys trusted by
// the SignedInputVerifier of the target deployment.
func NewInputBuilder(networkKey cryptoutils.NetworkPubkey, signer *ecdsa.PrivateKey) (*InputBuilder, error) {
	if _, err := networkKey.PublicKey(); err != nil {
		return nil, fmt.Errorf("invalid network key: %w", err)
	}
	return &InputBuilder{networkKey: networkKey, signer: signer}, nil
}

// EncryptBytes seals data for contract, to be submitted by caller.
func (b *InputBuilder) EncryptBytes(contract, caller interfaces.Identity, data []byte) (interfaces.EncryptedInput, error) {
	ciphertext, err := cryptoutils.Seal(b.networkKey, data, InputBinding(contract, caller))
	if err != nil {
		return interfaces.EncryptedInput{}, fmt.Errorf("could not encrypt input: %w", err)
	}

	proof, err := SignInput(b.signer, contract, caller, ciphertext)
	if err != nil {
		return interfaces.EncryptedInput{}, err
	}

	return interfaces.EncryptedInput{
		Ciphertext: ciphertext,
		Proof:      proof,
		Contract:   contract,
		Caller:     caller,
	}, nil
}

// EncryptUint64 seals a big-endian uint64.
func (b *InputBuilder) EncryptUint64(contract, caller interfaces.Identity, value uint64) (interfaces.EncryptedInput, error) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], value)
	return b.EncryptBytes(contract, caller, buf[:])
}

// InputBinding is the associated data a ciphertext is sealed under.
func InputBinding(contract, caller interfaces.Identity) []byte {
	binding := make([]byte, 0, 40)
	binding = append(binding, contract.Bytes()...)
	return append(binding, caller.Bytes()...)
}
