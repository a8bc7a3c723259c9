package coprocessor

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/entropy-vault/interfaces"
)

// ProofLength is the size of an input proof: a recoverable secp256k1 signature.
const ProofLength = crypto.SignatureLength

// InputDigest is the hash a proof signs. It binds the ciphertext to the
// consuming contract and the submitting caller, so a proof cannot be replayed
// against another store or by another caller.
func InputDigest(contract, caller interfaces.Identity, ciphertext interfaces.Ciphertext) []byte {
	return crypto.Keccak256(contract.Bytes(), caller.Bytes(), crypto.Keccak256(ciphertext))
}

// SignInput produces the proof for an input.
func SignInput(signer *ecdsa.PrivateKey, contract, caller interfaces.Identity, ciphertext interfaces.Ciphertext) (interfaces.InputProof, error) {
	sig, err := crypto.Sign(InputDigest(contract, caller, ciphertext), signer)
	if err != nil {
		return nil, fmt.Errorf("could not sign input: %w", err)
	}
	return sig, nil
}

// SignedInputVerifier accepts inputs whose proof was signed by one of a fixed
// set of coprocessor signers.
type SignedInputVerifier struct {
	signers map[common.Address]struct{}
	log     *slog.Logger
}

// NewSignedInputVerifier creates a verifier trusting signers.
func NewSignedInputVerifier(signers []interfaces.Identity, log *slog.Logger) *SignedInputVerifier {
	set := make(map[common.Address]struct{}, len(signers))
	for _, s := range signers {
		set[common.Address(s)] = struct{}{}
	}
	return &SignedInputVerifier{signers: set, log: log}
}

// VerifyInput implements interfaces.Coprocessor.
func (v *SignedInputVerifier) VerifyInput(ctx context.Context, input interfaces.EncryptedInput) error {
	if len(input.Ciphertext) == 0 {
		return fmt.Errorf("%w: empty ciphertext", interfaces.ErrInvalidProof)
	}
	if len(input.Proof) != ProofLength {
		return fmt.Errorf("%w: proof must be %d bytes, got %d", interfaces.ErrInvalidProof, ProofLength, len(input.Proof))
	}

	pubkey, err := crypto.SigToPub(InputDigest(input.Contract, input.Caller, input.Ciphertext), input.Proof)
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrInvalidProof, err)
	}

	signer := crypto.PubkeyToAddress(*pubkey)
	if _, ok := v.signers[signer]; !ok {
		v.log.Debug("input signed by untrusted signer", "signer", signer.Hex(), "contract", input.Contract.String())
		return fmt.Errorf("%w: untrusted signer %s", interfaces.ErrInvalidProof, signer.Hex())
	}

	return nil
}
