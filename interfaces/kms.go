package interfaces

import "context"

// Coprocessor validates encrypted inputs. It is trusted to reject malformed
// proofs; the vault never looks inside a ciphertext.
type Coprocessor interface {
	// VerifyInput returns an error wrapping ErrInvalidProof if the proof does
	// not bind the ciphertext to the input's contract and caller.
	VerifyInput(ctx context.Context, input EncryptedInput) error
}

// EntropySource holds the master seed and derives entropy values from it.
type EntropySource interface {
	// Address identifies the engine that seed inputs are bound to.
	Address() Identity

	// InitializeMasterSeed sets the seed exactly once. Admin only.
	InitializeMasterSeed(ctx context.Context, caller Identity, encryptedSeed Ciphertext, proof InputProof) error

	// IsSeedInitialized reports whether a seed is set.
	IsSeedInitialized() bool

	// DeriveEntropy deterministically derives a value from the seed and counter.
	// Callers must supply a fresh counter for every value they need.
	DeriveEntropy(counter uint64) (Ciphertext, error)
}
