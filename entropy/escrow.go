package entropy

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/hashicorp/vault/shamir"
)

// SeedLength is the size of a freshly generated plaintext seed.
const SeedLength = 32

// GenerateSeed returns SeedLength random bytes.
func GenerateSeed() ([]byte, error) {
	seed := make([]byte, SeedLength)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("failed to generate seed: %w", err)
	}
	return seed, nil
}

// SplitSeed splits a plaintext seed into shares for offline escrow by the
// admins. Any threshold of them reconstructs the seed.
func SplitSeed(seed []byte, shares, threshold int) ([][]byte, error) {
	if len(seed) < SeedLength {
		return nil, fmt.Errorf("seed must be at least %d bytes", SeedLength)
	}
	if threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}
	if shares < threshold {
		return nil, errors.New("total shares must be at least equal to threshold")
	}

	parts, err := shamir.Split(seed, shares, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to split seed: %w", err)
	}
	return parts, nil
}

// CombineSeed reconstructs a seed from escrowed shares. Too few shares yield
// a wrong seed rather than an error, so callers should compare the result
// against a known commitment where one exists.
func CombineSeed(shares [][]byte) ([]byte, error) {
	if len(shares) < 2 {
		return nil, errors.New("at least two shares are required")
	}

	seed, err := shamir.Combine(shares)
	if err != nil {
		return nil, fmt.Errorf("failed to combine shares: %w", err)
	}
	return seed, nil
}
