package valuestore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/ruteri/entropy-vault/interfaces"
)

func newPropertyStore() *Store {
	s, err := NewStore(StoreConfig{
		Address:     storeAddr,
		Coprocessor: stubCoprocessor{},
		Oracle:      &MockStatusReader{},
		Log:         silentLogger(),
	})
	if err != nil {
		panic(err)
	}
	return s
}

// TestStore_WriteOnceProperty checks that for any sequence of writes the first
// write per key wins, later writes fail, and the total equals the number of
// distinct keys.
func TestStore_WriteOnceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("first write per key is permanent", prop.ForAll(
		func(keys []uint64) bool {
			ctx := context.Background()
			s := newPropertyStore()

			first := make(map[uint64]interfaces.Ciphertext)
			for i, key := range keys {
				value := interfaces.Ciphertext(fmt.Sprintf("v%d", i))
				err := s.StoreAndAllow(ctx, writer, key, value, pf("p"), alice)

				if _, seen := first[key]; seen {
					if !errors.Is(err, interfaces.ErrKeyAlreadyInitialized) {
						return false
					}
					continue
				}
				if err != nil {
					return false
				}
				first[key] = value
			}

			for key, value := range first {
				stored, err := s.GetEncryptedValue(ctx, key)
				if err != nil || !stored.Equal(value) {
					return false
				}
			}

			total, err := s.GetTotalValues(ctx)
			return err == nil && total == uint64(len(first))
		},
		gen.SliceOf(gen.UInt64Range(0, 16)),
	))

	properties.TestingRun(t)
}

// TestStore_BatchAllOrNothingProperty checks that a batch either commits all
// of its entries or leaves the store unchanged.
func TestStore_BatchAllOrNothingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("batches are atomic", prop.ForAll(
		func(existing []uint64, batch []uint64) bool {
			ctx := context.Background()
			s := newPropertyStore()

			occupied := make(map[uint64]bool)
			for _, key := range existing {
				if occupied[key] {
					continue
				}
				if err := s.StoreAndAllow(ctx, writer, key, ct("old"), pf("p"), alice); err != nil {
					return false
				}
				occupied[key] = true
			}
			before, _ := s.GetTotalValues(ctx)

			ciphertexts := make([]interfaces.Ciphertext, len(batch))
			proofs := make([]interfaces.InputProof, len(batch))
			users := make([]interfaces.Identity, len(batch))
			for i := range batch {
				ciphertexts[i] = ct("new")
				proofs[i] = pf("p")
				users[i] = bob
			}

			expectOK := len(batch) > 0
			seen := make(map[uint64]bool)
			for _, key := range batch {
				if occupied[key] || seen[key] {
					expectOK = false
				}
				seen[key] = true
			}

			err := s.StoreAndAllowBatch(ctx, writer, batch, ciphertexts, proofs, users)
			after, _ := s.GetTotalValues(ctx)

			if expectOK {
				return err == nil && after == before+uint64(len(batch))
			}
			return err != nil && after == before
		},
		gen.SliceOf(gen.UInt64Range(0, 32)),
		gen.SliceOfN(4, gen.UInt64Range(0, 32)),
	))

	properties.TestingRun(t)
}
