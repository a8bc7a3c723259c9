package interfaces

import "context"

// EncryptedValueStore is a write-once table of encrypted records, each readable
// by exactly one allowed user.
type EncryptedValueStore interface {
	StoreAndAllow(ctx context.Context, caller Identity, key uint64, ciphertext Ciphertext, proof InputProof, allowedUser Identity) error
	StoreAndAllowBatch(ctx context.Context, caller Identity, keys []uint64, ciphertexts []Ciphertext, proofs []InputProof, allowedUsers []Identity) error

	// The entropy variants fail with ErrEntropyNotReady unless requestID is fulfilled.
	StoreAndAllowWithEntropy(ctx context.Context, caller Identity, key uint64, ciphertext Ciphertext, proof InputProof, allowedUser Identity, requestID RequestID) error
	StoreAndAllowBatchWithEntropy(ctx context.Context, caller Identity, keys []uint64, ciphertexts []Ciphertext, proofs []InputProof, allowedUsers []Identity, requestID RequestID) error

	GetEncryptedValue(ctx context.Context, key uint64) (Ciphertext, error)
	GetAllowedUser(ctx context.Context, key uint64) (Identity, error)
	IsAllowed(ctx context.Context, key uint64, user Identity) (bool, error)
	IsKeyInitialized(ctx context.Context, key uint64) (bool, error)
	GetTotalValues(ctx context.Context) (uint64, error)
	GetEntropyOracle() EntropyStatusReader

	// Address identifies the store that encrypted inputs are bound to.
	Address() Identity
}

// RecordBackend persists the store's record table.
//
// Insert must be atomic: either every record is written or none is. It must
// fail with ErrKeyAlreadyInitialized if any key is already present or appears
// more than once in records. Get returns records that share no memory with
// the table.
type RecordBackend interface {
	Get(ctx context.Context, key uint64) (EncryptedRecord, error)
	Has(ctx context.Context, key uint64) (bool, error)
	Insert(ctx context.Context, records []EncryptedRecord) error
	Count(ctx context.Context) (uint64, error)
	Close() error
}
