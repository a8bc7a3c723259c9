package valuestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/ruteri/entropy-vault/interfaces"
)

// MemoryBackend is an append-only in-memory record table.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[uint64]interfaces.EncryptedRecord
}

// NewMemoryBackend creates an empty table.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[uint64]interfaces.EncryptedRecord)}
}

func (b *MemoryBackend) Get(ctx context.Context, key uint64) (interfaces.EncryptedRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.records[key]
	if !ok {
		return interfaces.EncryptedRecord{}, interfaces.ErrKeyNotInitialized
	}
	return copyRecord(record), nil
}

func (b *MemoryBackend) Has(ctx context.Context, key uint64) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.records[key]
	return ok, nil
}

func (b *MemoryBackend) Insert(ctx context.Context, records []interfaces.EncryptedRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[uint64]struct{}, len(records))
	for _, record := range records {
		if _, ok := b.records[record.Key]; ok {
			return interfaces.ErrKeyAlreadyInitialized
		}
		if _, ok := seen[record.Key]; ok {
			return fmt.Errorf("%w: key %d repeated in batch", interfaces.ErrKeyAlreadyInitialized, record.Key)
		}
		seen[record.Key] = struct{}{}
	}
	for _, record := range records {
		b.records[record.Key] = copyRecord(record)
	}
	return nil
}

func (b *MemoryBackend) Count(ctx context.Context) (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return uint64(len(b.records)), nil
}

func (b *MemoryBackend) Close() error { return nil }

// copyRecord detaches a record from caller-owned memory.
func copyRecord(record interfaces.EncryptedRecord) interfaces.EncryptedRecord {
	if record.Ciphertext != nil {
		record.Ciphertext = append(interfaces.Ciphertext{}, record.Ciphertext...)
	}
	if record.Proof != nil {
		record.Proof = append(interfaces.InputProof{}, record.Proof...)
	}
	if record.EntropyRequest != nil {
		id := *record.EntropyRequest
		record.EntropyRequest = &id
	}
	if record.Payload != nil {
		ref := *record.Payload
		record.Payload = &ref
	}
	return record
}
