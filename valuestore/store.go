package valuestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ruteri/entropy-vault/interfaces"
)

// StoreConfig wires a Store to its collaborators.
type StoreConfig struct {
	// Address is the identity encrypted inputs must be bound to.
	Address interfaces.Identity

	Coprocessor interfaces.Coprocessor

	// Oracle is consulted, read-only, by the entropy-gated writes.
	Oracle interfaces.EntropyStatusReader

	// Backend holds the record table. Defaults to a MemoryBackend.
	Backend interfaces.RecordBackend

	// Payloads, if set, receives ciphertexts and proofs; records then only
	// carry their content ids.
	Payloads interfaces.StorageBackend

	Log *slog.Logger
}

// Store is the encrypted value store. Keys are write-once: the first
// successful write for a key is permanent and every later write fails with
// ErrKeyAlreadyInitialized.
//
// Writes are serialized by one mutex. A batch is validated entirely before a
// single backend Insert commits it, so a failing batch leaves no trace.
type Store struct {
	address     interfaces.Identity
	coprocessor interfaces.Coprocessor
	oracle      interfaces.EntropyStatusReader
	backend     interfaces.RecordBackend
	payloads    interfaces.StorageBackend
	log         *slog.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewStore creates a store. The oracle reference is fixed for its lifetime.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Coprocessor == nil {
		return nil, errors.New("coprocessor is required")
	}
	if cfg.Oracle == nil {
		return nil, errors.New("entropy oracle is required")
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Backend == nil {
		cfg.Backend = NewMemoryBackend()
	}

	return &Store{
		address:     cfg.Address,
		coprocessor: cfg.Coprocessor,
		oracle:      cfg.Oracle,
		backend:     cfg.Backend,
		payloads:    cfg.Payloads,
		log:         cfg.Log,
		now:         time.Now,
	}, nil
}

// Address implements interfaces.EncryptedValueStore.
func (s *Store) Address() interfaces.Identity {
	return s.address
}

// GetEntropyOracle returns the oracle the store was constructed with.
func (s *Store) GetEntropyOracle() interfaces.EntropyStatusReader {
	return s.oracle
}

// StoreAndAllow writes one record readable by allowedUser.
func (s *Store) StoreAndAllow(ctx context.Context, caller interfaces.Identity, key uint64, ciphertext interfaces.Ciphertext, proof interfaces.InputProof, allowedUser interfaces.Identity) error {
	return s.commit(ctx, caller, []uint64{key}, []interfaces.Ciphertext{ciphertext}, []interfaces.InputProof{proof}, []interfaces.Identity{allowedUser}, nil)
}

// StoreAndAllowBatch writes every entry or none of them.
func (s *Store) StoreAndAllowBatch(ctx context.Context, caller interfaces.Identity, keys []uint64, ciphertexts []interfaces.Ciphertext, proofs []interfaces.InputProof, allowedUsers []interfaces.Identity) error {
	if err := validateBatchShape(keys, ciphertexts, proofs, allowedUsers); err != nil {
		return err
	}
	return s.commit(ctx, caller, keys, ciphertexts, proofs, allowedUsers, nil)
}

// StoreAndAllowWithEntropy is StoreAndAllow behind the entropy gate.
func (s *Store) StoreAndAllowWithEntropy(ctx context.Context, caller interfaces.Identity, key uint64, ciphertext interfaces.Ciphertext, proof interfaces.InputProof, allowedUser interfaces.Identity, requestID interfaces.RequestID) error {
	if err := s.requireEntropy(ctx, requestID); err != nil {
		return err
	}
	return s.commit(ctx, caller, []uint64{key}, []interfaces.Ciphertext{ciphertext}, []interfaces.InputProof{proof}, []interfaces.Identity{allowedUser}, &requestID)
}

// StoreAndAllowBatchWithEntropy is StoreAndAllowBatch behind the entropy gate.
func (s *Store) StoreAndAllowBatchWithEntropy(ctx context.Context, caller interfaces.Identity, keys []uint64, ciphertexts []interfaces.Ciphertext, proofs []interfaces.InputProof, allowedUsers []interfaces.Identity, requestID interfaces.RequestID) error {
	if err := s.requireEntropy(ctx, requestID); err != nil {
		return err
	}
	if err := validateBatchShape(keys, ciphertexts, proofs, allowedUsers); err != nil {
		return err
	}
	return s.commit(ctx, caller, keys, ciphertexts, proofs, allowedUsers, &requestID)
}

// requireEntropy is a pure readiness barrier. The entropy value is not mixed
// into the stored ciphertext.
func (s *Store) requireEntropy(ctx context.Context, requestID interfaces.RequestID) error {
	status, err := s.oracle.GetRequestStatus(ctx, requestID)
	if errors.Is(err, interfaces.ErrUnknownRequest) {
		return fmt.Errorf("%w: request %s is unknown", interfaces.ErrEntropyNotReady, requestID.String())
	} else if err != nil {
		return fmt.Errorf("could not read entropy request status: %w", err)
	}

	if status != interfaces.StatusFulfilled {
		return fmt.Errorf("%w: request %s is %s", interfaces.ErrEntropyNotReady, requestID.String(), status)
	}
	return nil
}

func validateBatchShape(keys []uint64, ciphertexts []interfaces.Ciphertext, proofs []interfaces.InputProof, allowedUsers []interfaces.Identity) error {
	if len(keys) == 0 {
		return interfaces.ErrEmptyBatch
	}
	if len(ciphertexts) != len(keys) || len(proofs) != len(keys) || len(allowedUsers) != len(keys) {
		return interfaces.ErrLengthMismatch
	}
	return nil
}

// commit validates every entry in index order, then inserts all records in
// one backend call. The first failing entry determines the error.
func (s *Store) commit(ctx context.Context, caller interfaces.Identity, keys []uint64, ciphertexts []interfaces.Ciphertext, proofs []interfaces.InputProof, allowedUsers []interfaces.Identity, requestID *interfaces.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	storedAt := s.now()
	records := make([]interfaces.EncryptedRecord, 0, len(keys))
	inBatch := make(map[uint64]struct{}, len(keys))

	for i, key := range keys {
		if _, dup := inBatch[key]; dup {
			return fmt.Errorf("entry %d: %w: key %d", i, interfaces.ErrKeyAlreadyInitialized, key)
		}
		inBatch[key] = struct{}{}

		exists, err := s.backend.Has(ctx, key)
		if err != nil {
			return fmt.Errorf("entry %d: could not check key %d: %w", i, key, err)
		}
		if exists {
			return fmt.Errorf("entry %d: %w: key %d", i, interfaces.ErrKeyAlreadyInitialized, key)
		}

		err = s.coprocessor.VerifyInput(ctx, interfaces.EncryptedInput{
			Ciphertext: ciphertexts[i],
			Proof:      proofs[i],
			Contract:   s.address,
			Caller:     caller,
		})
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}

		record := interfaces.EncryptedRecord{
			Key:         key,
			Ciphertext:  append(interfaces.Ciphertext{}, ciphertexts[i]...),
			Proof:       append(interfaces.InputProof{}, proofs[i]...),
			AllowedUser: allowedUsers[i],
			Initialized: true,
			StoredAt:    storedAt,
		}
		if requestID != nil {
			rid := *requestID
			record.EntropyRequest = &rid
		}
		records = append(records, record)
	}

	if s.payloads != nil {
		// Payloads are content addressed, so blobs left behind by a failed
		// Insert are unreferenced and harmless.
		for i := range records {
			if err := s.offload(ctx, &records[i]); err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
		}
	}

	if err := s.backend.Insert(ctx, records); err != nil {
		return err
	}

	s.log.Debug("records stored", "count", len(records), "caller", caller.String(), "gated", requestID != nil)
	return nil
}

func (s *Store) offload(ctx context.Context, record *interfaces.EncryptedRecord) error {
	ctID, err := s.payloads.Store(ctx, record.Ciphertext, interfaces.CiphertextType)
	if err != nil {
		return fmt.Errorf("could not offload ciphertext to %s: %w", s.payloads.Name(), err)
	}
	proofID, err := s.payloads.Store(ctx, record.Proof, interfaces.ProofType)
	if err != nil {
		return fmt.Errorf("could not offload proof to %s: %w", s.payloads.Name(), err)
	}

	record.Payload = &interfaces.PayloadRef{Ciphertext: ctID, Proof: proofID}
	record.Ciphertext = nil
	record.Proof = nil
	return nil
}

// GetRecord returns the full record for key, with offloaded payloads resolved.
func (s *Store) GetRecord(ctx context.Context, key uint64) (interfaces.EncryptedRecord, error) {
	record, err := s.backend.Get(ctx, key)
	if err != nil {
		return interfaces.EncryptedRecord{}, err
	}
	if !record.Initialized {
		return interfaces.EncryptedRecord{}, interfaces.ErrKeyNotInitialized
	}

	if record.Payload != nil {
		if s.payloads == nil {
			return interfaces.EncryptedRecord{}, fmt.Errorf("record %d references payload storage, none configured", key)
		}
		ct, err := s.payloads.Fetch(ctx, record.Payload.Ciphertext, interfaces.CiphertextType)
		if err != nil {
			return interfaces.EncryptedRecord{}, fmt.Errorf("could not fetch ciphertext for key %d: %w", key, err)
		}
		proof, err := s.payloads.Fetch(ctx, record.Payload.Proof, interfaces.ProofType)
		if err != nil {
			return interfaces.EncryptedRecord{}, fmt.Errorf("could not fetch proof for key %d: %w", key, err)
		}
		record.Ciphertext = ct
		record.Proof = proof
	}
	return record, nil
}

// GetEncryptedValue returns the ciphertext stored under key.
func (s *Store) GetEncryptedValue(ctx context.Context, key uint64) (interfaces.Ciphertext, error) {
	record, err := s.GetRecord(ctx, key)
	if err != nil {
		return nil, err
	}
	return record.Ciphertext, nil
}

// GetAllowedUser returns the identity allowed to decrypt key.
func (s *Store) GetAllowedUser(ctx context.Context, key uint64) (interfaces.Identity, error) {
	record, err := s.backend.Get(ctx, key)
	if err != nil {
		return interfaces.Identity{}, err
	}
	if !record.Initialized {
		return interfaces.Identity{}, interfaces.ErrKeyNotInitialized
	}
	return record.AllowedUser, nil
}

// IsAllowed reports whether user may decrypt key. Uninitialized keys allow nobody.
func (s *Store) IsAllowed(ctx context.Context, key uint64, user interfaces.Identity) (bool, error) {
	allowed, err := s.GetAllowedUser(ctx, key)
	if errors.Is(err, interfaces.ErrKeyNotInitialized) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return allowed == user, nil
}

// IsKeyInitialized reports whether key holds a record.
func (s *Store) IsKeyInitialized(ctx context.Context, key uint64) (bool, error) {
	return s.backend.Has(ctx, key)
}

// GetTotalValues returns the number of initialized keys.
func (s *Store) GetTotalValues(ctx context.Context) (uint64, error) {
	return s.backend.Count(ctx)
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
