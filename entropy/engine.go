package entropy

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ruteri/entropy-vault/interfaces"
	"golang.org/x/crypto/hkdf"
)

// ValueLength is the size of a derived entropy value.
const ValueLength = 32

var derivationInfo = []byte("entropy-vault/derive/v1")

// SeedStore persists the master seed across restarts.
type SeedStore interface {
	// LoadSeed returns the stored seed, or nil if none was saved yet.
	LoadSeed(ctx context.Context) (interfaces.Ciphertext, error)
	// SaveSeed stores seed. It fails with ErrAlreadyInitialized if a seed is
	// already stored.
	SaveSeed(ctx context.Context, seed interfaces.Ciphertext) error
}

// Engine is the entropy source. It holds a write-once master seed and derives
// values from it with HKDF-SHA256. The seed is kept as the opaque ciphertext
// submitted by the admin; the engine never decrypts it.
//
// Without a SeedStore the seed lives only in memory and a restarted engine
// must be initialized again.
type Engine struct {
	address     interfaces.Identity
	gate        interfaces.AccessGate
	coprocessor interfaces.Coprocessor
	log         *slog.Logger

	mu    sync.RWMutex
	seed  interfaces.Ciphertext
	store SeedStore
}

// NewEngine creates an engine without a seed. address is the identity seed
// inputs must be bound to.
func NewEngine(address interfaces.Identity, gate interfaces.AccessGate, coprocessor interfaces.Coprocessor, log *slog.Logger) *Engine {
	return &Engine{
		address:     address,
		gate:        gate,
		coprocessor: coprocessor,
		log:         log,
	}
}

// Address implements interfaces.EntropySource.
func (e *Engine) Address() interfaces.Identity {
	return e.address
}

// UseSeedStore makes store the seed's durable home. A seed already in store is
// restored, and later initializations are written to it before taking effect.
func (e *Engine) UseSeedStore(ctx context.Context, store SeedStore) error {
	seed, err := store.LoadSeed(ctx)
	if err != nil {
		return fmt.Errorf("could not load master seed: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if seed != nil {
		if e.seed != nil && !bytes.Equal(e.seed, seed) {
			return fmt.Errorf("stored seed differs from the active one: %w", interfaces.ErrAlreadyInitialized)
		}
		e.seed = append(interfaces.Ciphertext{}, seed...)
		e.log.Info("master seed restored")
	}
	e.store = store
	return nil
}

// InitializeMasterSeed sets the master seed. It can succeed only once.
func (e *Engine) InitializeMasterSeed(ctx context.Context, caller interfaces.Identity, encryptedSeed interfaces.Ciphertext, proof interfaces.InputProof) error {
	if err := e.gate.Authorize(caller, interfaces.RoleAdmin); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.seed != nil {
		return interfaces.ErrAlreadyInitialized
	}

	err := e.coprocessor.VerifyInput(ctx, interfaces.EncryptedInput{
		Ciphertext: encryptedSeed,
		Proof:      proof,
		Contract:   e.address,
		Caller:     caller,
	})
	if err != nil {
		return fmt.Errorf("seed rejected: %w", err)
	}

	if e.store != nil {
		if err := e.store.SaveSeed(ctx, encryptedSeed); err != nil {
			return fmt.Errorf("could not persist master seed: %w", err)
		}
	}

	e.seed = append(interfaces.Ciphertext{}, encryptedSeed...)
	e.log.Info("master seed initialized", "admin", caller.String())
	return nil
}

// IsSeedInitialized implements interfaces.EntropySource.
func (e *Engine) IsSeedInitialized() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.seed != nil
}

// DeriveEntropy returns HKDF-SHA256(seed, info || counter). The same counter
// always yields the same value.
func (e *Engine) DeriveEntropy(counter uint64) (interfaces.Ciphertext, error) {
	e.mu.RLock()
	seed := e.seed
	e.mu.RUnlock()

	if seed == nil {
		return nil, interfaces.ErrSeedNotInitialized
	}

	info := make([]byte, len(derivationInfo)+8)
	copy(info, derivationInfo)
	binary.BigEndian.PutUint64(info[len(derivationInfo):], counter)

	value := make([]byte, ValueLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, seed, e.address.Bytes(), info), value); err != nil {
		return nil, fmt.Errorf("derivation failed: %w", err)
	}
	return value, nil
}
