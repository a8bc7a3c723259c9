package interfaces

import "errors"

// Precondition violations. No state changes when returned.
var (
	ErrKeyAlreadyInitialized = errors.New("key already initialized")
	ErrKeyNotInitialized     = errors.New("key not initialized")
	ErrSeedNotInitialized    = errors.New("master seed not initialized")
	ErrAlreadyInitialized    = errors.New("master seed already initialized")
	ErrUnknownRequest        = errors.New("unknown entropy request")
	ErrAlreadyFulfilled      = errors.New("entropy request already fulfilled")
	ErrNotFulfilled          = errors.New("entropy request not fulfilled")
	ErrEntropyNotReady       = errors.New("entropy not ready")
)

// Input validation errors, reported before any processing begins.
var (
	ErrEmptyBatch      = errors.New("empty arrays")
	ErrLengthMismatch  = errors.New("keys and inputs length mismatch")
	ErrInsufficientFee = errors.New("insufficient fee")
	ErrInvalidFee      = errors.New("fee must be non-negative")
	ErrEmptyValue      = errors.New("entropy value must not be empty")
)

// ErrUnauthorized is returned when the caller lacks the role an operation requires.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInvalidProof is returned when the coprocessor rejects a ciphertext and proof pair.
var ErrInvalidProof = errors.New("invalid input proof")
