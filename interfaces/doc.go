// Package interfaces defines the contracts between the vault's components and
// the types they exchange, without implementation details.
//
// # Components
//
//   - EntropySource: write-once master seed and deterministic derivation
//   - EntropyOracle: request ledger, minimum fee, one-time fulfillment, events
//   - EncryptedValueStore: write-once table of encrypted records with one
//     allowed reader per key, optionally gated on a fulfilled entropy request
//   - AccessGate and RoleTable: role checks for restricted operations
//   - Coprocessor: validation of (ciphertext, proof) pairs
//
// # Persistence
//
//   - RecordBackend: the store's record table
//   - StorageBackend: content-addressed payload storage (file, S3, IPFS, Vault)
//
// # Errors
//
// Every failure is reported as one of the sentinel errors in errors.go,
// possibly wrapped with context. Use errors.Is to classify them.
package interfaces
