// Package valuestore implements the encrypted value store: a write-once table
// of opaque ciphertexts keyed by uint64, each readable by exactly one user.
//
// # Writes
//
// StoreAndAllow is the single-entry primitive. StoreAndAllowBatch applies the
// same checks to every entry in index order (including duplicates inside the
// batch) and commits all entries or none. The WithEntropy variants first
// require a referenced oracle request to be fulfilled and otherwise behave
// identically. The gate is a readiness barrier only; the entropy value does
// not affect what is stored.
//
// # Backends
//
// Records live in a RecordBackend: MemoryBackend, or BadgerBackend for
// persistence. Ciphertexts and proofs can additionally be offloaded to a
// content-addressed storage.StorageBackend, in which case records carry only
// their content ids.
package valuestore
