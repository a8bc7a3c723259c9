// Package storage provides content-addressed payload backends used by the
// value store to keep ciphertexts and input proofs out of the record table.
//
// Payloads are identified by the SHA-256 hash of their bytes and kept in a
// namespace per content type ("ciphertexts" and "proofs"). Backends are
// configured with location URIs:
//
//	file:///var/lib/entropy-vault/payloads
//	s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=us-west-2&endpoint=http://minio:9000
//	ipfs://localhost:5001/entropy-vault?timeout=30s
//	vault://[TOKEN@]vault.example.com:8200/secret/entropy-vault?tls=true
//
// Several locations combine into a MultiStorageBackend, which writes to every
// available backend and reads from the first one holding the payload.
package storage
