// Package main (cmd/httpserver) runs the entropy vault server.
//
// One process hosts three components behind a single HTTP API:
//
//   - the entropy oracle under /api/oracle, with its ledger in memory or in a
//     sqlite file (--ledger-db)
//   - the encrypted value store under /api/store, with records in badger
//     (--records-dir) and ciphertexts optionally offloaded to content-addressed
//     storage (--payload-storage, any of file://, s3://, ipfs://, vault://)
//   - the entropy engine under /api/entropy/seed, whose master seed is kept in
//     the --ledger-db file when one is given
//
// Roles are configured with --admin and --fulfiller. Encrypted inputs are
// accepted only with proofs signed by a --coprocessor-signer.
//
// With --fulfiller-identity the server also answers entropy requests itself,
// deriving each value from the master seed once an admin has initialized it:
//
//	httpserver --admin=0xA1... --coprocessor-signer=0xC0... \
//	  --fulfiller-identity=0xF0... --ledger-db=ledger.db --records-dir=records
package main
