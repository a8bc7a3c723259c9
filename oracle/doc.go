// Package oracle implements the entropy oracle: a ledger of entropy requests,
// a minimum fee, and one-time fulfillment by an authorized fulfiller.
//
// Request ids are keccak256 over the ABI encoding of (oracle, requester, tag,
// seq), where seq is the ledger position, so ids never repeat even when tags
// do. The ledger is either in memory (MemoryLedger) or in SQLite (SQLLedger).
//
// EntropyRequested and EntropyFulfilled events are delivered through
// go-ethereum event feeds after the ledger write has been committed.
//
// Fulfiller is an optional in-process worker that answers requests with
// values derived from an EntropySource.
package oracle
