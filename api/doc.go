/*
Package api holds what the HTTP layer of the entropy vault shares between
servers, handlers and clients: wire types, error mapping and caller
authentication.

Handlers live in subpackages, one per component:

  - oraclehandler: entropy requests, fulfillment and fees
  - storehandler: the encrypted value store
  - seedhandler: master seed initialization of the entropy source

servers wires them into a chi router with health and drain endpoints.

# Caller Authentication

Mutating endpoints require a signed request. The caller sends its address,
a unix timestamp and a 65-byte secp256k1 signature over SigningHash:

	X-Caller-Address:   0x<20-byte address>
	X-Caller-Timestamp: <unix seconds>
	X-Caller-Signature: 0x<r ‖ s ‖ v>

The server recovers the signer and requires it to match the claimed
address. The recovered address is the caller identity passed to the access
gate, the oracle and the store.

# Errors

Non-2xx responses carry an ErrorResponse. Domain errors map to fixed
statuses (404 for unknown requests and keys, 409 for write-once conflicts,
425 for entropy that is not ready yet) and a code that ReadError turns back
into the matching interfaces error.
*/
package api
