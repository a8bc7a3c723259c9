// Package main (cmd/vault_client) is the user CLI for the entropy vault.
//
// It requests entropy from the oracle, waits for fulfillment, and stores
// encrypted values, optionally gated on a fulfilled request:
//
//	vault_client --key-file=user.key request --tag=round-1 --wait
//	vault_client --key-file=user.key store --key=1 --value=42 \
//	  --allowed-user=0xA1... --request-id=0x... --coprocessor-key-file=coprocessor.key
//	vault_client get --key=1
package main
