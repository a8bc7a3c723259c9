// Package main (cmd/admin) is the administrator CLI for the entropy vault.
//
// Commands:
//
//	status                - Show whether the master seed is set and the current fee
//	generate-key          - Generate a secp256k1 key; prints its address
//	generate-network-key  - Generate the network keypair inputs are encrypted to
//	split-seed            - Generate a master seed and write escrow shares
//	init-seed             - Combine shares and submit the seed to the engine
//	set-fee               - Update the minimum entropy request fee
//
// The master seed never leaves the admins' hands in plaintext except while
// init-seed encrypts it. Shares are escrowed offline; any threshold of them
// reconstructs the seed.
//
// Example workflow:
//
//  1. Generate an admin key and start the server with --admin set to its address:
//     admin generate-key --key-file=admin.key
//
//  2. Split a fresh seed into 2-of-3 shares and hand them out:
//     admin split-seed --shamir-total-shares=3 --shamir-threshold=2
//
//  3. Collect two shares and initialize the engine:
//     admin init-seed --key-file=admin.key --coprocessor-key-file=coprocessor.key \
//     --share-file=seed-shares/share-1.hex --share-file=seed-shares/share-3.hex
package main
