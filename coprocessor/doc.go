// Package coprocessor stands in for the external encryption coprocessor.
//
// The vault treats ciphertexts as opaque. It only asks the coprocessor whether
// a (ciphertext, proof) pair is well formed for a given contract and caller.
// SignedInputVerifier answers that question by recovering the secp256k1 signer
// of the proof and checking it against a trusted set. InputBuilder is the
// client-side counterpart used by tools and tests.
package coprocessor
