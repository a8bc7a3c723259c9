// Package entropy implements the entropy source consumed by the oracle's fulfiller.
//
// An Engine holds one write-once master seed, initialized by an admin with an
// encrypted input accepted by the coprocessor. DeriveEntropy is a pure function
// of (seed, counter); callers must use a fresh counter per value.
//
// SplitSeed and CombineSeed support offline escrow of the plaintext seed with
// Shamir secret sharing before it is encrypted and submitted.
package entropy
