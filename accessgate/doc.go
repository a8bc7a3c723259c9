// Package accessgate implements the role check consumed by every restricted
// mutation (seed initialization, fee updates, entropy fulfillment).
//
// The role table is external configuration. The gate only reads it.
package accessgate
