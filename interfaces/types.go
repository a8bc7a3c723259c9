package interfaces

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Identity is the 20-byte address of a caller, a user allowed to decrypt a value,
// or a component (store, engine, oracle) that encrypted inputs are bound to.
type Identity [20]byte

// NewIdentityFromBytes creates an identity from a 20-byte slice.
func NewIdentityFromBytes(addr []byte) (Identity, error) {
	if len(addr) != 20 {
		return Identity{}, errors.New("invalid address length: must be 20 bytes")
	}

	var res Identity
	copy(res[:], addr)
	return res, nil
}

// NewIdentityFromHex parses a 40-character hex address, with or without the 0x prefix.
func NewIdentityFromHex(addr string) (Identity, error) {
	clean := strings.TrimPrefix(addr, "0x")
	if len(clean) != 40 {
		return Identity{}, errors.New("invalid address length: hex string must be 40 characters")
	}

	addrBytes, err := hex.DecodeString(clean)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewIdentityFromBytes(addrBytes)
}

// String returns the hex string representation of the identity.
func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw 20-byte address.
func (id Identity) Bytes() []byte {
	return id[:]
}

// IsZero reports whether the identity is the zero address.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// MarshalText encodes the identity as 0x-prefixed hex.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte("0x" + id.String()), nil
}

// UnmarshalText decodes a hex identity.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := NewIdentityFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// RequestID uniquely identifies an entropy request. It is derived from the
// requester, the tag and the request sequence number.
type RequestID [32]byte

// NewRequestIDFromHex parses a 64-character hex request id.
func NewRequestIDFromHex(source string) (RequestID, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return RequestID{}, errors.New("invalid request ID length: hex string must be 64 characters")
	}

	idBytes, err := hex.DecodeString(clean)
	if err != nil {
		return RequestID{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var id RequestID
	copy(id[:], idBytes)
	return id, nil
}

// String returns hex representation.
func (id RequestID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns raw 32-byte id.
func (id RequestID) Bytes() []byte {
	return id[:]
}

func (id RequestID) MarshalText() ([]byte, error) {
	return []byte("0x" + id.String()), nil
}

func (id *RequestID) UnmarshalText(text []byte) error {
	parsed, err := NewRequestIDFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Tag is a caller-chosen correlation label attached to an entropy request.
// Tags are not unique.
type Tag [32]byte

func (t Tag) MarshalText() ([]byte, error) {
	return []byte("0x" + hex.EncodeToString(t[:])), nil
}

func (t *Tag) UnmarshalText(text []byte) error {
	clean := strings.TrimPrefix(string(text), "0x")
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return fmt.Errorf("invalid hex format: %w", err)
	}
	if len(raw) != 32 {
		return errors.New("invalid tag length: must be 32 bytes")
	}
	copy(t[:], raw)
	return nil
}

// Ciphertext is an opaque encrypted payload. The vault never interprets it.
type Ciphertext []byte

// Equal compares two ciphertexts byte-wise.
func (c Ciphertext) Equal(other Ciphertext) bool {
	return bytes.Equal(c, other)
}

// InputProof accompanies a ciphertext and is validated by the coprocessor.
type InputProof []byte

// RequestStatus is the lifecycle state of an entropy request.
// The only transition is Requested -> Fulfilled.
type RequestStatus int

const (
	// StatusUnknown is reported for ids the oracle never issued.
	StatusUnknown RequestStatus = iota
	StatusRequested
	StatusFulfilled
)

// String returns status name.
func (s RequestStatus) String() string {
	switch s {
	case StatusRequested:
		return "requested"
	case StatusFulfilled:
		return "fulfilled"
	default:
		return "unknown"
	}
}

// ParseRequestStatus is the inverse of String.
func ParseRequestStatus(s string) (RequestStatus, error) {
	switch s {
	case "requested":
		return StatusRequested, nil
	case "fulfilled":
		return StatusFulfilled, nil
	default:
		return StatusUnknown, fmt.Errorf("unknown request status %q", s)
	}
}

// EntropyRequest is one entry of the oracle ledger.
type EntropyRequest struct {
	ID          RequestID     `json:"id"`
	Seq         uint64        `json:"seq"`
	Tag         Tag           `json:"tag"`
	Requester   Identity      `json:"requester"`
	FeePaid     *big.Int      `json:"fee_paid"`
	Status      RequestStatus `json:"status"`
	Value       Ciphertext    `json:"value,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	FulfilledAt time.Time     `json:"fulfilled_at,omitempty"`
}

// Fulfilled reports whether a value has been bound to the request.
func (r *EntropyRequest) Fulfilled() bool {
	return r.Status == StatusFulfilled
}

// EncryptedRecord is a committed entry of the value store. Records are
// write-once: there is no update or delete path.
type EncryptedRecord struct {
	Key            uint64     `json:"key"`
	Ciphertext     Ciphertext `json:"ciphertext"`
	Proof          InputProof `json:"proof"`
	AllowedUser    Identity   `json:"allowed_user"`
	Initialized    bool       `json:"initialized"`
	EntropyRequest *RequestID `json:"entropy_request,omitempty"`
	StoredAt       time.Time  `json:"stored_at"`

	// Payload is set when ciphertext and proof were offloaded to payload
	// storage. Ciphertext and Proof are then empty in the record itself.
	Payload *PayloadRef `json:"payload,omitempty"`
}

// PayloadRef locates an offloaded record payload.
type PayloadRef struct {
	Ciphertext ContentID `json:"ciphertext"`
	Proof      ContentID `json:"proof"`
}

// EncryptedInput is a ciphertext and its proof, bound to the component that
// will consume it and the caller that submitted it.
type EncryptedInput struct {
	Ciphertext Ciphertext
	Proof      InputProof
	Contract   Identity
	Caller     Identity
}

// Role names a privilege checked by the access gate.
type Role string

const (
	// RoleAdmin may initialize the master seed and adjust the oracle fee.
	RoleAdmin Role = "admin"
	// RoleFulfiller may bind entropy values to requests.
	RoleFulfiller Role = "fulfiller"
)

// EntropyRequestedEvent is emitted once for every accepted request.
type EntropyRequestedEvent struct {
	RequestID RequestID
	Tag       Tag
	Requester Identity
	Seq       uint64
}

// EntropyFulfilledEvent is emitted once when a request is fulfilled.
type EntropyFulfilledEvent struct {
	RequestID RequestID
	Value     Ciphertext
}
