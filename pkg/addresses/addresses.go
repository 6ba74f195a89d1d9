// Package addresses derives the stable account addresses that key every
// ledger in the marketplace.  An address is a collision-resistant digest of
// an entity kind plus an ordered tuple of seed parts, so distinct kinds can
// never collide even when their seed text is identical.
package addresses

import (
	"encoding/binary"
	"fmt"

	"github.com/decred/base58"
	"github.com/decred/dcrd/crypto/blake256"
)

// Size is the width of a raw address in bytes.
const Size = blake256.Size

// derivationTag domain-separates marketplace addresses from any other use of
// the same hash function.
const derivationTag = "carbon-exchange/addr/v1"

// addressVersion is the two-byte version identifier prepended by the
// base58check encoding.
var addressVersion = [2]byte{0x00, 0x1c}

// EntityKind namespaces the seed space per entity type.
type EntityKind string

const (
	KindMarketplace  EntityKind = "marketplace"
	KindProject      EntityKind = "project"
	KindListing      EntityKind = "listing"
	KindPurchase     EntityKind = "purchase"
	KindRetirement   EntityKind = "retirement"
	KindBatch        EntityKind = "batch"
	KindVerifier     EntityKind = "verifier"
	KindVerification EntityKind = "verification_request"
)

// Address is an opaque fixed-width identifier.  It supports equality and
// rendering only; callers never parse its structure.
type Address [Size]byte

// Derive maps (kind, seed parts) to an Address.  The same inputs always
// produce the same address.  Each part is length-prefixed before hashing so
// ("ab", "c") and ("a", "bc") cannot collide.
func Derive(kind EntityKind, seedParts ...[]byte) Address {
	h := blake256.New()
	buf := make([]byte, 4)

	h.Write([]byte(derivationTag))

	binary.BigEndian.PutUint32(buf, uint32(len(kind)))
	h.Write(buf)
	h.Write([]byte(kind))

	for _, part := range seedParts {
		binary.BigEndian.PutUint32(buf, uint32(len(part)))
		h.Write(buf)
		h.Write(part)
	}

	return *(*Address)(h.Sum(nil))
}

// DeriveString is Derive with string seed parts, which is what most callers
// hold.
func DeriveString(kind EntityKind, seedParts ...string) Address {
	parts := make([][]byte, len(seedParts))
	for i, p := range seedParts {
		parts[i] = []byte(p)
	}
	return Derive(kind, parts...)
}

// String returns the base58check rendering used in API responses and logs.
func (a Address) String() string {
	return base58.CheckEncode(a[:], addressVersion)
}

// IsZero reports whether the address is the zero value, which no derivation
// produces.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText implements encoding.TextMarshaler so addresses render as their
// base58check form in JSON payloads.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText accepts the base58check rendering produced by String.
func (a *Address) UnmarshalText(text []byte) error {
	decoded, err := Decode(string(text))
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

// Decode reverses String.  It validates the checksum, version byte, and
// width but never interprets the digest bytes.
func Decode(s string) (Address, error) {
	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		return Address{}, fmt.Errorf("decode address: %w", err)
	}
	if version != addressVersion {
		return Address{}, fmt.Errorf("decode address: unknown version byte %#x", version)
	}
	if len(payload) != Size {
		return Address{}, fmt.Errorf("decode address: want %d payload bytes, got %d", Size, len(payload))
	}
	return *(*Address)(payload), nil
}
