package token

import (
	"encoding/hex"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"golang.org/x/crypto/ripemd160"
)

// AddressSize is the length of an address in bytes.
const AddressSize = 20

// Address identifies a party in the registry and marketplace.
// It is the 20-byte HASH160 of a compressed public key.
type Address [AddressSize]byte

// ZeroAddress is the all-zero address. It is never a valid owner.
var ZeroAddress Address

// AddressFromPublicKey derives an address from a public key:
// RIPEMD160(SHA256(compressed pubkey)).
func AddressFromPublicKey(pub *ec.PublicKey) Address {
	h := ripemd160.New()
	h.Write(bsvhash.Sha256(pub.Compressed()))

	var addr Address
	copy(addr[:], h.Sum(nil))
	return addr
}

// AddressFromHex parses a 40-character hex string into an Address.
func AddressFromHex(s string) (Address, error) {
	var addr Address
	b, err := hex.DecodeString(s)
	if err != nil {
		return addr, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(b) != AddressSize {
		return addr, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, AddressSize, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

// String returns the hex encoding of the address.
func (a Address) String() string { return hex.EncodeToString(a[:]) }

// IsZero reports whether the address is the zero address.
func (a Address) IsZero() bool { return a == ZeroAddress }
