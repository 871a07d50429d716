package token

import (
	"testing"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressFromPublicKey(t *testing.T) {
	priv, err := ec.NewPrivateKey()
	require.NoError(t, err)

	addr := AddressFromPublicKey(priv.PubKey())
	assert.False(t, addr.IsZero())

	// Derivation is deterministic per key.
	assert.Equal(t, addr, AddressFromPublicKey(priv.PubKey()))

	other, err := ec.NewPrivateKey()
	require.NoError(t, err)
	assert.NotEqual(t, addr, AddressFromPublicKey(other.PubKey()))
}

func TestAddressFromHex(t *testing.T) {
	addr := makeAddr(0xAB)

	parsed, err := AddressFromHex(addr.String())
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)

	_, err = AddressFromHex("zz")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = AddressFromHex("abcd")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAddressString(t *testing.T) {
	assert.Equal(t, "0000000000000000000000000000000000000000", ZeroAddress.String())
	assert.Len(t, makeAddr(0x01).String(), 2*AddressSize)
	assert.True(t, ZeroAddress.IsZero())
	assert.False(t, makeAddr(0x01).IsZero())
}
