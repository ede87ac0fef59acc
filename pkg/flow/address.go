package flow

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the byte length of a Flow account address.
const AddressLength = 8

// Address is a Flow account address.
type Address [AddressLength]byte

// EmptyAddress is the zero address.
var EmptyAddress = Address{}

// SansPrefix strips a leading 0x from an address string.
func SansPrefix(addr string) string {
	return strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
}

// WithPrefix ensures an address string carries a 0x prefix.
func WithPrefix(addr string) string {
	return "0x" + SansPrefix(addr)
}

// HexToAddress parses a hex address, with or without prefix. Short values are
// left-padded to 8 bytes.
func HexToAddress(s string) (Address, error) {
	raw := SansPrefix(strings.TrimSpace(s))
	if raw == "" {
		return EmptyAddress, fmt.Errorf("address is empty")
	}
	if len(raw)%2 == 1 {
		raw = "0" + raw
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return EmptyAddress, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(b) > AddressLength {
		return EmptyAddress, fmt.Errorf("invalid address %q: must be at most %d bytes", s, AddressLength)
	}
	var addr Address
	copy(addr[AddressLength-len(b):], b)
	return addr, nil
}

// MustHexToAddress is HexToAddress for constants and tests.
func MustHexToAddress(s string) Address {
	addr, err := HexToAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// Bytes returns the raw address bytes.
func (a Address) Bytes() []byte {
	return a[:]
}

// Hex returns the address without prefix, as the access API expects it.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// HexWithPrefix returns the address with a 0x prefix.
func (a Address) HexWithPrefix() string {
	return "0x" + a.Hex()
}

func (a Address) String() string {
	return a.HexWithPrefix()
}
