package signer

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// DigestLength is the size of a SHA3-256 digest in bytes.
const DigestLength = 32

// StripHexPrefix removes an optional 0x/0X prefix.
func StripHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}

// DecodeHex decodes a hex string with an optional 0x prefix. Any malformed
// input is reported as ErrInvalidEncoding.
func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(StripHexPrefix(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return b, nil
}

// Hash decodes messageHex and returns its SHA3-256 digest.
func Hash(messageHex string) ([]byte, error) {
	msg, err := DecodeHex(messageHex)
	if err != nil {
		return nil, err
	}
	return HashBytes(msg), nil
}

// HashBytes returns the SHA3-256 digest of msg.
func HashBytes(msg []byte) []byte {
	h := sha3.New256()
	h.Write(msg)
	return h.Sum(nil)
}
