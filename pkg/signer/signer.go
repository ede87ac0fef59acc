package signer

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	// ScalarLength is the byte length of a P-256 scalar and of each signature half.
	ScalarLength = 32

	// SignatureLength is r||s.
	SignatureLength = 2 * ScalarLength
)

// ParsePrivateKey builds a P-256 key pair from a hex scalar. Short scalars are
// left-padded; zero and values not below the curve order are rejected.
func ParsePrivateKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	raw, err := DecodeHex(privateKeyHex)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || len(raw) > ScalarLength {
		return nil, fmt.Errorf("private key must be 1-%d bytes, got %d", ScalarLength, len(raw))
	}
	scalar := make([]byte, ScalarLength)
	copy(scalar[ScalarLength-len(raw):], raw)

	ecdhKey, err := ecdh.P256().NewPrivateKey(scalar)
	if err != nil {
		return nil, fmt.Errorf("invalid P-256 private key: %w", err)
	}

	// uncompressed point: 0x04 || X || Y
	point := ecdhKey.PublicKey().Bytes()
	return &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(point[1 : 1+ScalarLength]),
			Y:     new(big.Int).SetBytes(point[1+ScalarLength:]),
		},
		D: new(big.Int).SetBytes(scalar),
	}, nil
}

// ParsePublicKey accepts a P-256 public key either as the 64-byte X||Y form
// Flow stores for account keys or as a 65-byte uncompressed point.
func ParsePublicKey(publicKeyHex string) (*ecdsa.PublicKey, error) {
	raw, err := DecodeHex(publicKeyHex)
	if err != nil {
		return nil, err
	}
	if len(raw) == SignatureLength {
		raw = append([]byte{0x04}, raw...)
	}
	if _, err := ecdh.P256().NewPublicKey(raw); err != nil {
		return nil, fmt.Errorf("invalid P-256 public key: %w", err)
	}
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(raw[1 : 1+ScalarLength]),
		Y:     new(big.Int).SetBytes(raw[1+ScalarLength:]),
	}, nil
}

// GenerateKey creates a fresh P-256 key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// PrivateKeyHex returns the 32-byte scalar hex encoded without prefix.
func PrivateKeyHex(key *ecdsa.PrivateKey) string {
	return hex.EncodeToString(key.D.FillBytes(make([]byte, ScalarLength)))
}

// PublicKeyHex returns X||Y hex encoded, the format Flow uses for account keys.
func PublicKeyHex(pub *ecdsa.PublicKey) string {
	out := make([]byte, SignatureLength)
	pub.X.FillBytes(out[:ScalarLength])
	pub.Y.FillBytes(out[ScalarLength:])
	return hex.EncodeToString(out)
}

// Sign hashes messageHex with SHA3-256 and signs the digest with the P-256
// key given as a hex scalar. The result is r||s, each half left-padded to 32
// bytes, hex encoded.
func Sign(privateKeyHex string, messageHex string) (string, error) {
	key, err := ParsePrivateKey(privateKeyHex)
	if err != nil {
		return "", newSigningError(err)
	}
	return SignWithKey(key, messageHex)
}

// SignWithKey is Sign for an already parsed key.
func SignWithKey(key *ecdsa.PrivateKey, messageHex string) (string, error) {
	if key == nil {
		return "", newSigningError(fmt.Errorf("private key is nil"))
	}
	digest, err := Hash(messageHex)
	if err != nil {
		return "", newSigningError(err)
	}

	r, s, err := ecdsa.Sign(rand.Reader, key, digest)
	if err != nil {
		return "", newSigningError(err)
	}

	sig, err := EncodeSignature(r, s)
	if err != nil {
		return "", newSigningError(err)
	}
	return sig, nil
}

// EncodeSignature concatenates r and s as fixed 32-byte big-endian halves.
func EncodeSignature(r, s *big.Int) (string, error) {
	if r == nil || s == nil {
		return "", fmt.Errorf("signature component is nil")
	}
	if r.Sign() <= 0 || s.Sign() <= 0 {
		return "", fmt.Errorf("signature component must be positive")
	}
	if r.BitLen() > 8*ScalarLength || s.BitLen() > 8*ScalarLength {
		return "", fmt.Errorf("signature component exceeds %d bytes", ScalarLength)
	}
	out := make([]byte, SignatureLength)
	r.FillBytes(out[:ScalarLength])
	s.FillBytes(out[ScalarLength:])
	return hex.EncodeToString(out), nil
}

// Verify checks a hex r||s signature over messageHex under the SHA3-256 rule.
func Verify(pub *ecdsa.PublicKey, messageHex string, signatureHex string) bool {
	if pub == nil {
		return false
	}
	sig, err := DecodeHex(signatureHex)
	if err != nil || len(sig) != SignatureLength {
		return false
	}
	digest, err := Hash(messageHex)
	if err != nil {
		return false
	}
	r := new(big.Int).SetBytes(sig[:ScalarLength])
	s := new(big.Int).SetBytes(sig[ScalarLength:])
	return ecdsa.Verify(pub, digest, r, s)
}
