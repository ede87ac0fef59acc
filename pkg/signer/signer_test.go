package signer

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPrivateKey = "54011f6778ae2ccc9d0175212b225b116c37c1a94262fdcdc0369cf7ae69f723"
	testMessage    = "deadbeef"
)

func TestHash_Deterministic(t *testing.T) {
	h1, err := Hash(testMessage)
	require.NoError(t, err)
	h2, err := Hash(testMessage)
	require.NoError(t, err)

	require.Len(t, h1, DigestLength)
	require.Equal(t, h1, h2, "Hash should be deterministic")
}

func TestHash_KnownVector(t *testing.T) {
	// SHA3-256 of the empty string
	digest, err := Hash("")
	require.NoError(t, err)
	require.Equal(t, "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a", hex.EncodeToString(digest))
}

func TestHash_AcceptsPrefix(t *testing.T) {
	withPrefix, err := Hash("0x" + testMessage)
	require.NoError(t, err)
	without, err := Hash(testMessage)
	require.NoError(t, err)
	require.Equal(t, without, withPrefix)
}

func TestHash_InvalidEncoding(t *testing.T) {
	for _, msg := range []string{"zz", "abc", "0xdeadbeeg", "not hex"} {
		t.Run(msg, func(t *testing.T) {
			digest, err := Hash(msg)
			require.Error(t, err)
			require.Nil(t, digest)
			require.True(t, errors.Is(err, ErrInvalidEncoding))
		})
	}
}

func TestSign_LengthAndVerify(t *testing.T) {
	key, err := ParsePrivateKey(testPrivateKey)
	require.NoError(t, err)

	sig, err := Sign(testPrivateKey, testMessage)
	require.NoError(t, err)
	require.Len(t, sig, 2*SignatureLength)
	require.True(t, Verify(&key.PublicKey, testMessage, sig))
}

func TestSign_PrefixedKey(t *testing.T) {
	key, err := ParsePrivateKey(testPrivateKey)
	require.NoError(t, err)

	sig, err := Sign("0x"+testPrivateKey, testMessage)
	require.NoError(t, err)
	require.True(t, Verify(&key.PublicKey, testMessage, sig))
}

func TestSign_ResignBothVerify(t *testing.T) {
	key, err := ParsePrivateKey(testPrivateKey)
	require.NoError(t, err)

	sig1, err := Sign(testPrivateKey, testMessage)
	require.NoError(t, err)
	sig2, err := Sign(testPrivateKey, testMessage)
	require.NoError(t, err)

	require.True(t, Verify(&key.PublicKey, testMessage, sig1))
	require.True(t, Verify(&key.PublicKey, testMessage, sig2))
}

func TestSign_WrongMessageDoesNotVerify(t *testing.T) {
	key, err := ParsePrivateKey(testPrivateKey)
	require.NoError(t, err)

	sig, err := Sign(testPrivateKey, testMessage)
	require.NoError(t, err)
	require.False(t, Verify(&key.PublicKey, "cafebabe", sig))
}

func TestSign_RandomKeys(t *testing.T) {
	for i := 0; i < 20; i++ {
		key, err := GenerateKey()
		require.NoError(t, err)

		msg := fmt.Sprintf("%08x", i)
		sig, err := Sign(PrivateKeyHex(key), msg)
		require.NoError(t, err)
		require.Len(t, sig, 128)
		require.True(t, Verify(&key.PublicKey, msg, sig))
	}
}

func TestSign_Failures(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		message    string
		isEncoding bool
	}{
		{name: "malformed key hex", key: "xyz", message: testMessage, isEncoding: true},
		{name: "zero scalar", key: "00", message: testMessage},
		{name: "scalar above order", key: "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", message: testMessage},
		{name: "key too long", key: testPrivateKey + "00", message: testMessage},
		{name: "malformed message", key: testPrivateKey, message: "nothex", isEncoding: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := Sign(tt.key, tt.message)
			require.Error(t, err)
			require.Empty(t, sig)
			require.True(t, errors.Is(err, ErrSigningFailure))

			var signingErr *SigningError
			require.True(t, errors.As(err, &signingErr))
			require.NotNil(t, signingErr.Cause)
			assert.Equal(t, tt.isEncoding, errors.Is(err, ErrInvalidEncoding))
		})
	}
}

func TestEncodeSignature_PadsShortComponents(t *testing.T) {
	sig, err := EncodeSignature(big.NewInt(1), big.NewInt(0x0102))
	require.NoError(t, err)
	require.Len(t, sig, 128)
	require.Equal(t, "0000000000000000000000000000000000000000000000000000000000000001", sig[:64])
	require.Equal(t, "0000000000000000000000000000000000000000000000000000000000000102", sig[64:])
}

func TestEncodeSignature_RejectsOversized(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err := EncodeSignature(tooBig, big.NewInt(1))
	require.Error(t, err)
}

func TestPublicKeyHex_RoundTrip(t *testing.T) {
	key, err := ParsePrivateKey(testPrivateKey)
	require.NoError(t, err)

	pubHex := PublicKeyHex(&key.PublicKey)
	require.Len(t, pubHex, 128)

	pub, err := ParsePublicKey(pubHex)
	require.NoError(t, err)
	require.Equal(t, 0, pub.X.Cmp(key.PublicKey.X))
	require.Equal(t, 0, pub.Y.Cmp(key.PublicKey.Y))

	_, err = ParsePublicKey("04" + pubHex)
	require.NoError(t, err)

	_, err = ParsePublicKey("00" + pubHex[2:])
	require.Error(t, err)
}

func TestParsePrivateKey_ShortScalarPadded(t *testing.T) {
	key, err := ParsePrivateKey("01")
	require.NoError(t, err)
	require.Equal(t, int64(1), key.D.Int64())
	require.Equal(t, "0000000000000000000000000000000000000000000000000000000000000001", PrivateKeyHex(key))
}

func TestSign_Concurrent(t *testing.T) {
	key, err := ParsePrivateKey(testPrivateKey)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := fmt.Sprintf("%04x", i)
			sig, err := SignWithKey(key, msg)
			if err != nil {
				errs <- err
				return
			}
			if !Verify(&key.PublicKey, msg, sig) {
				errs <- fmt.Errorf("signature %d did not verify", i)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
