package transactionSigner

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"errors"
	"testing"

	"github.com/Layr-Labs/flow-trivia-go/pkg/logger"
	"github.com/Layr-Labs/flow-trivia-go/pkg/signer"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPrivateKey = "54011f6778ae2ccc9d0175212b225b116c37c1a94262fdcdc0369cf7ae69f723"

func testLogger(t *testing.T) *zap.Logger {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)
	return l
}

// fakeKMS signs locally with a P-256 key the way KMS does for DIGEST input
type fakeKMS struct {
	key        *ecdsa.PrivateKey
	signCalls  int
	lastInput  *kms.SignInput
	signErr    error
	corruptSig bool
}

func (f *fakeKMS) Sign(_ context.Context, params *kms.SignInput, _ ...func(*kms.Options)) (*kms.SignOutput, error) {
	f.signCalls++
	f.lastInput = params
	if f.signErr != nil {
		return nil, f.signErr
	}
	sig, err := ecdsa.SignASN1(rand.Reader, f.key, params.Message)
	if err != nil {
		return nil, err
	}
	if f.corruptSig {
		sig = []byte{0x30, 0x01}
	}
	return &kms.SignOutput{Signature: sig}, nil
}

func (f *fakeKMS) GetPublicKey(_ context.Context, _ *kms.GetPublicKeyInput, _ ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error) {
	der, err := x509.MarshalPKIXPublicKey(&f.key.PublicKey)
	if err != nil {
		return nil, err
	}
	return &kms.GetPublicKeyOutput{PublicKey: der}, nil
}

func newFakeKMS(t *testing.T) *fakeKMS {
	key, err := signer.ParsePrivateKey(testPrivateKey)
	require.NoError(t, err)
	return &fakeKMS{key: key}
}

func TestInMemoryTransactionSigner(t *testing.T) {
	ctx := context.Background()
	s, err := NewTransactionSigner(ctx, &SignerConfig{Source: KeySource_Static, PrivateKey: testPrivateKey}, nil, testLogger(t))
	require.NoError(t, err)

	sig, err := s.SignMessage(ctx, "deadbeef")
	require.NoError(t, err)
	require.Len(t, sig, 128)

	pubHex, err := s.PublicKeyHex(ctx)
	require.NoError(t, err)
	pub, err := signer.ParsePublicKey(pubHex)
	require.NoError(t, err)
	require.True(t, signer.Verify(pub, "deadbeef", sig))

	_, err = s.SignMessage(ctx, "zz")
	require.True(t, errors.Is(err, signer.ErrSigningFailure))
}

func TestInMemoryTransactionSigner_EnvSource(t *testing.T) {
	t.Setenv("TRIVIA_SIGNER_TEST_KEY", "0x"+testPrivateKey)

	s, err := NewTransactionSigner(context.Background(), &SignerConfig{Source: KeySource_Env, EnvVar: "TRIVIA_SIGNER_TEST_KEY"}, nil, testLogger(t))
	require.NoError(t, err)
	require.IsType(t, &InMemoryTransactionSigner{}, s)
}

func TestNewTransactionSigner_Errors(t *testing.T) {
	ctx := context.Background()
	l := testLogger(t)

	_, err := NewTransactionSigner(ctx, nil, nil, l)
	require.Error(t, err)

	_, err = NewTransactionSigner(ctx, &SignerConfig{Source: "vault"}, nil, l)
	require.Error(t, err)

	_, err = NewTransactionSigner(ctx, &SignerConfig{Source: KeySource_Static, PrivateKey: "not-a-key"}, nil, l)
	require.Error(t, err)

	_, err = NewTransactionSigner(ctx, &SignerConfig{Source: KeySource_AWSKMS, KMSKeyID: "k"}, nil, l)
	require.Error(t, err)
}

func TestAWSKMSTransactionSigner_Sign(t *testing.T) {
	ctx := context.Background()
	fake := newFakeKMS(t)

	s, err := NewTransactionSigner(ctx, &SignerConfig{Source: KeySource_AWSKMS, KMSKeyID: "alias/trivia-admin"}, fake, testLogger(t))
	require.NoError(t, err)

	sig, err := s.SignMessage(ctx, "deadbeef")
	require.NoError(t, err)
	require.Len(t, sig, 128)
	require.True(t, signer.Verify(&fake.key.PublicKey, "deadbeef", sig))

	require.Equal(t, 1, fake.signCalls)
	assert.Equal(t, types.MessageTypeDigest, fake.lastInput.MessageType)
	assert.Equal(t, types.SigningAlgorithmSpecEcdsaSha256, fake.lastInput.SigningAlgorithm)
	digest, err := signer.Hash("deadbeef")
	require.NoError(t, err)
	assert.Equal(t, digest, fake.lastInput.Message)

	pubHex, err := s.PublicKeyHex(ctx)
	require.NoError(t, err)
	assert.Equal(t, signer.PublicKeyHex(&fake.key.PublicKey), pubHex)
}

func TestAWSKMSTransactionSigner_Failures(t *testing.T) {
	ctx := context.Background()
	l := testLogger(t)

	_, err := NewAWSKMSTransactionSigner(ctx, newFakeKMS(t), "", l)
	require.Error(t, err)

	fake := newFakeKMS(t)
	s, err := NewAWSKMSTransactionSigner(ctx, fake, "key", l)
	require.NoError(t, err)

	_, err = s.SignMessage(ctx, "xyz")
	require.True(t, errors.Is(err, signer.ErrInvalidEncoding))
	require.Equal(t, 0, fake.signCalls)

	fake.signErr = errors.New("throttled")
	_, err = s.SignMessage(ctx, "deadbeef")
	require.True(t, errors.Is(err, signer.ErrSigningFailure))
	require.Contains(t, err.Error(), "throttled")

	fake.signErr = nil
	fake.corruptSig = true
	_, err = s.SignMessage(ctx, "deadbeef")
	require.True(t, errors.Is(err, signer.ErrSigningFailure))
}
