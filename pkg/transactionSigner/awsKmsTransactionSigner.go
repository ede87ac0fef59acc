package transactionSigner

import (
	"context"
	"crypto/ecdsa"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"

	"github.com/Layr-Labs/flow-trivia-go/pkg/signer"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// IKMSClient is the subset of the AWS KMS API the signer uses.
type IKMSClient interface {
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
	GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
}

var _ IKMSClient = (*kms.Client)(nil)

var oidNamedCurveP256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7}

type asn1EcSig struct {
	R *big.Int
	S *big.Int
}

type asn1EcPublicKey struct {
	EcPublicKeyInfo asn1EcPublicKeyInfo
	PublicKey       asn1.BitString
}

type asn1EcPublicKeyInfo struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.ObjectIdentifier
}

// AWSKMSTransactionSigner signs with an ECC_NIST_P256 key that never leaves
// KMS. The SHA3-256 digest is computed locally and sent as a pre-hashed digest.
type AWSKMSTransactionSigner struct {
	logger    *zap.Logger
	kmsClient IKMSClient
	keyId     string

	mu        sync.Mutex
	publicKey *ecdsa.PublicKey
}

func NewAWSKMSTransactionSigner(ctx context.Context, kmsClient IKMSClient, keyId string, logger *zap.Logger) (*AWSKMSTransactionSigner, error) {
	if keyId == "" {
		return nil, fmt.Errorf("KMS key id cannot be empty")
	}
	s := &AWSKMSTransactionSigner{
		logger:    logger,
		kmsClient: kmsClient,
		keyId:     keyId,
	}
	if _, err := s.getPublicKey(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *AWSKMSTransactionSigner) getPublicKey(ctx context.Context) (*ecdsa.PublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.publicKey != nil {
		return s.publicKey, nil
	}

	out, err := s.kmsClient.GetPublicKey(ctx, &kms.GetPublicKeyInput{
		KeyId: aws.String(s.keyId),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get public key for KMS key %s", s.keyId)
	}

	pub, err := parseP256PublicKey(out.PublicKey)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse public key for KMS key %s", s.keyId)
	}
	s.publicKey = pub

	s.logger.Sugar().Infow("Loaded KMS signing key",
		"key_id", s.keyId,
		"public_key", signer.PublicKeyHex(pub),
	)
	return pub, nil
}

func (s *AWSKMSTransactionSigner) PublicKeyHex(ctx context.Context) (string, error) {
	pub, err := s.getPublicKey(ctx)
	if err != nil {
		return "", err
	}
	return signer.PublicKeyHex(pub), nil
}

func (s *AWSKMSTransactionSigner) SignMessage(ctx context.Context, messageHex string) (string, error) {
	digest, err := signer.Hash(messageHex)
	if err != nil {
		return "", &signer.SigningError{Cause: err}
	}

	pub, err := s.getPublicKey(ctx)
	if err != nil {
		return "", &signer.SigningError{Cause: err}
	}

	out, err := s.kmsClient.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(s.keyId),
		Message:          digest,
		SigningAlgorithm: types.SigningAlgorithmSpecEcdsaSha256,
		MessageType:      types.MessageTypeDigest,
	})
	if err != nil {
		return "", &signer.SigningError{Cause: errors.Wrapf(err, "KMS sign with key %s", s.keyId)}
	}

	var sig asn1EcSig
	if _, err := asn1.Unmarshal(out.Signature, &sig); err != nil {
		return "", &signer.SigningError{Cause: errors.Wrap(err, "failed to parse KMS signature")}
	}

	if !ecdsa.Verify(pub, digest, sig.R, sig.S) {
		return "", &signer.SigningError{Cause: fmt.Errorf("KMS signature does not verify against key %s", s.keyId)}
	}

	encoded, err := signer.EncodeSignature(sig.R, sig.S)
	if err != nil {
		return "", &signer.SigningError{Cause: err}
	}
	return encoded, nil
}

// parseP256PublicKey parses the DER SubjectPublicKeyInfo returned by KMS.
func parseP256PublicKey(derBytes []byte) (*ecdsa.PublicKey, error) {
	var spki asn1EcPublicKey
	if _, err := asn1.Unmarshal(derBytes, &spki); err != nil {
		return nil, fmt.Errorf("failed to parse ASN.1 public key: %w", err)
	}
	if !spki.EcPublicKeyInfo.Parameters.Equal(oidNamedCurveP256) {
		return nil, fmt.Errorf("KMS key is not on P-256 (curve OID %s)", spki.EcPublicKeyInfo.Parameters)
	}
	return signer.ParsePublicKey(hex.EncodeToString(spki.PublicKey.Bytes))
}
