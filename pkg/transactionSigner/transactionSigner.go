package transactionSigner

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/flow-trivia-go/pkg/keyProvider"
	"go.uber.org/zap"
)

// ITransactionSigner signs Flow transaction messages with a single account key
type ITransactionSigner interface {
	// SignMessage hashes the hex message with SHA3-256 and returns the hex r||s
	// P-256 signature, each half 32 bytes
	SignMessage(ctx context.Context, messageHex string) (string, error)

	// PublicKeyHex returns the 64-byte X||Y public key as registered on the account
	PublicKeyHex(ctx context.Context) (string, error)
}

type KeySource string

const (
	KeySource_Env    KeySource = "env"
	KeySource_File   KeySource = "file"
	KeySource_Static KeySource = "static"
	KeySource_AWSKMS KeySource = "aws-kms"
)

type SignerConfig struct {
	Source     KeySource `json:"source" yaml:"source"`
	EnvVar     string    `json:"envVar" yaml:"envVar"`
	KeyFile    string    `json:"keyFile" yaml:"keyFile"`
	PrivateKey string    `json:"-" yaml:"-"`
	KMSKeyID   string    `json:"kmsKeyId" yaml:"kmsKeyId"`
	AWSRegion  string    `json:"awsRegion" yaml:"awsRegion"`
}

// NewTransactionSigner builds the signer selected by cfg.Source. The aws-kms
// source needs a KMS client; callers that never use it may pass nil.
func NewTransactionSigner(ctx context.Context, cfg *SignerConfig, kmsClient IKMSClient, logger *zap.Logger) (ITransactionSigner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("signer config cannot be nil")
	}

	var provider keyProvider.IKeyProvider
	switch cfg.Source {
	case KeySource_Env:
		provider = keyProvider.NewEnvKeyProvider(cfg.EnvVar)
	case KeySource_File:
		provider = keyProvider.NewFileKeyProvider(cfg.KeyFile)
	case KeySource_Static:
		provider = keyProvider.NewStaticKeyProvider(cfg.PrivateKey)
	case KeySource_AWSKMS:
		if kmsClient == nil {
			return nil, fmt.Errorf("aws-kms key source requires a KMS client")
		}
		return NewAWSKMSTransactionSigner(ctx, kmsClient, cfg.KMSKeyID, logger)
	default:
		return nil, fmt.Errorf("unsupported key source: %q", cfg.Source)
	}

	return NewInMemoryTransactionSigner(ctx, provider, logger)
}
