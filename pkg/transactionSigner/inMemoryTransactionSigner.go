package transactionSigner

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/Layr-Labs/flow-trivia-go/pkg/keyProvider"
	"github.com/Layr-Labs/flow-trivia-go/pkg/signer"
	"go.uber.org/zap"
)

// InMemoryTransactionSigner holds a parsed P-256 key for the life of the process.
type InMemoryTransactionSigner struct {
	logger     *zap.Logger
	privateKey *ecdsa.PrivateKey
}

// NewInMemoryTransactionSigner loads the key once from the provider.
func NewInMemoryTransactionSigner(ctx context.Context, provider keyProvider.IKeyProvider, logger *zap.Logger) (*InMemoryTransactionSigner, error) {
	keyHex, err := provider.PrivateKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key from %s: %w", provider.Name(), err)
	}

	key, err := signer.ParsePrivateKey(keyHex)
	if err != nil {
		return nil, fmt.Errorf("error loading private key: %w", err)
	}

	logger.Sugar().Debugw("Loaded in-memory signing key",
		"provider", provider.Name(),
		"public_key", signer.PublicKeyHex(&key.PublicKey),
	)

	return &InMemoryTransactionSigner{
		logger:     logger,
		privateKey: key,
	}, nil
}

func (s *InMemoryTransactionSigner) SignMessage(_ context.Context, messageHex string) (string, error) {
	return signer.SignWithKey(s.privateKey, messageHex)
}

func (s *InMemoryTransactionSigner) PublicKeyHex(_ context.Context) (string, error) {
	return signer.PublicKeyHex(&s.privateKey.PublicKey), nil
}

// PublicKey exposes the public half for verification.
func (s *InMemoryTransactionSigner) PublicKey() *ecdsa.PublicKey {
	return &s.privateKey.PublicKey
}
