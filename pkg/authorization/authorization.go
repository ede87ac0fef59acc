package authorization

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/flow-trivia-go/pkg/flow"
	"github.com/Layr-Labs/flow-trivia-go/pkg/signer"
	"github.com/Layr-Labs/flow-trivia-go/pkg/transactionSigner"
	"go.uber.org/zap"
)

// Roles flags which parts a signer plays in a transaction. They are
// informational and never change how a message is signed.
type Roles struct {
	Proposer   bool `json:"proposer"`
	Authorizer bool `json:"authorizer"`
	Payer      bool `json:"payer"`
}

// Voucher summarizes the transaction a signable belongs to.
type Voucher struct {
	Cadence      string   `json:"cadence"`
	RefBlock     string   `json:"refBlock"`
	ComputeLimit uint64   `json:"computeLimit"`
	Proposer     string   `json:"proposer"`
	Payer        string   `json:"payer"`
	Authorizers  []string `json:"authorizers"`
}

// Signable is what the ledger client hands to a signing function.
type Signable struct {
	Message string   `json:"message"`
	Addr    string   `json:"addr,omitempty"`
	KeyID   *uint32  `json:"keyId,omitempty"`
	Roles   Roles    `json:"roles"`
	Voucher *Voucher `json:"voucher,omitempty"`
}

// SignatureResult is what a signing function returns.
type SignatureResult struct {
	Addr      string `json:"addr"`
	KeyID     uint32 `json:"keyId"`
	Signature string `json:"signature"`
}

// SigningFunction signs one signable. Implementations must be safe for
// concurrent use.
type SigningFunction func(ctx context.Context, signable Signable) (*SignatureResult, error)

// Account is the partially resolved account the ledger client passes to an
// authorization function.
type Account struct {
	TempID string
	Addr   string
	KeyID  uint32
	Roles  Roles
}

// Authorization is a fully resolved signer for a transaction role.
type Authorization struct {
	TempID          string
	Addr            string
	KeyID           uint32
	Roles           Roles
	SigningFunction SigningFunction
}

// AuthorizationFunction resolves an account into an Authorization.
type AuthorizationFunction func(account Account) *Authorization

// Validate checks a signable at the boundary, before any signing.
func (s Signable) Validate() error {
	if s.Message == "" {
		return fmt.Errorf("signable message is empty")
	}
	if _, err := signer.DecodeHex(s.Message); err != nil {
		return fmt.Errorf("signable message: %w", err)
	}
	return nil
}

// Validate checks the shape the ledger client relies on.
func (r *SignatureResult) Validate() error {
	if r == nil {
		return fmt.Errorf("signature result is nil")
	}
	if _, err := flow.HexToAddress(r.Addr); err != nil {
		return fmt.Errorf("signature result address: %w", err)
	}
	sig, err := signer.DecodeHex(r.Signature)
	if err != nil {
		return fmt.Errorf("signature result signature: %w", err)
	}
	if len(sig) != signer.SignatureLength {
		return fmt.Errorf("signature must be %d bytes, got %d", signer.SignatureLength, len(sig))
	}
	return nil
}

// Authorizer signs on behalf of one fixed account key without any
// interactive approval.
type Authorizer struct {
	address  flow.Address
	keyIndex uint32
	signer   transactionSigner.ITransactionSigner
	logger   *zap.Logger
}

func NewAuthorizer(address flow.Address, keyIndex uint32, s transactionSigner.ITransactionSigner, logger *zap.Logger) (*Authorizer, error) {
	if address == flow.EmptyAddress {
		return nil, fmt.Errorf("authorizer address cannot be empty")
	}
	if s == nil {
		return nil, fmt.Errorf("authorizer signer cannot be nil")
	}
	return &Authorizer{
		address:  address,
		keyIndex: keyIndex,
		signer:   s,
		logger:   logger,
	}, nil
}

func (a *Authorizer) Address() flow.Address {
	return a.address
}

func (a *Authorizer) KeyIndex() uint32 {
	return a.keyIndex
}

// TempID identifies this signer within one transaction resolution.
func (a *Authorizer) TempID() string {
	return fmt.Sprintf("%s-%d", a.address.HexWithPrefix(), a.keyIndex)
}

// Authorize resolves any account into this authorizer's fixed key. Only the
// roles are carried over from the incoming account.
func (a *Authorizer) Authorize(account Account) *Authorization {
	return &Authorization{
		TempID:          a.TempID(),
		Addr:            a.address.Hex(),
		KeyID:           a.keyIndex,
		Roles:           account.Roles,
		SigningFunction: a.Sign,
	}
}

// Sign is the signing function handed out by Authorize.
func (a *Authorizer) Sign(ctx context.Context, signable Signable) (*SignatureResult, error) {
	if err := signable.Validate(); err != nil {
		return nil, err
	}

	sig, err := a.signer.SignMessage(ctx, signable.Message)
	if err != nil {
		a.logger.Sugar().Errorw("Signing failed",
			"address", a.address.HexWithPrefix(),
			"key_index", a.keyIndex,
			"error", err,
		)
		return nil, err
	}

	a.logger.Sugar().Debugw("Signed transaction message",
		"address", a.address.HexWithPrefix(),
		"key_index", a.keyIndex,
		"proposer", signable.Roles.Proposer,
		"authorizer", signable.Roles.Authorizer,
		"payer", signable.Roles.Payer,
	)

	return &SignatureResult{
		Addr:      a.address.HexWithPrefix(),
		KeyID:     a.keyIndex,
		Signature: sig,
	}, nil
}
