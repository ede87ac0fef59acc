package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/Layr-Labs/flow-trivia-go/pkg/authorization"
	"github.com/Layr-Labs/flow-trivia-go/pkg/cadence"
	"github.com/Layr-Labs/flow-trivia-go/pkg/clients/flowAccess"
	"github.com/Layr-Labs/flow-trivia-go/pkg/flow"
	"github.com/Layr-Labs/flow-trivia-go/pkg/signer"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultGasLimit     uint64 = 999
	DefaultPollInterval        = time.Second
)

type Config struct {
	// Aliases maps script placeholders such as 0xTriviaGame to addresses.
	Aliases      map[string]flow.Address
	GasLimit     uint64
	PollInterval time.Duration
}

// Ledger runs scripts and transactions against a Flow access node.
type Ledger struct {
	client       flowAccess.IFlowAccessClient
	aliases      map[string]flow.Address
	gasLimit     uint64
	pollInterval time.Duration
	logger       *zap.Logger
}

func NewLedger(client flowAccess.IFlowAccessClient, cfg *Config, logger *zap.Logger) (*Ledger, error) {
	if client == nil {
		return nil, fmt.Errorf("access client cannot be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	l := &Ledger{
		client:       client,
		aliases:      make(map[string]flow.Address, len(cfg.Aliases)),
		gasLimit:     cfg.GasLimit,
		pollInterval: cfg.PollInterval,
		logger:       logger,
	}
	for k, v := range cfg.Aliases {
		l.aliases[k] = v
	}
	if l.gasLimit == 0 {
		l.gasLimit = DefaultGasLimit
	}
	if l.pollInterval <= 0 {
		l.pollInterval = DefaultPollInterval
	}
	return l, nil
}

func (l *Ledger) resolve(script string) (string, error) {
	resolved := flow.ResolveImports(script, l.aliases)
	if missing := flow.UnresolvedImports(resolved); len(missing) > 0 {
		return "", fmt.Errorf("unresolved address placeholders: %v", missing)
	}
	return resolved, nil
}

func encodeArgs(args []cadence.Value) ([][]byte, error) {
	out := make([][]byte, len(args))
	for i, arg := range args {
		b, err := cadence.Encode(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to encode argument %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}

// Query executes a read-only script and decodes its result.
func (l *Ledger) Query(ctx context.Context, script string, args ...cadence.Value) (cadence.Value, error) {
	resolved, err := l.resolve(script)
	if err != nil {
		return cadence.Value{}, err
	}
	encoded, err := encodeArgs(args)
	if err != nil {
		return cadence.Value{}, err
	}

	raw, err := l.client.ExecuteScript(ctx, []byte(resolved), encoded)
	if err != nil {
		return cadence.Value{}, err
	}
	value, err := cadence.Decode(raw)
	if err != nil {
		return cadence.Value{}, fmt.Errorf("failed to decode script result: %w", err)
	}
	return value, nil
}

type MutateRequest struct {
	Script      string
	Args        []cadence.Value
	Proposer    authorization.AuthorizationFunction
	Payer       authorization.AuthorizationFunction
	Authorizers []authorization.AuthorizationFunction
	// GasLimit falls back to the ledger default when zero.
	GasLimit uint64
}

type resolvedSigner struct {
	auth    *authorization.Authorization
	address flow.Address
}

func resolveAuthorization(fn authorization.AuthorizationFunction, roles authorization.Roles) (*resolvedSigner, error) {
	if fn == nil {
		return nil, fmt.Errorf("authorization function is nil")
	}
	auth := fn(authorization.Account{Roles: roles})
	if auth == nil {
		return nil, fmt.Errorf("authorization function returned nil")
	}
	if auth.SigningFunction == nil {
		return nil, fmt.Errorf("authorization %s has no signing function", auth.TempID)
	}
	addr, err := flow.HexToAddress(auth.Addr)
	if err != nil {
		return nil, fmt.Errorf("authorization %s: %w", auth.TempID, err)
	}
	return &resolvedSigner{auth: auth, address: addr}, nil
}

// Mutate builds, signs and submits a transaction, returning its ID. Payload
// signatures from every signer other than the payer are collected
// concurrently before the payer signs the envelope.
func (l *Ledger) Mutate(ctx context.Context, req MutateRequest) (string, error) {
	resolved, err := l.resolve(req.Script)
	if err != nil {
		return "", err
	}
	args, err := encodeArgs(req.Args)
	if err != nil {
		return "", err
	}

	proposer, err := resolveAuthorization(req.Proposer, authorization.Roles{Proposer: true})
	if err != nil {
		return "", fmt.Errorf("proposer: %w", err)
	}
	payer, err := resolveAuthorization(req.Payer, authorization.Roles{Payer: true})
	if err != nil {
		return "", fmt.Errorf("payer: %w", err)
	}
	authorizers := make([]*resolvedSigner, len(req.Authorizers))
	for i, fn := range req.Authorizers {
		if authorizers[i], err = resolveAuthorization(fn, authorization.Roles{Authorizer: true}); err != nil {
			return "", fmt.Errorf("authorizer %d: %w", i, err)
		}
	}

	block, err := l.client.GetLatestSealedBlock(ctx)
	if err != nil {
		return "", err
	}
	refID, err := flow.HexToIdentifier(block.ID)
	if err != nil {
		return "", fmt.Errorf("reference block: %w", err)
	}

	account, err := l.client.GetAccount(ctx, proposer.address)
	if err != nil {
		return "", err
	}
	key, err := account.Key(proposer.auth.KeyID)
	if err != nil {
		return "", err
	}
	sequence, err := key.SequenceNumberUint64()
	if err != nil {
		return "", fmt.Errorf("invalid sequence number %q: %w", key.SequenceNumber, err)
	}

	gasLimit := req.GasLimit
	if gasLimit == 0 {
		gasLimit = l.gasLimit
	}

	tx := &flow.Transaction{
		Script:           []byte(resolved),
		Arguments:        args,
		ReferenceBlockID: refID,
		GasLimit:         gasLimit,
		ProposalKey: flow.ProposalKey{
			Address:        proposer.address,
			KeyIndex:       proposer.auth.KeyID,
			SequenceNumber: sequence,
		},
		Payer: payer.address,
	}
	for _, a := range authorizers {
		tx.Authorizers = append(tx.Authorizers, a.address)
	}

	voucher := newVoucher(tx)
	payloadSigners := collectPayloadSigners(tx, proposer, authorizers)

	if len(payloadSigners) > 0 {
		payloadMsg, err := tx.PayloadMessage()
		if err != nil {
			return "", err
		}
		if err := l.signPayload(ctx, tx, payloadSigners, hex.EncodeToString(payloadMsg), voucher); err != nil {
			return "", err
		}
	}

	envelopeMsg, err := tx.EnvelopeMessage()
	if err != nil {
		return "", err
	}
	envelopeRoles := rolesFor(tx, payer.address)
	envelopeRoles.Payer = true
	sig, err := l.collectSignature(ctx, payer, envelopeRoles, hex.EncodeToString(envelopeMsg), voucher)
	if err != nil {
		return "", fmt.Errorf("envelope signature: %w", err)
	}
	if err := tx.AddEnvelopeSignature(payer.address, payer.auth.KeyID, sig); err != nil {
		return "", err
	}

	txID, err := l.client.SendTransaction(ctx, tx)
	if err != nil {
		return "", err
	}
	l.logger.Sugar().Infow("Transaction sent",
		"tx_id", txID,
		"proposer", proposer.address.HexWithPrefix(),
		"payer", payer.address.HexWithPrefix(),
		"payload_signatures", len(tx.PayloadSignatures),
	)
	return txID, nil
}

// collectPayloadSigners returns one signer per distinct non-payer address.
func collectPayloadSigners(tx *flow.Transaction, proposer *resolvedSigner, authorizers []*resolvedSigner) []*resolvedSigner {
	seen := map[flow.Address]bool{tx.Payer: true}
	var out []*resolvedSigner
	for _, s := range append([]*resolvedSigner{proposer}, authorizers...) {
		if seen[s.address] {
			continue
		}
		seen[s.address] = true
		out = append(out, s)
	}
	return out
}

func rolesFor(tx *flow.Transaction, addr flow.Address) authorization.Roles {
	roles := authorization.Roles{
		Proposer: tx.ProposalKey.Address == addr,
		Payer:    tx.Payer == addr,
	}
	for _, a := range tx.Authorizers {
		if a == addr {
			roles.Authorizer = true
		}
	}
	return roles
}

func newVoucher(tx *flow.Transaction) *authorization.Voucher {
	v := &authorization.Voucher{
		Cadence:      string(tx.Script),
		RefBlock:     tx.ReferenceBlockID.Hex(),
		ComputeLimit: tx.GasLimit,
		Proposer:     tx.ProposalKey.Address.HexWithPrefix(),
		Payer:        tx.Payer.HexWithPrefix(),
	}
	for _, a := range tx.Authorizers {
		v.Authorizers = append(v.Authorizers, a.HexWithPrefix())
	}
	return v
}

func (l *Ledger) signPayload(ctx context.Context, tx *flow.Transaction, signers []*resolvedSigner, messageHex string, voucher *authorization.Voucher) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range signers {
		s := s
		g.Go(func() error {
			sig, err := l.collectSignature(gctx, s, rolesFor(tx, s.address), messageHex, voucher)
			if err != nil {
				return fmt.Errorf("payload signature for %s: %w", s.address.HexWithPrefix(), err)
			}
			mu.Lock()
			defer mu.Unlock()
			return tx.AddPayloadSignature(s.address, s.auth.KeyID, sig)
		})
	}
	return g.Wait()
}

func (l *Ledger) collectSignature(ctx context.Context, s *resolvedSigner, roles authorization.Roles, messageHex string, voucher *authorization.Voucher) ([]byte, error) {
	keyID := s.auth.KeyID
	result, err := s.auth.SigningFunction(ctx, authorization.Signable{
		Message: messageHex,
		Addr:    s.address.Hex(),
		KeyID:   &keyID,
		Roles:   roles,
		Voucher: voucher,
	})
	if err != nil {
		return nil, err
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	addr, _ := flow.HexToAddress(result.Addr)
	if addr != s.address || result.KeyID != s.auth.KeyID {
		return nil, fmt.Errorf("signature returned for %s/%d, expected %s/%d",
			result.Addr, result.KeyID, s.address.HexWithPrefix(), s.auth.KeyID)
	}
	return signer.DecodeHex(result.Signature)
}

// WaitSealed polls the transaction result until it is sealed or expired.
// Failed or expired transactions return a *TransactionRejectedError.
func (l *Ledger) WaitSealed(ctx context.Context, txID string) (*flowAccess.TransactionResult, error) {
	limiter := rate.NewLimiter(rate.Every(l.pollInterval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for transaction %s: %w", txID, err)
		}

		result, err := l.client.GetTransactionResult(ctx, txID)
		if err != nil {
			return nil, err
		}
		if !result.Status.IsFinal() {
			l.logger.Sugar().Debugw("Transaction not sealed yet", "tx_id", txID, "status", result.Status)
			continue
		}
		if result.Failed() {
			return result, &TransactionRejectedError{
				TxID:       txID,
				Status:     result.Status,
				StatusCode: result.StatusCode,
				Message:    result.ErrorMessage,
			}
		}
		l.logger.Sugar().Infow("Transaction sealed", "tx_id", txID)
		return result, nil
	}
}
