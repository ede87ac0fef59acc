package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Layr-Labs/flow-trivia-go/pkg/authorization"
	"github.com/Layr-Labs/flow-trivia-go/pkg/cadence"
	"github.com/Layr-Labs/flow-trivia-go/pkg/clients/flowAccess"
	"github.com/Layr-Labs/flow-trivia-go/pkg/flow"
	"github.com/Layr-Labs/flow-trivia-go/pkg/keyProvider"
	"github.com/Layr-Labs/flow-trivia-go/pkg/signer"
	"github.com/Layr-Labs/flow-trivia-go/pkg/testutil"
	"github.com/Layr-Labs/flow-trivia-go/pkg/transactionSigner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const adminPrivateKey = "54011f6778ae2ccc9d0175212b225b116c37c1a94262fdcdc0369cf7ae69f723"

var (
	adminAddress  = flow.MustHexToAddress("0x6749ea8e0a268f1a")
	playerAddress = flow.MustHexToAddress("0x01cf0e2f2f715450")
)

type harness struct {
	node   *testutil.FakeAccessNode
	ledger *Ledger
	admin  *authorization.Authorizer
	player *authorization.Authorizer
}

func newAuthorizer(t *testing.T, node *testutil.FakeAccessNode, addr flow.Address, privateKeyHex string) *authorization.Authorizer {
	t.Helper()
	l := zaptest.NewLogger(t)
	s, err := transactionSigner.NewInMemoryTransactionSigner(context.Background(), keyProvider.NewStaticKeyProvider(privateKeyHex), l)
	require.NoError(t, err)
	pub, err := s.PublicKeyHex(context.Background())
	require.NoError(t, err)
	node.AddAccountKey(addr, 0, pub, 0)

	a, err := authorization.NewAuthorizer(addr, 0, s, l)
	require.NoError(t, err)
	return a
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	node := testutil.NewFakeAccessNode()
	t.Cleanup(node.Close)

	playerKey, err := signer.GenerateKey()
	require.NoError(t, err)

	h := &harness{node: node}
	h.admin = newAuthorizer(t, node, adminAddress, adminPrivateKey)
	h.player = newAuthorizer(t, node, playerAddress, signer.PrivateKeyHex(playerKey))

	client, err := flowAccess.NewClient(&flowAccess.Config{BaseURL: node.URL(), Timeout: 5 * time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)

	h.ledger, err = NewLedger(client, &Config{
		Aliases:      map[string]flow.Address{"0xTriviaGame": adminAddress},
		PollInterval: 5 * time.Millisecond,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return h
}

func TestNewLedgerDefaults(t *testing.T) {
	node := testutil.NewFakeAccessNode()
	defer node.Close()
	client, err := flowAccess.NewClient(&flowAccess.Config{BaseURL: node.URL()}, zaptest.NewLogger(t))
	require.NoError(t, err)

	l, err := NewLedger(client, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, DefaultGasLimit, l.gasLimit)
	assert.Equal(t, DefaultPollInterval, l.pollInterval)

	_, err = NewLedger(nil, nil, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestQuery(t *testing.T) {
	h := newHarness(t)
	h.node.SetScriptHandler(func(_ string, arguments [][]byte) ([]byte, error) {
		if len(arguments) != 1 {
			return nil, fmt.Errorf("expected one argument, got %d", len(arguments))
		}
		arg, err := cadence.Decode(arguments[0])
		if err != nil {
			return nil, err
		}
		n, err := arg.ToUint64()
		if err != nil {
			return nil, err
		}
		return cadence.Encode(cadence.UInt64(n * 2))
	})

	value, err := h.ledger.Query(context.Background(),
		"import TriviaGame from 0xTriviaGame\naccess(all) fun main(n: UInt64): UInt64 { return n * 2 }",
		cadence.UInt64(21))
	require.NoError(t, err)

	n, err := value.ToUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n)
	scripts := h.node.Scripts()
	require.Len(t, scripts, 1)
	assert.Contains(t, scripts[0], "from 0x6749ea8e0a268f1a")
	assert.NotContains(t, scripts[0], "0xTriviaGame")
}

func TestQueryUnresolvedPlaceholder(t *testing.T) {
	h := newHarness(t)
	_, err := h.ledger.Query(context.Background(), "import Other from 0xOther\naccess(all) fun main() {}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0xOther")
}

func TestQueryScriptError(t *testing.T) {
	h := newHarness(t)
	h.node.SetScriptHandler(func(string, [][]byte) ([]byte, error) {
		return nil, fmt.Errorf("cannot find declaration")
	})
	_, err := h.ledger.Query(context.Background(), "access(all) fun main() {}")
	require.Error(t, err)

	var apiErr *flowAccess.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Message, "cannot find declaration")
}

func TestMutateSingleAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	txID, err := h.ledger.Mutate(ctx, MutateRequest{
		Script:      "import TriviaGame from 0xTriviaGame\ntransaction { prepare(signer: &Account) {} }",
		Proposer:    h.admin.Authorize,
		Payer:       h.admin.Authorize,
		Authorizers: []authorization.AuthorizationFunction{h.admin.Authorize},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, txID)

	submitted := h.node.Submitted()
	require.Len(t, submitted, 1)
	tx := submitted[0]
	assert.Empty(t, tx.PayloadSignatures)
	require.Len(t, tx.EnvelopeSignatures, 1)
	assert.Equal(t, adminAddress, tx.EnvelopeSignatures[0].Address)
	assert.Equal(t, DefaultGasLimit, tx.GasLimit)
	assert.True(t, strings.Contains(string(tx.Script), "0x6749ea8e0a268f1a"))
	assert.Equal(t, uint64(1), h.node.SequenceNumber(adminAddress, 0))
}

func TestMutateSeparatePayer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ledger.Mutate(ctx, MutateRequest{
		Script:      "transaction(n: UInt64) { prepare(signer: &Account) {} }",
		Args:        []cadence.Value{cadence.UInt64(3)},
		Proposer:    h.player.Authorize,
		Payer:       h.admin.Authorize,
		Authorizers: []authorization.AuthorizationFunction{h.player.Authorize},
		GasLimit:    250,
	})
	require.NoError(t, err)

	submitted := h.node.Submitted()
	require.Len(t, submitted, 1)
	tx := submitted[0]
	require.Len(t, tx.PayloadSignatures, 1)
	assert.Equal(t, playerAddress, tx.PayloadSignatures[0].Address)
	require.Len(t, tx.EnvelopeSignatures, 1)
	assert.Equal(t, adminAddress, tx.EnvelopeSignatures[0].Address)
	assert.Equal(t, uint64(250), tx.GasLimit)
	assert.Equal(t, []flow.Address{playerAddress, adminAddress}, tx.SignerList())
	assert.Equal(t, uint64(1), h.node.SequenceNumber(playerAddress, 0))
	assert.Equal(t, uint64(0), h.node.SequenceNumber(adminAddress, 0))
}

func TestMutateSigningFailure(t *testing.T) {
	h := newHarness(t)
	signingErr := fmt.Errorf("hardware key unavailable")
	failing := func(account authorization.Account) *authorization.Authorization {
		auth := h.player.Authorize(account)
		auth.SigningFunction = func(context.Context, authorization.Signable) (*authorization.SignatureResult, error) {
			return nil, signingErr
		}
		return auth
	}

	_, err := h.ledger.Mutate(context.Background(), MutateRequest{
		Script:      "transaction { prepare(signer: &Account) {} }",
		Proposer:    failing,
		Payer:       h.admin.Authorize,
		Authorizers: []authorization.AuthorizationFunction{failing},
	})
	require.ErrorIs(t, err, signingErr)
	assert.Empty(t, h.node.Submitted())
}

func TestMutateRejectsMismatchedSignature(t *testing.T) {
	h := newHarness(t)
	wrongAccount := func(account authorization.Account) *authorization.Authorization {
		auth := h.admin.Authorize(account)
		auth.SigningFunction = h.player.Sign
		return auth
	}

	_, err := h.ledger.Mutate(context.Background(), MutateRequest{
		Script:   "transaction {}",
		Proposer: wrongAccount,
		Payer:    wrongAccount,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected")
	assert.Empty(t, h.node.Submitted())
}

func TestMutateNilAuthorization(t *testing.T) {
	h := newHarness(t)
	_, err := h.ledger.Mutate(context.Background(), MutateRequest{
		Script: "transaction {}",
		Payer:  h.admin.Authorize,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proposer")
}

func sendNoop(t *testing.T, h *harness) string {
	t.Helper()
	txID, err := h.ledger.Mutate(context.Background(), MutateRequest{
		Script:      "transaction { prepare(signer: &Account) {} }",
		Proposer:    h.admin.Authorize,
		Payer:       h.admin.Authorize,
		Authorizers: []authorization.AuthorizationFunction{h.admin.Authorize},
	})
	require.NoError(t, err)
	return txID
}

func TestWaitSealed(t *testing.T) {
	h := newHarness(t)
	h.node.SetPendingPolls(3)
	txID := sendNoop(t, h)

	result, err := h.ledger.WaitSealed(context.Background(), txID)
	require.NoError(t, err)
	assert.Equal(t, flowAccess.TransactionStatus_Sealed, result.Status)
}

func TestWaitSealedExecutionError(t *testing.T) {
	h := newHarness(t)
	h.node.SetTransactionHandler(func(*flow.Transaction) error {
		return fmt.Errorf("pre-condition failed: already answered")
	})
	txID := sendNoop(t, h)

	result, err := h.ledger.WaitSealed(context.Background(), txID)
	require.ErrorIs(t, err, ErrTransactionRejected)
	require.NotNil(t, result)

	var rejected *TransactionRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, txID, rejected.TxID)
	assert.Equal(t, 1, rejected.StatusCode)
	assert.Contains(t, rejected.Message, "already answered")
}

func TestWaitSealedExpired(t *testing.T) {
	h := newHarness(t)
	h.node.ExpireNextTransaction()
	txID := sendNoop(t, h)

	_, err := h.ledger.WaitSealed(context.Background(), txID)
	require.ErrorIs(t, err, ErrTransactionRejected)

	var rejected *TransactionRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, flowAccess.TransactionStatus_Expired, rejected.Status)
}

func TestWaitSealedContextCancelled(t *testing.T) {
	h := newHarness(t)
	h.node.SetPendingPolls(1000)
	txID := sendNoop(t, h)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := h.ledger.WaitSealed(ctx, txID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTransactionRejected)
}

func TestWaitSealedUnknownTransaction(t *testing.T) {
	h := newHarness(t)
	_, err := h.ledger.WaitSealed(context.Background(), strings.Repeat("ab", 32))
	require.Error(t, err)

	var apiErr *flowAccess.APIError
	require.True(t, errors.As(err, &apiErr))
}
