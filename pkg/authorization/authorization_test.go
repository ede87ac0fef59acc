package authorization

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Layr-Labs/flow-trivia-go/pkg/flow"
	"github.com/Layr-Labs/flow-trivia-go/pkg/keyProvider"
	"github.com/Layr-Labs/flow-trivia-go/pkg/logger"
	"github.com/Layr-Labs/flow-trivia-go/pkg/signer"
	"github.com/Layr-Labs/flow-trivia-go/pkg/transactionSigner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPrivateKey = "54011f6778ae2ccc9d0175212b225b116c37c1a94262fdcdc0369cf7ae69f723"
	testAddress    = "0x6749ea8e0a268f1a"
)

type failingSigner struct{}

func (failingSigner) SignMessage(context.Context, string) (string, error) {
	return "", &signer.SigningError{Cause: errors.New("hsm offline")}
}

func (failingSigner) PublicKeyHex(context.Context) (string, error) {
	return "", errors.New("hsm offline")
}

func newTestAuthorizer(t *testing.T) (*Authorizer, *transactionSigner.InMemoryTransactionSigner) {
	t.Helper()
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	s, err := transactionSigner.NewInMemoryTransactionSigner(context.Background(), keyProvider.NewStaticKeyProvider(testPrivateKey), l)
	require.NoError(t, err)

	a, err := NewAuthorizer(flow.MustHexToAddress(testAddress), 0, s, l)
	require.NoError(t, err)
	return a, s
}

func TestAuthorize_FixedIdentity(t *testing.T) {
	a, _ := newTestAuthorizer(t)

	accounts := []Account{
		{},
		{TempID: "other", Addr: "0x01", KeyID: 9},
		{Roles: Roles{Proposer: true, Payer: true}},
	}
	for i, acct := range accounts {
		t.Run(fmt.Sprintf("account-%d", i), func(t *testing.T) {
			authz := a.Authorize(acct)
			assert.Equal(t, "0x6749ea8e0a268f1a-0", authz.TempID)
			assert.Equal(t, "6749ea8e0a268f1a", authz.Addr)
			assert.Equal(t, uint32(0), authz.KeyID)
			assert.Equal(t, acct.Roles, authz.Roles)
			require.NotNil(t, authz.SigningFunction)
		})
	}
}

func TestSigningFunction_EndToEnd(t *testing.T) {
	a, s := newTestAuthorizer(t)
	authz := a.Authorize(Account{})

	result, err := authz.SigningFunction(context.Background(), Signable{
		Message: "deadbeef",
		Roles:   Roles{Proposer: true, Authorizer: true, Payer: true},
	})
	require.NoError(t, err)
	require.NoError(t, result.Validate())

	assert.Equal(t, testAddress, result.Addr)
	assert.Equal(t, uint32(0), result.KeyID)
	require.Len(t, result.Signature, 128)
	require.True(t, signer.Verify(s.PublicKey(), "deadbeef", result.Signature))
}

func TestSigningFunction_RolesDoNotAffectSigning(t *testing.T) {
	a, s := newTestAuthorizer(t)
	authz := a.Authorize(Account{})

	for _, roles := range []Roles{{}, {Proposer: true}, {Payer: true}, {Authorizer: true}} {
		result, err := authz.SigningFunction(context.Background(), Signable{Message: "cafe", Roles: roles})
		require.NoError(t, err)
		require.True(t, signer.Verify(s.PublicKey(), "cafe", result.Signature))
	}
}

func TestSigningFunction_Concurrent(t *testing.T) {
	a, s := newTestAuthorizer(t)
	authz := a.Authorize(Account{})

	messages := []string{"deadbeef", "0badc0de"}
	results := make([]*SignatureResult, len(messages))
	errs := make([]error, len(messages))

	var wg sync.WaitGroup
	for i, msg := range messages {
		wg.Add(1)
		go func(i int, msg string) {
			defer wg.Done()
			results[i], errs[i] = authz.SigningFunction(context.Background(), Signable{Message: msg})
		}(i, msg)
	}
	wg.Wait()

	for i, msg := range messages {
		require.NoError(t, errs[i])
		require.NoError(t, results[i].Validate())
		require.True(t, signer.Verify(s.PublicKey(), msg, results[i].Signature))
		require.False(t, signer.Verify(s.PublicKey(), messages[1-i], results[i].Signature))
	}
}

func TestSigningFunction_PropagatesErrors(t *testing.T) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	a, err := NewAuthorizer(flow.MustHexToAddress(testAddress), 0, failingSigner{}, l)
	require.NoError(t, err)

	result, err := a.Authorize(Account{}).SigningFunction(context.Background(), Signable{Message: "deadbeef"})
	require.Nil(t, result)
	require.True(t, errors.Is(err, signer.ErrSigningFailure))
	require.Contains(t, err.Error(), "hsm offline")
}

func TestSigningFunction_RejectsBadSignable(t *testing.T) {
	a, _ := newTestAuthorizer(t)
	sign := a.Authorize(Account{}).SigningFunction

	_, err := sign(context.Background(), Signable{})
	require.Error(t, err)

	_, err = sign(context.Background(), Signable{Message: "not hex"})
	require.True(t, errors.Is(err, signer.ErrInvalidEncoding))
}

func TestSignatureResult_Validate(t *testing.T) {
	var nilResult *SignatureResult
	require.Error(t, nilResult.Validate())

	good := &SignatureResult{Addr: testAddress, Signature: fmt.Sprintf("%0128x", 1)}
	require.NoError(t, good.Validate())

	require.Error(t, (&SignatureResult{Addr: "", Signature: good.Signature}).Validate())
	require.Error(t, (&SignatureResult{Addr: testAddress, Signature: "abcd"}).Validate())
	require.Error(t, (&SignatureResult{Addr: testAddress, Signature: "zz"}).Validate())
}

func TestNewAuthorizer_Errors(t *testing.T) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	_, err = NewAuthorizer(flow.EmptyAddress, 0, failingSigner{}, l)
	require.Error(t, err)
	_, err = NewAuthorizer(flow.MustHexToAddress(testAddress), 0, nil, l)
	require.Error(t, err)
}
