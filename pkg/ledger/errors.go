package ledger

import (
	"errors"
	"fmt"

	"github.com/Layr-Labs/flow-trivia-go/pkg/clients/flowAccess"
)

// ErrTransactionRejected matches any transaction that expired or failed
// execution.
var ErrTransactionRejected = errors.New("transaction rejected")

type TransactionRejectedError struct {
	TxID       string
	Status     flowAccess.TransactionStatus
	StatusCode int
	Message    string
}

func (e *TransactionRejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("transaction %s rejected (status %s, code %d): %s", e.TxID, e.Status, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("transaction %s rejected (status %s, code %d)", e.TxID, e.Status, e.StatusCode)
}

func (e *TransactionRejectedError) Is(target error) bool {
	return target == ErrTransactionRejected
}
