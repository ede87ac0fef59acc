package persistence

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

type RecordKind string

const (
	RecordKind_AddQuestion RecordKind = "add_question"
	RecordKind_Answer      RecordKind = "answer"
)

type RecordStatus string

const (
	RecordStatus_Submitted RecordStatus = "submitted"
	RecordStatus_Sealed    RecordStatus = "sealed"
	RecordStatus_Rejected  RecordStatus = "rejected"
)

// TransactionRecord is one journal entry for a submitted transaction.
type TransactionRecord struct {
	// ID is the journal's own key, a random UUID.
	ID string `json:"id"`

	// TxID is the ledger transaction ID, empty if submission itself failed.
	TxID string `json:"txId"`

	Kind RecordKind `json:"kind"`

	// Address is the signer account with 0x prefix.
	Address string `json:"address"`

	Status       RecordStatus `json:"status"`
	SubmittedAt  time.Time    `json:"submittedAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	ErrorMessage string       `json:"errorMessage,omitempty"`

	// Details holds kind-specific values such as the question ID and the
	// chosen option.
	Details map[string]string `json:"details,omitempty"`
}

// NewTransactionRecord creates a submitted record with a fresh ID.
func NewTransactionRecord(kind RecordKind, address string, txID string) *TransactionRecord {
	now := time.Now().UTC()
	return &TransactionRecord{
		ID:          uuid.New().String(),
		TxID:        txID,
		Kind:        kind,
		Address:     address,
		Status:      RecordStatus_Submitted,
		SubmittedAt: now,
		UpdatedAt:   now,
		Details:     make(map[string]string),
	}
}

// Validate checks the fields every backend relies on.
func (r *TransactionRecord) Validate() error {
	if r == nil {
		return fmt.Errorf("cannot save nil TransactionRecord")
	}
	if r.ID == "" {
		return fmt.Errorf("record id cannot be empty")
	}
	switch r.Kind {
	case RecordKind_AddQuestion, RecordKind_Answer:
	default:
		return fmt.Errorf("unknown record kind %q", r.Kind)
	}
	switch r.Status {
	case RecordStatus_Submitted, RecordStatus_Sealed, RecordStatus_Rejected:
	default:
		return fmt.Errorf("unknown record status %q", r.Status)
	}
	return nil
}

// MarkSealed records a successful seal.
func (r *TransactionRecord) MarkSealed() {
	r.Status = RecordStatus_Sealed
	r.ErrorMessage = ""
	r.UpdatedAt = time.Now().UTC()
}

// MarkRejected records a failed or expired transaction.
func (r *TransactionRecord) MarkRejected(err error) {
	r.Status = RecordStatus_Rejected
	if err != nil {
		r.ErrorMessage = err.Error()
	}
	r.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy.
func (r *TransactionRecord) Clone() *TransactionRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Details != nil {
		c.Details = make(map[string]string, len(r.Details))
		for k, v := range r.Details {
			c.Details[k] = v
		}
	}
	return &c
}

// SortRecords orders records by submission time, then ID.
func SortRecords(records []*TransactionRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].SubmittedAt.Equal(records[j].SubmittedAt) {
			return records[i].SubmittedAt.Before(records[j].SubmittedAt)
		}
		return records[i].ID < records[j].ID
	})
}
