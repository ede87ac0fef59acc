package flowAccess

import (
	"fmt"
	"strconv"
)

// TransactionStatus values reported by the access API.
type TransactionStatus string

const (
	TransactionStatus_Unknown   TransactionStatus = "Unknown"
	TransactionStatus_Pending   TransactionStatus = "Pending"
	TransactionStatus_Finalized TransactionStatus = "Finalized"
	TransactionStatus_Executed  TransactionStatus = "Executed"
	TransactionStatus_Sealed    TransactionStatus = "Sealed"
	TransactionStatus_Expired   TransactionStatus = "Expired"
)

// IsFinal reports whether no further status change will happen.
func (s TransactionStatus) IsFinal() bool {
	return s == TransactionStatus_Sealed || s == TransactionStatus_Expired
}

type BlockHeader struct {
	ID        string `json:"id"`
	ParentID  string `json:"parent_id"`
	Height    string `json:"height"`
	Timestamp string `json:"timestamp"`
}

func (h *BlockHeader) HeightUint64() (uint64, error) {
	return strconv.ParseUint(h.Height, 10, 64)
}

type block struct {
	Header BlockHeader `json:"header"`
}

type AccountKey struct {
	Index            string `json:"index"`
	PublicKey        string `json:"public_key"`
	SigningAlgorithm string `json:"signing_algorithm"`
	HashingAlgorithm string `json:"hashing_algorithm"`
	SequenceNumber   string `json:"sequence_number"`
	Weight           string `json:"weight"`
	Revoked          bool   `json:"revoked"`
}

type Account struct {
	Address string       `json:"address"`
	Balance string       `json:"balance"`
	Keys    []AccountKey `json:"keys"`
}

// Key returns the key at index, failing for unknown or revoked keys.
func (a *Account) Key(index uint32) (*AccountKey, error) {
	want := strconv.FormatUint(uint64(index), 10)
	for i := range a.Keys {
		if a.Keys[i].Index != want {
			continue
		}
		if a.Keys[i].Revoked {
			return nil, fmt.Errorf("key %d of account %s is revoked", index, a.Address)
		}
		return &a.Keys[i], nil
	}
	return nil, fmt.Errorf("key %d not found on account %s", index, a.Address)
}

func (k *AccountKey) SequenceNumberUint64() (uint64, error) {
	return strconv.ParseUint(k.SequenceNumber, 10, 64)
}

type proposalKeyBody struct {
	Address        string `json:"address"`
	KeyIndex       string `json:"key_index"`
	SequenceNumber string `json:"sequence_number"`
}

type signatureBody struct {
	Address   string `json:"address"`
	KeyIndex  string `json:"key_index"`
	Signature string `json:"signature"`
}

type transactionBody struct {
	Script             string          `json:"script"`
	Arguments          []string        `json:"arguments"`
	ReferenceBlockID   string          `json:"reference_block_id"`
	GasLimit           string          `json:"gas_limit"`
	Payer              string          `json:"payer"`
	ProposalKey        proposalKeyBody `json:"proposal_key"`
	Authorizers        []string        `json:"authorizers"`
	PayloadSignatures  []signatureBody `json:"payload_signatures"`
	EnvelopeSignatures []signatureBody `json:"envelope_signatures"`
}

type transactionResponse struct {
	ID string `json:"id"`
}

type scriptBody struct {
	Script    string   `json:"script"`
	Arguments []string `json:"arguments"`
}

type Event struct {
	Type             string `json:"type"`
	TransactionID    string `json:"transaction_id"`
	TransactionIndex string `json:"transaction_index"`
	EventIndex       string `json:"event_index"`
	// Payload is the base64 JSON-Cadence event value.
	Payload string `json:"payload"`
}

type TransactionResult struct {
	BlockID         string            `json:"block_id"`
	CollectionID    string            `json:"collection_id"`
	Execution       string            `json:"execution"`
	Status          TransactionStatus `json:"status"`
	StatusCode      int               `json:"status_code"`
	ErrorMessage    string            `json:"error_message"`
	ComputationUsed string            `json:"computation_used"`
	Events          []Event           `json:"events"`
}

// Failed reports an execution error or expiry.
func (r *TransactionResult) Failed() bool {
	return r.StatusCode != 0 || r.ErrorMessage != "" || r.Status == TransactionStatus_Expired
}

// APIError is a non-2xx response from the access node.
type APIError struct {
	StatusCode int    `json:"code"`
	Message    string `json:"message"`
	Path       string `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("access API %s returned %d: %s", e.Path, e.StatusCode, e.Message)
}
