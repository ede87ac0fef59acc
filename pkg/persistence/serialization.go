package persistence

import (
	"encoding/json"
	"fmt"
)

// MarshalTransactionRecord serializes a TransactionRecord to JSON bytes.
func MarshalTransactionRecord(r *TransactionRecord) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("cannot marshal nil TransactionRecord")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TransactionRecord to JSON: %w", err)
	}
	return data, nil
}

// UnmarshalTransactionRecord deserializes a TransactionRecord from JSON bytes.
func UnmarshalTransactionRecord(data []byte) (*TransactionRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var r TransactionRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to TransactionRecord: %w", err)
	}
	return &r, nil
}
