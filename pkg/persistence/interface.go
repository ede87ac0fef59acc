package persistence

// ITransactionJournal records the transactions this client submitted so a
// player or admin can review them after the process exits.
// All implementations must be thread-safe.
//
// The interface supports:
// - Record management (save, load, list, delete)
// - Lifecycle management (close, health check)
type ITransactionJournal interface {
	// SaveRecord persists a record keyed by its ID.
	// Overwrites any existing record with the same ID, which is how status
	// updates are written.
	SaveRecord(record *TransactionRecord) error

	// LoadRecord retrieves a record by ID.
	// Returns nil if the record doesn't exist, error only on storage failure.
	LoadRecord(id string) (*TransactionRecord, error)

	// ListRecords returns all records sorted by submission time (ascending).
	// Returns empty slice if no records exist, error only on storage failure.
	ListRecords() ([]*TransactionRecord, error)

	// DeleteRecord removes a record by ID.
	// Idempotent - returns nil if the record doesn't exist.
	DeleteRecord(id string) error

	// Close cleanly shuts down the journal.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations return errors.
	Close() error

	// HealthCheck verifies the journal is operational.
	HealthCheck() error
}
