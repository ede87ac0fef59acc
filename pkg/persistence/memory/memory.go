package memory

import (
	"fmt"
	"sync"

	"github.com/Layr-Labs/flow-trivia-go/pkg/persistence"
)

// MemoryJournal is an in-memory implementation of ITransactionJournal.
//
// All records are lost when the process exits. Records are deep copied on
// the way in and out.
type MemoryJournal struct {
	mu      sync.RWMutex
	records map[string]*persistence.TransactionRecord
	closed  bool
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		records: make(map[string]*persistence.TransactionRecord),
	}
}

func (m *MemoryJournal) SaveRecord(record *persistence.TransactionRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("journal is closed")
	}

	m.records[record.ID] = record.Clone()
	return nil
}

func (m *MemoryJournal) LoadRecord(id string) (*persistence.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("journal is closed")
	}

	record, exists := m.records[id]
	if !exists {
		return nil, nil
	}
	return record.Clone(), nil
}

func (m *MemoryJournal) ListRecords() ([]*persistence.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("journal is closed")
	}

	result := make([]*persistence.TransactionRecord, 0, len(m.records))
	for _, record := range m.records {
		result = append(result, record.Clone())
	}
	persistence.SortRecords(result)
	return result, nil
}

func (m *MemoryJournal) DeleteRecord(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("journal is closed")
	}

	delete(m.records, id)
	return nil
}

func (m *MemoryJournal) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

func (m *MemoryJournal) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("journal is closed")
	}
	return nil
}
