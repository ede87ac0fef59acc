package badger

import (
	"testing"

	"github.com/Layr-Labs/flow-trivia-go/pkg/logger"
	"github.com/Layr-Labs/flow-trivia-go/pkg/persistence"
	"github.com/Layr-Labs/flow-trivia-go/pkg/testutil"
	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerJournal(t *testing.T) {
	testutil.RunJournalTests(t, func(t *testing.T) persistence.ITransactionJournal {
		testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
		bj, err := NewBadgerJournal(t.TempDir(), testLogger)
		require.NoError(t, err)
		return bj
	})
}

func TestBadgerJournal_SurvivesReopen(t *testing.T) {
	tmpDir := t.TempDir()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	bj, err := NewBadgerJournal(tmpDir, testLogger)
	require.NoError(t, err)

	record := persistence.NewTransactionRecord(persistence.RecordKind_AddQuestion, "0x6749ea8e0a268f1a", "tx1")
	record.MarkSealed()
	require.NoError(t, bj.SaveRecord(record))
	require.NoError(t, bj.Close())

	reopened, err := NewBadgerJournal(tmpDir, testLogger)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	loaded, err := reopened.LoadRecord(record.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, persistence.RecordStatus_Sealed, loaded.Status)
	assert.Equal(t, "tx1", loaded.TxID)
}

func TestBadgerJournal_RejectsUnknownSchema(t *testing.T) {
	tmpDir := t.TempDir()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	bj, err := NewBadgerJournal(tmpDir, testLogger)
	require.NoError(t, err)
	require.NoError(t, bj.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(keySchemaVersion), []byte("v0"))
	}))
	require.NoError(t, bj.Close())

	_, err = NewBadgerJournal(tmpDir, testLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema version")
}
