package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Layr-Labs/flow-trivia-go/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunJournalTests checks the behavior every ITransactionJournal backend
// shares. newJournal must return an empty, open journal.
func RunJournalTests(t *testing.T, newJournal func(t *testing.T) persistence.ITransactionJournal) {
	t.Run("SaveAndLoad", func(t *testing.T) {
		j := newJournal(t)
		defer func() { _ = j.Close() }()

		record := persistence.NewTransactionRecord(persistence.RecordKind_Answer, "0x01cf0e2f2f715450", "abc123")
		record.Details["questionId"] = "7"
		require.NoError(t, j.SaveRecord(record))

		loaded, err := j.LoadRecord(record.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, record.TxID, loaded.TxID)
		assert.Equal(t, record.Kind, loaded.Kind)
		assert.Equal(t, record.Address, loaded.Address)
		assert.Equal(t, persistence.RecordStatus_Submitted, loaded.Status)
		assert.True(t, record.SubmittedAt.Equal(loaded.SubmittedAt))
		assert.Equal(t, "7", loaded.Details["questionId"])
	})

	t.Run("LoadNotFound", func(t *testing.T) {
		j := newJournal(t)
		defer func() { _ = j.Close() }()

		loaded, err := j.LoadRecord("missing")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("SaveInvalid", func(t *testing.T) {
		j := newJournal(t)
		defer func() { _ = j.Close() }()

		require.Error(t, j.SaveRecord(nil))
		require.Error(t, j.SaveRecord(&persistence.TransactionRecord{Kind: persistence.RecordKind_Answer}))

		bad := persistence.NewTransactionRecord("transfer", "0x01", "")
		require.Error(t, j.SaveRecord(bad))
	})

	t.Run("StatusUpdateOverwrites", func(t *testing.T) {
		j := newJournal(t)
		defer func() { _ = j.Close() }()

		record := persistence.NewTransactionRecord(persistence.RecordKind_AddQuestion, "0x6749ea8e0a268f1a", "tx1")
		require.NoError(t, j.SaveRecord(record))

		record.MarkRejected(fmt.Errorf("execution reverted"))
		require.NoError(t, j.SaveRecord(record))

		loaded, err := j.LoadRecord(record.ID)
		require.NoError(t, err)
		assert.Equal(t, persistence.RecordStatus_Rejected, loaded.Status)
		assert.Equal(t, "execution reverted", loaded.ErrorMessage)

		records, err := j.ListRecords()
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("ListSortedBySubmission", func(t *testing.T) {
		j := newJournal(t)
		defer func() { _ = j.Close() }()

		base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		for _, offset := range []int{3, 1, 2} {
			r := persistence.NewTransactionRecord(persistence.RecordKind_Answer, "0x01", fmt.Sprintf("tx%d", offset))
			r.SubmittedAt = base.Add(time.Duration(offset) * time.Minute)
			require.NoError(t, j.SaveRecord(r))
		}

		records, err := j.ListRecords()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "tx1", records[0].TxID)
		assert.Equal(t, "tx2", records[1].TxID)
		assert.Equal(t, "tx3", records[2].TxID)
	})

	t.Run("ListEmpty", func(t *testing.T) {
		j := newJournal(t)
		defer func() { _ = j.Close() }()

		records, err := j.ListRecords()
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("Delete", func(t *testing.T) {
		j := newJournal(t)
		defer func() { _ = j.Close() }()

		record := persistence.NewTransactionRecord(persistence.RecordKind_Answer, "0x01", "tx")
		require.NoError(t, j.SaveRecord(record))
		require.NoError(t, j.DeleteRecord(record.ID))

		loaded, err := j.LoadRecord(record.ID)
		require.NoError(t, err)
		assert.Nil(t, loaded)

		require.NoError(t, j.DeleteRecord(record.ID))
	})

	t.Run("ReturnedRecordsAreCopies", func(t *testing.T) {
		j := newJournal(t)
		defer func() { _ = j.Close() }()

		record := persistence.NewTransactionRecord(persistence.RecordKind_Answer, "0x01", "tx")
		record.Details["option"] = "1"
		require.NoError(t, j.SaveRecord(record))
		record.Details["option"] = "2"

		loaded, err := j.LoadRecord(record.ID)
		require.NoError(t, err)
		assert.Equal(t, "1", loaded.Details["option"])

		loaded.Details["option"] = "3"
		again, err := j.LoadRecord(record.ID)
		require.NoError(t, err)
		assert.Equal(t, "1", again.Details["option"])
	})

	t.Run("ConcurrentSaves", func(t *testing.T) {
		j := newJournal(t)
		defer func() { _ = j.Close() }()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				r := persistence.NewTransactionRecord(persistence.RecordKind_Answer, "0x01", fmt.Sprintf("tx%d", i))
				assert.NoError(t, j.SaveRecord(r))
			}(i)
		}
		wg.Wait()

		records, err := j.ListRecords()
		require.NoError(t, err)
		assert.Len(t, records, 20)
	})

	t.Run("Closed", func(t *testing.T) {
		j := newJournal(t)
		require.NoError(t, j.HealthCheck())
		require.NoError(t, j.Close())
		require.NoError(t, j.Close())

		assert.Error(t, j.HealthCheck())
		assert.Error(t, j.SaveRecord(persistence.NewTransactionRecord(persistence.RecordKind_Answer, "0x01", "tx")))
		_, err := j.LoadRecord("x")
		assert.Error(t, err)
		_, err = j.ListRecords()
		assert.Error(t, err)
		assert.Error(t, j.DeleteRecord("x"))
	})
}
