package memory

import (
	"testing"

	"github.com/Layr-Labs/flow-trivia-go/pkg/persistence"
	"github.com/Layr-Labs/flow-trivia-go/pkg/testutil"
)

func TestMemoryJournal(t *testing.T) {
	testutil.RunJournalTests(t, func(t *testing.T) persistence.ITransactionJournal {
		return NewMemoryJournal()
	})
}
