package flow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func FuzzAddressRoundTrip(f *testing.F) {
	f.Add([]byte{0x67, 0x49, 0xea, 0x8e, 0x0a, 0x26, 0x8f, 0x1a})
	f.Add([]byte{0, 0, 0, 0, 0, 0, 0, 1})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, b []byte) {
		var addr Address
		copy(addr[:], b)

		parsed, err := HexToAddress(addr.HexWithPrefix())
		require.NoError(t, err)
		require.Equal(t, addr, parsed)

		parsed, err = HexToAddress(addr.Hex())
		require.NoError(t, err)
		require.Equal(t, addr, parsed)
	})
}

func FuzzPayloadMessage_Deterministic(f *testing.F) {
	f.Add([]byte("transaction {}"), uint64(999), uint64(0))
	f.Add([]byte{}, uint64(0), uint64(42))

	f.Fuzz(func(t *testing.T, script []byte, gasLimit uint64, seq uint64) {
		// Keep memory bounded for fuzzing.
		if len(script) > 4096 {
			script = script[:4096]
		}
		tx := testTransaction()
		tx.Script = script
		tx.GasLimit = gasLimit
		tx.ProposalKey.SequenceNumber = seq

		first, err := tx.PayloadMessage()
		require.NoError(t, err)
		second, err := tx.PayloadMessage()
		require.NoError(t, err)
		require.Equal(t, first, second)
		require.Equal(t, TransactionDomainTag[:], first[:len(TransactionDomainTag)])
	})
}
