package eventstore

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/FireFistisDead/SmartPay-sub004/internal/repositories/ledger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCheckpointRoundTrip(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.Checkpoint()
	require.NoError(t, err)
	require.False(t, ok, "fresh store has no checkpoint")

	require.NoError(t, store.SaveCheckpoint(1042))

	block, ok, err := store.Checkpoint()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1042), block)

	require.NoError(t, store.SaveCheckpoint(1050))
	block, _, err = store.Checkpoint()
	require.NoError(t, err)
	require.Equal(t, uint64(1050), block)
}

func TestAppliedIndex(t *testing.T) {
	store := newTestStore(t)

	tx := common.HexToHash("0xabc1")
	event := &ledger.MilestoneApprovedEvent{
		EventBase: ledger.EventBase{
			EventName:   ledger.EventMilestoneApproved,
			JobID:       "7",
			BlockNumber: 900,
			LogIndex:    3,
			TxHash:      tx,
		},
		Index: 0,
	}

	ok, err := store.IsApplied(tx, 3)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.MarkApplied(event))

	ok, err = store.IsApplied(tx, 3)
	require.NoError(t, err)
	require.True(t, ok)

	// same tx hash, different log index is a different event
	ok, err = store.IsApplied(tx, 4)
	require.NoError(t, err)
	require.False(t, ok)

	record, found, err := store.Applied(tx, 3)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, ledger.EventMilestoneApproved, record.EventName)
	require.Equal(t, "7", record.JobID)
	require.Equal(t, uint64(900), record.Block)

	// marking again is a harmless overwrite
	require.NoError(t, store.MarkApplied(event))
}

func TestFlaggedLogsOrdered(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Flag(200, 5, common.HexToHash("0x2"), "unknown event topic"))
	require.NoError(t, store.Flag(100, 1, common.HexToHash("0x1"), "malformed data section"))
	require.NoError(t, store.Flag(200, 1, common.HexToHash("0x3"), "unknown event topic"))

	records, err := store.Flagged()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, uint64(100), records[0].Block)
	require.Equal(t, uint64(200), records[1].Block)
	require.Equal(t, uint(1), records[1].LogIndex)
	require.Equal(t, uint(5), records[2].LogIndex)
	require.Equal(t, "malformed data section", records[0].Reason)
}

func TestOnDiskStoreReopens(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveCheckpoint(77))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	block, ok, err := reopened.Checkpoint()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(77), block)
}
