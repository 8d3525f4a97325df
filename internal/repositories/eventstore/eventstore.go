package eventstore

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/FireFistisDead/SmartPay-sub004/internal/repositories/ledger"
)

const (
	checkpointKey    = "checkpoint"
	appliedKeyPrefix = "applied:"
	flaggedKeyPrefix = "flagged:"
)

var ErrStore = errors.New("event store error")

// AppliedRecord is the durable trace of a single replayed ledger event. The
// (TxHash, LogIndex) pair is the de-duplication key, the rest is for audit.
type AppliedRecord struct {
	TxHash    common.Hash `json:"txHash"`
	LogIndex  uint        `json:"logIndex"`
	Block     uint64      `json:"block"`
	EventName string      `json:"eventName"`
	JobID     string      `json:"jobId"`
	AppliedAt time.Time   `json:"appliedAt"`
}

// FlaggedRecord is a raw log the decoder could not interpret. Flagged logs are
// kept for manual review and never block checkpoint progress.
type FlaggedRecord struct {
	TxHash    common.Hash `json:"txHash"`
	LogIndex  uint        `json:"logIndex"`
	Block     uint64      `json:"block"`
	Reason    string      `json:"reason"`
	FlaggedAt time.Time   `json:"flaggedAt"`
}

// Store is the LevelDB-backed durable state of the sync engine: the
// checkpoint, the applied-event index and the flagged-log queue. The replica
// itself lives in memory and is rebuilt from the ledger on restart.
type Store struct {
	db *leveldb.DB
}

func NewStore(dataDir string) (*Store, error) {
	trimmed := strings.TrimSpace(dataDir)
	if trimmed == "" {
		return nil, fmt.Errorf("event store path required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve event store path: %w", err)
	}
	db, err := leveldb.OpenFile(abs, nil)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}
	return &Store{db: db}, nil
}

// NewInMemory backs the store with a memory-only storage, used in tests
func NewInMemory() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open in-memory event store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Checkpoint returns the last fully-processed block. The second return is
// false when no checkpoint has ever been written.
func (s *Store) Checkpoint() (uint64, bool, error) {
	val, err := s.db.Get([]byte(checkpointKey), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("load checkpoint: %w", err)
	}
	if len(val) != 8 {
		return 0, false, fmt.Errorf("%w: checkpoint value malformed", ErrStore)
	}
	return binary.BigEndian.Uint64(val), true, nil
}

// SaveCheckpoint persists the last fully-processed block. Only called after
// every event of the batch has been applied and recorded.
func (s *Store) SaveCheckpoint(block uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, block)
	if err := s.db.Put([]byte(checkpointKey), buf, nil); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// IsApplied reports whether the log at (txHash, logIndex) was already replayed
func (s *Store) IsApplied(txHash common.Hash, logIndex uint) (bool, error) {
	ok, err := s.db.Has(appliedKey(txHash, logIndex), nil)
	if err != nil {
		return false, fmt.Errorf("check applied: %w", err)
	}
	return ok, nil
}

// MarkApplied records a replayed event durably. The write happens before the
// checkpoint advances, so a crash between the two re-reads the event but the
// applied index filters it out.
func (s *Store) MarkApplied(event ledger.DomainEvent) error {
	record := AppliedRecord{
		TxHash:    event.TxID(),
		LogIndex:  event.LogIdx(),
		Block:     event.Block(),
		EventName: event.Name(),
		JobID:     event.Job(),
		AppliedAt: time.Now().UTC(),
	}
	val, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode applied record: %w", err)
	}
	if err := s.db.Put(appliedKey(record.TxHash, record.LogIndex), val, nil); err != nil {
		return fmt.Errorf("record applied event: %w", err)
	}
	return nil
}

// Applied returns the audit record for a replayed event
func (s *Store) Applied(txHash common.Hash, logIndex uint) (*AppliedRecord, bool, error) {
	val, err := s.db.Get(appliedKey(txHash, logIndex), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("load applied record: %w", err)
	}
	record := &AppliedRecord{}
	if err := json.Unmarshal(val, record); err != nil {
		return nil, false, fmt.Errorf("decode applied record: %w", err)
	}
	return record, true, nil
}

// Flag records a log the decoder rejected so an operator can inspect it later
func (s *Store) Flag(block uint64, logIndex uint, txHash common.Hash, reason string) error {
	record := FlaggedRecord{
		TxHash:    txHash,
		LogIndex:  logIndex,
		Block:     block,
		Reason:    reason,
		FlaggedAt: time.Now().UTC(),
	}
	val, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode flagged record: %w", err)
	}
	if err := s.db.Put(flaggedKey(block, logIndex), val, nil); err != nil {
		return fmt.Errorf("record flagged log: %w", err)
	}
	return nil
}

// Flagged lists flagged logs ordered by (block, logIndex)
func (s *Store) Flagged() ([]FlaggedRecord, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(flaggedKeyPrefix)), nil)
	defer iter.Release()

	records := make([]FlaggedRecord, 0)
	for iter.Next() {
		record := FlaggedRecord{}
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			return nil, fmt.Errorf("decode flagged record: %w", err)
		}
		records = append(records, record)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate flagged logs: %w", err)
	}
	return records, nil
}

func appliedKey(txHash common.Hash, logIndex uint) []byte {
	return []byte(fmt.Sprintf("%s%s:%06d", appliedKeyPrefix, txHash.Hex(), logIndex))
}

func flaggedKey(block uint64, logIndex uint) []byte {
	return []byte(fmt.Sprintf("%s%020d:%06d", flaggedKeyPrefix, block, logIndex))
}
