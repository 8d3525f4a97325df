package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/atomic"

	"github.com/FireFistisDead/SmartPay-sub004/internal/escrow"
	"github.com/FireFistisDead/SmartPay-sub004/internal/interfaces"
	"github.com/FireFistisDead/SmartPay-sub004/internal/lib"
	"github.com/FireFistisDead/SmartPay-sub004/internal/repositories/eventstore"
	"github.com/FireFistisDead/SmartPay-sub004/internal/repositories/ledger"
)

// ErrRetriesExhausted is returned when a batch keeps failing past the
// configured retry budget and the engine gives up.
var ErrRetriesExhausted = errors.New("sync retries exhausted")

// ErrChainGap marks a live engine whose checkpoint fell behind the ledger
// head by more than one batch, e.g. after a long node outage. The engine
// recovers by re-entering backfill; the sentinel surfaces the gap to
// operators via Status.LastError and logs.
var ErrChainGap = errors.New("checkpoint lags ledger head beyond one batch")

// Source is the read side of the ledger the engine follows
type Source interface {
	HeadBlock(ctx context.Context) (uint64, error)
	FetchLogs(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error)
}

// Applier replays decoded events against the replica
type Applier interface {
	Apply(ctx context.Context, event ledger.DomainEvent) error
}

type Config struct {
	PollingInterval time.Duration
	BatchSize       uint64
	MaxRetries      int
}

// Status is a point-in-time snapshot of the engine for the operator API
type Status struct {
	State      string `json:"state"`
	Checkpoint uint64 `json:"checkpoint"`
	Head       uint64 `json:"head"`
	LastError  string `json:"lastError,omitempty"`
}

// Engine keeps the replica consistent with the escrow ledger. It backfills
// from the checkpoint to the head, then follows the head by polling. Progress
// is durable: applied events are recorded before the checkpoint advances, so
// a crash mid-batch replays the batch without applying anything twice.
type Engine struct {
	source  Source
	applier Applier
	store   *eventstore.Store
	cfg     Config
	metrics *Metrics
	log     interfaces.ILogger

	state      atomic.Int32
	checkpoint atomic.Uint64
	head       atomic.Uint64
	lastErr    atomic.Error
}

func NewEngine(source Source, applier Applier, store *eventstore.Store, cfg Config, metrics *Metrics, log interfaces.ILogger) *Engine {
	return &Engine{
		source:  source,
		applier: applier,
		store:   store,
		cfg:     cfg,
		metrics: metrics,
		log:     log,
	}
}

func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) Checkpoint() uint64 {
	return e.checkpoint.Load()
}

func (e *Engine) Status() Status {
	status := Status{
		State:      e.State().String(),
		Checkpoint: e.checkpoint.Load(),
		Head:       e.head.Load(),
	}
	if err := e.lastErr.Load(); err != nil {
		status.LastError = err.Error()
	}
	return status
}

// Run drives the engine until the context is cancelled or retries are
// exhausted. It implements lib.Runnable, the caller owns the goroutine.
func (e *Engine) Run(ctx context.Context) error {
	e.setState(StateInitializing)

	cp, err := e.initCheckpoint(ctx)
	if err != nil {
		return e.fail(err)
	}

	e.setState(StateBackfilling)
	cp, err = e.backfill(ctx, cp)
	if err != nil {
		return e.fail(err)
	}

	e.log.Infof("caught up with ledger head at block %d, following live", cp)
	e.setState(StateLive)
	err = e.follow(ctx, cp)
	if err != nil && !isContextErr(err) {
		return e.fail(err)
	}
	e.setState(StateStopped)
	return err
}

// initCheckpoint loads the persisted checkpoint. A fresh deployment has none,
// it is seeded to the current head: the replica tracks the ledger from the
// moment the service first starts, not from genesis.
func (e *Engine) initCheckpoint(ctx context.Context) (uint64, error) {
	cp, ok, err := e.store.Checkpoint()
	if err != nil {
		return 0, err
	}
	if ok {
		e.log.Infof("resuming from checkpoint block %d", cp)
		e.observeCheckpoint(cp)
		return cp, nil
	}

	head, err := e.headWithRetry(ctx)
	if err != nil {
		return 0, err
	}
	if err := e.store.SaveCheckpoint(head); err != nil {
		return 0, err
	}
	e.log.Infof("no checkpoint found, seeding to ledger head %d", head)
	e.observeCheckpoint(head)
	return head, nil
}

func (e *Engine) backfill(ctx context.Context, cp uint64) (uint64, error) {
	for {
		head, err := e.headWithRetry(ctx)
		if err != nil {
			return cp, err
		}
		if cp >= head {
			return cp, nil
		}

		to := cp + e.cfg.BatchSize
		if to > head {
			to = head
		}
		if err := e.processBatchWithRetry(ctx, cp+1, to); err != nil {
			return cp, err
		}
		cp = to
	}
}

func (e *Engine) follow(ctx context.Context, cp uint64) error {
	for {
		if err := sleep(ctx, e.cfg.PollingInterval); err != nil {
			return err
		}

		head, err := e.headWithRetry(ctx)
		if err != nil {
			return err
		}
		if head <= cp {
			continue
		}

		if head-cp > e.cfg.BatchSize {
			gap := lib.WrapError(ErrChainGap, fmt.Errorf("checkpoint %d, head %d", cp, head))
			e.lastErr.Store(gap)
			e.metrics.ChainGaps.Inc()
			e.log.Warnf("%s, re-entering backfill", gap)
			e.setState(StateBackfilling)
			cp, err = e.backfill(ctx, cp)
			if err != nil {
				return err
			}
			e.setState(StateLive)
			continue
		}

		if err := e.processBatchWithRetry(ctx, cp+1, head); err != nil {
			return err
		}
		cp = head
	}
}

func (e *Engine) headWithRetry(ctx context.Context) (uint64, error) {
	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		head, err := e.source.HeadBlock(ctx)
		if err == nil {
			e.head.Store(head)
			e.metrics.HeadBlock.Set(float64(head))
			return head, nil
		}
		if isContextErr(err) {
			return 0, err
		}
		lastErr = err
		e.log.Warnf("head request failed (attempt %d/%d): %s", attempt+1, e.cfg.MaxRetries, err)
		if err := sleep(ctx, backoffDelay(attempt)); err != nil {
			return 0, err
		}
	}
	return 0, lib.WrapError(ErrRetriesExhausted, lastErr)
}

func (e *Engine) processBatchWithRetry(ctx context.Context, from, to uint64) error {
	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		err := e.processBatch(ctx, from, to)
		if err == nil {
			return nil
		}
		if isContextErr(err) {
			return err
		}
		lastErr = err
		e.metrics.BatchFailures.Inc()
		e.log.Warnf("batch [%d, %d] failed (attempt %d/%d): %s", from, to, attempt+1, e.cfg.MaxRetries, err)
		if err := sleep(ctx, backoffDelay(attempt)); err != nil {
			return err
		}
	}
	return lib.WrapError(ErrRetriesExhausted, lastErr)
}

// processBatch replays every escrow log in [from, to]. The checkpoint moves
// only after the whole range is applied, a failure anywhere leaves it in
// place and the retry starts over, skipping events already marked applied.
func (e *Engine) processBatch(ctx context.Context, from, to uint64) error {
	logs, err := e.source.FetchLogs(ctx, from, to)
	if err != nil {
		return err
	}

	events := make([]ledger.DomainEvent, 0, len(logs))
	for _, l := range logs {
		event, err := ledger.Decode(l)
		if err != nil {
			if !errors.Is(err, ledger.ErrDecode) {
				return err
			}
			// undecodable logs are parked for review, they never block progress
			e.log.Warnf("flagging undecodable log, block %d index %d: %s", l.BlockNumber, l.Index, err)
			if err := e.store.Flag(l.BlockNumber, l.Index, l.TxHash, err.Error()); err != nil {
				return err
			}
			e.metrics.LogsFlagged.Inc()
			continue
		}
		events = append(events, event)
	}

	batch := newStage(events)
	for _, jobID := range batch.jobs() {
		for event := batch.next(jobID); event != nil; event = batch.next(jobID) {
			if err := e.applyOne(ctx, event); err != nil {
				return err
			}
		}
	}

	if err := e.store.SaveCheckpoint(to); err != nil {
		return err
	}
	e.observeCheckpoint(to)
	e.log.Debugf("batch [%d, %d] applied, %d events", from, to, len(events))
	return nil
}

func (e *Engine) applyOne(ctx context.Context, event ledger.DomainEvent) error {
	applied, err := e.store.IsApplied(event.TxID(), event.LogIdx())
	if err != nil {
		return err
	}
	if applied {
		e.metrics.EventsSkipped.Inc()
		e.log.Debugf("skipping already applied event %s, tx %s", event.Name(), event.TxID())
		return nil
	}

	if err := e.applier.Apply(ctx, event); err != nil {
		if !escrow.IsValidationError(err) {
			return err
		}
		// the replica refused the transition, retrying cannot change that.
		// The event is marked applied so it is not revisited.
		e.log.Warnw("event rejected by replica", "event", event.Name(), "job", event.Job(),
			"block", event.Block(), "tx", event.TxID().Hex(), "err", err)
		e.metrics.EventsRejected.Inc()
	} else {
		e.metrics.EventsApplied.WithLabelValues(event.Name()).Inc()
	}

	return e.store.MarkApplied(event)
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

func (e *Engine) observeCheckpoint(block uint64) {
	e.checkpoint.Store(block)
	e.metrics.CheckpointBlock.Set(float64(block))
}

func (e *Engine) fail(err error) error {
	e.lastErr.Store(err)
	e.setState(StateFailed)
	e.metrics.EngineFailures.Inc()
	e.log.Errorf("sync engine stopped: %s", err)
	return fmt.Errorf("sync engine: %w", err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
