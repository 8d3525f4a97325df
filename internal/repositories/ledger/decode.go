package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/FireFistisDead/SmartPay-sub004/internal/lib"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrDecode marks logs that cannot be interpreted as escrow ledger events.
// The sync engine flags such logs for operator review instead of failing the batch.
var ErrDecode = errors.New("cannot decode ledger log")

// Decode maps a raw ledger log to a typed domain event by its first topic
func Decode(log types.Log) (DomainEvent, error) {
	if len(log.Topics) < 2 {
		return nil, lib.WrapError(ErrDecode, fmt.Errorf("expected 2 topics, got %d", len(log.Topics)))
	}

	event, err := EscrowABI.EventByID(log.Topics[0])
	if err != nil {
		return nil, lib.WrapError(ErrDecode, err)
	}

	values, err := EscrowABI.Unpack(event.Name, log.Data)
	if err != nil {
		return nil, lib.WrapError(ErrDecode, err)
	}

	base := EventBase{
		EventName:   event.Name,
		JobID:       new(big.Int).SetBytes(log.Topics[1].Bytes()).String(),
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
		TxHash:      log.TxHash,
	}

	switch event.Name {
	case EventJobCreated:
		return decodeJobCreated(base, values)
	case EventFundsDeposited:
		e := &FundsDepositedEvent{EventBase: base}
		return e, unpackInto(values, &e.Amount)
	case EventMilestoneStarted:
		e := &MilestoneStartedEvent{EventBase: base}
		return e, unpackInto(values, &e.Index)
	case EventMilestoneSubmitted:
		e := &MilestoneSubmittedEvent{EventBase: base}
		return e, unpackInto(values, &e.Index, &e.Deliverable)
	case EventMilestoneApproved:
		e := &MilestoneApprovedEvent{EventBase: base}
		return e, unpackInto(values, &e.Index, &e.Auto)
	case EventDisputeRaised:
		e := &DisputeRaisedEvent{EventBase: base}
		return e, unpackInto(values, &e.Index, &e.Initiator, &e.Reason, &e.Evidence)
	case EventDisputeResolved:
		e := &DisputeResolvedEvent{EventBase: base}
		return e, unpackInto(values, &e.Index, &e.FavorClient, &e.Resolution)
	case EventFundsReleased:
		e := &FundsReleasedEvent{EventBase: base}
		return e, unpackInto(values, &e.Index, &e.Recipient, &e.Amount)
	case EventJobCancelled:
		e := &JobCancelledEvent{EventBase: base}
		return e, unpackInto(values, &e.Index)
	default:
		return nil, lib.WrapError(ErrDecode, fmt.Errorf("unmapped event %s", event.Name))
	}
}

func decodeJobCreated(base EventBase, values []interface{}) (*JobCreatedEvent, error) {
	e := &JobCreatedEvent{EventBase: base}

	var (
		feeBps     *big.Int
		amounts    []*big.Int
		deadlines  []uint64
		methods    []uint8
		autoDelays []uint64
	)
	err := unpackInto(values,
		&e.Client, &e.Freelancer, &e.Token, &e.TotalAmount,
		&feeBps, &amounts, &deadlines, &methods, &autoDelays,
	)
	if err != nil {
		return nil, err
	}
	e.FeeBps = uint32(feeBps.Uint64())

	if len(amounts) != len(deadlines) || len(amounts) != len(methods) || len(amounts) != len(autoDelays) {
		return nil, lib.WrapError(ErrDecode, fmt.Errorf("milestone array length mismatch in job %s", base.JobID))
	}

	e.Milestones = make([]MilestoneSpec, len(amounts))
	for i := range amounts {
		e.Milestones[i] = MilestoneSpec{
			Amount:            amounts[i],
			Deadline:          int64(deadlines[i]),
			Method:            methods[i],
			AutoApprovalDelay: int64(autoDelays[i]),
		}
	}
	return e, nil
}

// unpackInto assigns unpacked abi values to typed destinations positionally
func unpackInto(values []interface{}, dests ...interface{}) error {
	if len(values) != len(dests) {
		return lib.WrapError(ErrDecode, fmt.Errorf("expected %d values, got %d", len(dests), len(values)))
	}
	for i, v := range values {
		if err := assign(dests[i], v); err != nil {
			return lib.WrapError(ErrDecode, fmt.Errorf("value %d: %w", i, err))
		}
	}
	return nil
}

func assign(dest, value interface{}) error {
	switch d := dest.(type) {
	case **big.Int:
		v, ok := value.(*big.Int)
		if !ok {
			return fmt.Errorf("expected *big.Int, got %T", value)
		}
		*d = v
	case *uint64:
		v, ok := value.(uint64)
		if !ok {
			return fmt.Errorf("expected uint64, got %T", value)
		}
		*d = v
	case *bool:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		*d = v
	case *string:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		*d = v
	case *[]*big.Int:
		v, ok := value.([]*big.Int)
		if !ok {
			return fmt.Errorf("expected []*big.Int, got %T", value)
		}
		*d = v
	case *[]uint64:
		v, ok := value.([]uint64)
		if !ok {
			return fmt.Errorf("expected []uint64, got %T", value)
		}
		*d = v
	case *[]uint8:
		v, ok := value.([]uint8)
		if !ok {
			return fmt.Errorf("expected []uint8, got %T", value)
		}
		*d = v
	case *common.Address:
		v, ok := value.(common.Address)
		if !ok {
			return fmt.Errorf("expected common.Address, got %T", value)
		}
		*d = v
	default:
		return fmt.Errorf("unsupported destination type %T", dest)
	}
	return nil
}
