package escrow

import (
	"context"
	"fmt"
	"time"

	"github.com/FireFistisDead/SmartPay-sub004/internal/lib"
	"github.com/FireFistisDead/SmartPay-sub004/internal/repositories/ledger"
)

// Apply replays a single confirmed ledger event against the replica. This is
// the only entry point the sync engine uses, the engine never reaches into
// the replica store directly. Validation failures are returned as-is so the
// caller can distinguish them from transient faults (IsValidationError).
func (e *Engine) Apply(ctx context.Context, event ledger.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch ev := event.(type) {
	case *ledger.JobCreatedEvent:
		specs := make([]MilestoneSpec, len(ev.Milestones))
		for i, spec := range ev.Milestones {
			specs[i] = MilestoneSpec{
				Amount:            spec.Amount,
				Deadline:          time.Unix(spec.Deadline, 0).UTC(),
				Method:            VerificationMethod(spec.Method),
				AutoApprovalDelay: time.Duration(spec.AutoApprovalDelay) * time.Second,
			}
		}
		_, err := e.CreateJob(ev.Job(), ev.Client, ev.Freelancer, ev.Token, ev.TotalAmount, ev.FeeBps, specs, e.now())
		return err

	case *ledger.FundsDepositedEvent:
		return e.DepositFunds(ev.Job(), ev.Amount)

	case *ledger.MilestoneStartedEvent:
		return e.StartMilestone(ev.Job(), ev.Index)

	case *ledger.MilestoneSubmittedEvent:
		return e.SubmitMilestone(ev.Job(), ev.Index, ev.Deliverable)

	case *ledger.MilestoneApprovedEvent:
		if ev.Auto {
			return e.applyAutoApproved(ev.Job(), ev.Index)
		}
		return e.ApproveMilestone(ev.Job(), ev.Index)

	case *ledger.DisputeRaisedEvent:
		_, err := e.RaiseDispute(ev.Job(), ev.Index, ev.Initiator, ev.Reason, ev.Evidence)
		return err

	case *ledger.DisputeResolvedEvent:
		dispute, ok := e.store.OpenDispute(ev.Job(), ev.Index)
		if !ok {
			return lib.WrapError(ErrDisputeNotFound, fmt.Errorf("job %s milestone %d", ev.Job(), ev.Index))
		}
		return e.ResolveDispute(dispute.ID, ev.FavorClient, ev.Resolution)

	case *ledger.FundsReleasedEvent:
		// Payouts are credited by the approval path, the release event is the
		// ledger's confirmation. A mismatch means the replica diverged.
		e.auditRelease(ev)
		return nil

	case *ledger.JobCancelledEvent:
		return e.CancelMilestone(ev.Job(), ev.Index)

	default:
		return lib.WrapError(ledger.ErrDecode, fmt.Errorf("unhandled event %s", event.Name()))
	}
}

// applyAutoApproved replays a ledger-confirmed automatic approval. The
// eligibility window was enforced by the ledger contract, the replica only
// re-validates the transition.
func (e *Engine) applyAutoApproved(jobID string, index uint64) error {
	e.locks.Lock(jobID)
	defer e.locks.Unlock(jobID)

	job, ms, err := e.loadMilestone(jobID, index)
	if err != nil {
		return err
	}
	if ms.Status != MilestoneStatusSubmitted {
		return e.illegal(ms, MilestoneStatusAutoVerified)
	}

	e.completeMilestone(job, ms, qualityScoreAutomation, true)
	e.store.PutJob(job)
	e.notify(jobID, &index, "MilestoneAutoApproved")
	return nil
}

func (e *Engine) auditRelease(ev *ledger.FundsReleasedEvent) {
	job, ok := e.store.GetJob(ev.Job())
	if !ok {
		e.log.Warnf("funds released for unknown job %s, tx %s", ev.Job(), ev.TxID())
		return
	}
	ms := job.Milestone(ev.Index)
	if ms == nil || !ms.Status.Terminal() {
		e.log.Warnf("funds released for job %s milestone %d in unexpected state", ev.Job(), ev.Index)
	}
}
