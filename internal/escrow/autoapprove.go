package escrow

import (
	"context"
	"fmt"
	"time"

	"github.com/FireFistisDead/SmartPay-sub004/internal/lib"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// IsEligibleForAutoApproval reports whether the milestone may be approved by
// the timer path at the given instant. Eligibility is evaluated on demand,
// nothing inside the engine schedules it.
func (e *Engine) IsEligibleForAutoApproval(jobID string, index uint64, now time.Time) bool {
	_, ms, err := e.loadMilestone(jobID, index)
	if err != nil {
		return false
	}
	return e.eligible(ms, jobID, index, now)
}

func (e *Engine) eligible(ms *Milestone, jobID string, index uint64, now time.Time) bool {
	if ms.Status != MilestoneStatusSubmitted {
		return false
	}
	if ms.AutoApprovalDelay <= 0 {
		return false
	}
	if !ms.Method.AllowsAutomation() {
		return false
	}
	if ms.SubmittedAt == nil || now.Before(ms.SubmittedAt.Add(ms.AutoApprovalDelay)) {
		return false
	}
	if _, open := e.store.OpenDispute(jobID, index); open {
		return false
	}
	return true
}

// AutoApprove pays out a milestone whose approval window elapsed without a
// client response. Eligibility is re-checked under the job lock to defend
// against a dispute raised after the scheduler decided to call this.
func (e *Engine) AutoApprove(jobID string, index uint64, now time.Time) error {
	e.locks.Lock(jobID)
	defer e.locks.Unlock(jobID)

	job, ms, err := e.loadMilestone(jobID, index)
	if err != nil {
		return err
	}
	if !e.eligible(ms, jobID, index, now) {
		return lib.WrapError(ErrNotEligible, fmt.Errorf("job %s milestone %d", jobID, index))
	}

	e.completeMilestone(job, ms, qualityScoreAutomation, true)
	e.store.PutJob(job)
	e.notify(jobID, &index, "MilestoneAutoApproved")
	return nil
}

// BatchOutcome pairs a milestone key with its auto-approval result
type BatchOutcome struct {
	Key MilestoneKey
	Err error
}

// AutoApproveBatch applies AutoApprove to each key independently with bounded
// concurrency. A failure on one key never aborts the others, the caller gets
// the full outcome set.
func (e *Engine) AutoApproveBatch(ctx context.Context, keys []MilestoneKey, now time.Time, workers int) []BatchOutcome {
	if workers <= 0 {
		workers = 1
	}

	outcomes := make([]BatchOutcome, len(keys))

	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for i, key := range keys {
		i, key := i, key
		group.Go(func() error {
			outcomes[i] = BatchOutcome{Key: key, Err: e.AutoApprove(key.JobID, key.Index, now)}
			return nil
		})
	}

	_ = group.Wait()
	return outcomes
}

// AutoApprovalCandidates lists submitted milestones with a positive approval
// delay. The scheduler filters them through AutoApprove which re-checks full
// eligibility under the job lock.
func (e *Engine) AutoApprovalCandidates(now time.Time) []MilestoneKey {
	var keys []MilestoneKey
	for _, job := range e.store.Jobs() {
		for _, ms := range job.Milestones {
			if e.eligible(ms, job.ID, ms.Index, now) {
				keys = append(keys, MilestoneKey{JobID: job.ID, Index: ms.Index})
			}
		}
	}
	return keys
}

// OffChainVerifierApprove is the verifier automation path: an active
// registered verifier vouches for the deliverable and the milestone completes
// with the verifier's reputation as its quality score.
func (e *Engine) OffChainVerifierApprove(jobID string, index uint64, verifierAddr common.Address) error {
	verifier, ok := e.store.GetVerifier(verifierAddr)
	if !ok {
		return lib.WrapError(ErrUnknownVerifier, fmt.Errorf("verifier %s", verifierAddr.Hex()))
	}
	if !verifier.Active {
		return lib.WrapError(ErrVerifierInactive, fmt.Errorf("verifier %s", verifierAddr.Hex()))
	}

	e.locks.Lock(jobID)
	defer e.locks.Unlock(jobID)

	job, ms, err := e.loadMilestone(jobID, index)
	if err != nil {
		return err
	}
	if ms.Method != VerificationOffChain && ms.Method != VerificationHybrid {
		return lib.WrapError(ErrVerificationMethod, fmt.Errorf("job %s milestone %d method %d", jobID, index, ms.Method))
	}
	if ms.Status != MilestoneStatusSubmitted {
		return e.illegal(ms, MilestoneStatusAutoVerified)
	}
	if _, open := e.store.OpenDispute(jobID, index); open {
		return lib.WrapError(ErrDisputeAlreadyOpen, fmt.Errorf("job %s milestone %d", jobID, index))
	}

	e.completeMilestone(job, ms, verifier.Reputation, true)
	e.store.PutJob(job)
	e.notify(jobID, &index, "MilestoneVerifierApproved")
	return nil
}
