package escrow

import (
	"fmt"

	"github.com/FireFistisDead/SmartPay-sub004/internal/lib"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// RaiseDispute opens arbitration for a submitted milestone. At most one
// dispute can be open per milestone at any time.
func (e *Engine) RaiseDispute(jobID string, index uint64, initiator common.Address, reason, evidenceRef string) (*Dispute, error) {
	e.locks.Lock(jobID)
	defer e.locks.Unlock(jobID)

	job, ms, err := e.loadMilestone(jobID, index)
	if err != nil {
		return nil, err
	}

	if _, open := e.store.OpenDispute(jobID, index); open {
		return nil, lib.WrapError(ErrDisputeAlreadyOpen, fmt.Errorf("job %s milestone %d", jobID, index))
	}
	if ms.Status != MilestoneStatusSubmitted && ms.Status != MilestoneStatusDisputed {
		return nil, e.illegal(ms, MilestoneStatusDisputed)
	}

	dispute := &Dispute{
		ID:             uuid.NewString(),
		JobID:          jobID,
		MilestoneIndex: index,
		Initiator:      initiator,
		Reason:         reason,
		EvidenceRef:    evidenceRef,
		Status:         DisputeStatusRaised,
		RaisedAt:       e.now(),
	}

	ms.Status = MilestoneStatusDisputed
	job.Status = JobStatusDisputed

	e.store.PutDispute(dispute)
	e.store.PutJob(job)
	e.notify(jobID, &index, "DisputeRaised")
	return dispute.Clone(), nil
}

// ResolveDispute settles an open dispute. Arbiter identity is enforced by
// the caller. A client win refunds the full milestone amount, a freelancer
// win pays out net of the platform fee. Resolving twice fails AlreadyResolved
// and performs no payout.
func (e *Engine) ResolveDispute(disputeID string, favorClient bool, resolutionText string) error {
	dispute, ok := e.store.GetDispute(disputeID)
	if !ok {
		return lib.WrapError(ErrDisputeNotFound, fmt.Errorf("dispute %s", disputeID))
	}

	e.locks.Lock(dispute.JobID)
	defer e.locks.Unlock(dispute.JobID)

	// re-read under the job lock, a concurrent resolve may have won the race
	dispute, ok = e.store.GetDispute(disputeID)
	if !ok {
		return lib.WrapError(ErrDisputeNotFound, fmt.Errorf("dispute %s", disputeID))
	}
	if !dispute.Open() {
		return lib.WrapError(ErrAlreadyResolved, fmt.Errorf("dispute %s", disputeID))
	}

	job, ms, err := e.loadMilestone(dispute.JobID, dispute.MilestoneIndex)
	if err != nil {
		return err
	}
	if ms.Status != MilestoneStatusDisputed {
		return e.illegal(ms, MilestoneStatusCompleted)
	}

	if favorClient {
		e.cancelMilestone(job, ms)
		dispute.Winner = DisputeWinnerClient
	} else {
		e.completeMilestone(job, ms, qualityScoreFull, false)
		dispute.Winner = DisputeWinnerFreelancer
	}

	resolvedAt := e.now()
	dispute.Status = DisputeStatusResolved
	dispute.Resolution = resolutionText
	dispute.ResolvedAt = &resolvedAt

	e.settleJobDisputeStatus(job)

	e.store.PutDispute(dispute)
	e.store.PutJob(job)
	e.notify(dispute.JobID, &dispute.MilestoneIndex, "DisputeResolved")
	return nil
}

// settleJobDisputeStatus returns the job from Disputed to InProgress once no
// open disputes remain and milestones are still outstanding. rollupJobStatus
// already handled the all-terminal case.
func (e *Engine) settleJobDisputeStatus(job *Job) {
	if job.Status != JobStatusDisputed {
		return
	}
	for _, m := range job.Milestones {
		if m.Status == MilestoneStatusDisputed {
			return
		}
	}
	job.Status = JobStatusInProgress
}
