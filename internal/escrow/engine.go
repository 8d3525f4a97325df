package escrow

import (
	"fmt"
	"math/big"
	"time"

	"github.com/FireFistisDead/SmartPay-sub004/internal/interfaces"
	"github.com/FireFistisDead/SmartPay-sub004/internal/lib"
	"github.com/ethereum/go-ethereum/common"
)

// Engine is the authoritative escrow state machine over the replica.
// All mutations for a single job are serialized through a per-job lock,
// mutations for different jobs proceed in parallel. Every operation is
// all-or-nothing: validation happens before any state is written.
type Engine struct {
	store        Store
	sink         NotificationSink
	locks        *lib.KeyLock
	feeRecipient common.Address
	nowFn        func() time.Time
	log          interfaces.ILogger
}

func NewEngine(store Store, sink NotificationSink, feeRecipient common.Address, log interfaces.ILogger) *Engine {
	return &Engine{
		store:        store,
		sink:         sink,
		locks:        lib.NewKeyLock(),
		feeRecipient: feeRecipient,
		nowFn:        time.Now,
		log:          log,
	}
}

// SetNowFunc overrides the time source, used by tests for deterministic clocks
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = time.Now
		return
	}
	e.nowFn = now
}

func (e *Engine) now() time.Time {
	return e.nowFn()
}

func (e *Engine) notify(jobID string, milestoneIndex *uint64, eventName string) {
	if e.sink == nil {
		return
	}
	e.sink.Notify(newNotification(jobID, milestoneIndex, eventName, e.now()))
}

// CreateJob registers a new job with its immutable milestone plan. The sum of
// milestone amounts must equal the job total, this is the only time the
// equality is checked.
func (e *Engine) CreateJob(jobID string, client, freelancer, token common.Address, totalAmount *big.Int, feeBps uint32, specs []MilestoneSpec, createdAt time.Time) (*Job, error) {
	if client == freelancer {
		return nil, lib.WrapError(ErrInvalidParty, fmt.Errorf("client and freelancer are both %s", client.Hex()))
	}
	if err := ValidateFeeBps(feeBps); err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, lib.WrapError(ErrInvalidSpec, fmt.Errorf("job %s has no milestones", jobID))
	}
	if totalAmount == nil || totalAmount.Sign() <= 0 {
		return nil, lib.WrapError(ErrInvalidSpec, fmt.Errorf("job %s total amount must be positive", jobID))
	}

	sum := big.NewInt(0)
	for i, spec := range specs {
		if spec.Amount == nil || spec.Amount.Sign() <= 0 {
			return nil, lib.WrapError(ErrInvalidSpec, fmt.Errorf("milestone %d amount must be positive", i))
		}
		sum.Add(sum, spec.Amount)
	}
	if sum.Cmp(totalAmount) != 0 {
		return nil, lib.WrapError(ErrInvalidSpec, fmt.Errorf("milestone amounts sum to %s, job total is %s", sum, totalAmount))
	}

	e.locks.Lock(jobID)
	defer e.locks.Unlock(jobID)

	if _, ok := e.store.GetJob(jobID); ok {
		return nil, lib.WrapError(ErrJobExists, fmt.Errorf("job %s", jobID))
	}

	job := &Job{
		ID:           jobID,
		Client:       client,
		Freelancer:   freelancer,
		PaymentToken: token,
		TotalAmount:  new(big.Int).Set(totalAmount),
		FeeBps:       feeBps,
		Status:       JobStatusCreated,
		CreatedAt:    createdAt,
		Milestones:   make([]*Milestone, len(specs)),
	}
	for i, spec := range specs {
		job.Milestones[i] = &Milestone{
			JobID:             jobID,
			Index:             uint64(i),
			Amount:            new(big.Int).Set(spec.Amount),
			Deadline:          spec.Deadline,
			Method:            spec.Method,
			AutoApprovalDelay: spec.AutoApprovalDelay,
			Status:            MilestoneStatusCreated,
		}
	}

	e.store.PutJob(job)
	e.notify(jobID, nil, "JobCreated")
	return job.Clone(), nil
}

// DepositFunds marks the escrow as funded. Legal exactly once per job, and
// the amount must cover the job total plus the platform fee on top.
func (e *Engine) DepositFunds(jobID string, amount *big.Int) error {
	e.locks.Lock(jobID)
	defer e.locks.Unlock(jobID)

	job, ok := e.store.GetJob(jobID)
	if !ok {
		return lib.WrapError(ErrJobNotFound, fmt.Errorf("job %s", jobID))
	}
	if job.FundsDeposited {
		return lib.WrapError(ErrAlreadyFunded, fmt.Errorf("job %s", jobID))
	}

	required := RequiredDeposit(job.TotalAmount, job.FeeBps)
	if amount == nil || amount.Cmp(required) != 0 {
		return lib.WrapError(ErrInvalidSpec, fmt.Errorf("deposit %s does not match required %s", amount, required))
	}

	job.FundsDeposited = true
	job.Status = JobStatusFunded

	e.store.PutJob(job)
	e.notify(jobID, nil, "FundsDeposited")
	return nil
}

// StartMilestone moves a milestone from Created to Started. Caller identity
// is enforced upstream, the engine only checks transition legality.
func (e *Engine) StartMilestone(jobID string, index uint64) error {
	e.locks.Lock(jobID)
	defer e.locks.Unlock(jobID)

	job, ms, err := e.loadMilestone(jobID, index)
	if err != nil {
		return err
	}
	if !job.FundsDeposited {
		return lib.WrapError(ErrIllegalTransition, fmt.Errorf("job %s is not funded", jobID))
	}
	if ms.Status != MilestoneStatusCreated {
		return e.illegal(ms, MilestoneStatusStarted)
	}

	ms.Status = MilestoneStatusStarted
	if job.Status == JobStatusFunded {
		job.Status = JobStatusInProgress
	}

	e.store.PutJob(job)
	e.notify(jobID, &index, "MilestoneStarted")
	return nil
}

// SubmitMilestone records the deliverable and starts the auto-approval clock
func (e *Engine) SubmitMilestone(jobID string, index uint64, deliverableRef string) error {
	e.locks.Lock(jobID)
	defer e.locks.Unlock(jobID)

	job, ms, err := e.loadMilestone(jobID, index)
	if err != nil {
		return err
	}
	if ms.Status != MilestoneStatusStarted {
		return e.illegal(ms, MilestoneStatusSubmitted)
	}

	submittedAt := e.now()
	ms.Status = MilestoneStatusSubmitted
	ms.DeliverableRef = deliverableRef
	ms.SubmittedAt = &submittedAt

	e.store.PutJob(job)
	e.notify(jobID, &index, "MilestoneSubmitted")
	return nil
}

// ApproveMilestone is the human approval path: pays out the milestone and
// records the full quality score
func (e *Engine) ApproveMilestone(jobID string, index uint64) error {
	e.locks.Lock(jobID)
	defer e.locks.Unlock(jobID)

	job, ms, err := e.loadMilestone(jobID, index)
	if err != nil {
		return err
	}
	if ms.Status != MilestoneStatusSubmitted {
		return e.illegal(ms, MilestoneStatusApproved)
	}

	e.completeMilestone(job, ms, qualityScoreFull, false)
	e.store.PutJob(job)
	e.notify(jobID, &index, "MilestoneApproved")
	return nil
}

// CancelMilestone refunds the escrowed milestone amount to the client.
// Legal before approval only.
func (e *Engine) CancelMilestone(jobID string, index uint64) error {
	e.locks.Lock(jobID)
	defer e.locks.Unlock(jobID)

	job, ms, err := e.loadMilestone(jobID, index)
	if err != nil {
		return err
	}
	if ms.Status != MilestoneStatusCreated && ms.Status != MilestoneStatusSubmitted {
		return e.illegal(ms, MilestoneStatusCancelled)
	}

	e.cancelMilestone(job, ms)
	e.store.PutJob(job)
	e.notify(jobID, &index, "MilestoneCancelled")
	return nil
}

// completeMilestone performs the shared payout path of all approval variants.
// Approved and AutoVerified are transitional, the milestone lands on Completed
// within the same atomic operation. Caller holds the job lock and persists
// the job afterwards.
func (e *Engine) completeMilestone(job *Job, ms *Milestone, quality uint8, autoVerified bool) {
	e.store.Credit(job.Freelancer, NetPayout(ms.Amount, job.FeeBps))
	e.store.Credit(e.feeRecipient, Fee(ms.Amount, job.FeeBps))

	via := MilestoneStatusApproved
	if autoVerified {
		via = MilestoneStatusAutoVerified
	}
	e.log.Debugf("job %s milestone %d: %s -> %s -> %s", job.ID, ms.Index, ms.Status, via, MilestoneStatusCompleted)

	ms.Status = MilestoneStatusCompleted
	ms.QualityScore = quality

	e.rollupJobStatus(job)
}

// cancelMilestone refunds the client the full milestone amount. The fee
// portion of the deposit is returned with it, refunds are always whole.
func (e *Engine) cancelMilestone(job *Job, ms *Milestone) {
	if job.FundsDeposited {
		e.store.Credit(job.Client, ms.Amount)
	}
	ms.Status = MilestoneStatusCancelled
	e.rollupJobStatus(job)
}

// rollupJobStatus advances the job once every milestone reached a terminal
// status. A job with at least one completed milestone completes, a job with
// only cancelled milestones is cancelled.
func (e *Engine) rollupJobStatus(job *Job) {
	completed := 0
	for _, m := range job.Milestones {
		if !m.Status.Terminal() {
			return
		}
		if m.Status == MilestoneStatusCompleted {
			completed++
		}
	}
	if completed > 0 {
		job.Status = JobStatusCompleted
	} else {
		job.Status = JobStatusCancelled
	}
}

func (e *Engine) loadMilestone(jobID string, index uint64) (*Job, *Milestone, error) {
	job, ok := e.store.GetJob(jobID)
	if !ok {
		return nil, nil, lib.WrapError(ErrJobNotFound, fmt.Errorf("job %s", jobID))
	}
	ms := job.Milestone(index)
	if ms == nil {
		return nil, nil, lib.WrapError(ErrMilestoneNotFound, fmt.Errorf("job %s milestone %d", jobID, index))
	}
	return job, ms, nil
}

func (e *Engine) illegal(ms *Milestone, target MilestoneStatus) error {
	return lib.WrapError(ErrIllegalTransition,
		fmt.Errorf("job %s milestone %d: %s -> %s", ms.JobID, ms.Index, ms.Status, target))
}
